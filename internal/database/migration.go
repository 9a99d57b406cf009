package database

import (
	"database/sql"
	"fmt"
	"time"

	"pixgate/pkg/logger"
)

type MigrationService struct {
	db     *sql.DB
	logger logger.Logger
}

func NewMigrationService(db *sql.DB, logger logger.Logger) *MigrationService {
	return &MigrationService{
		db:     db,
		logger: logger,
	}
}

func (m *MigrationService) InitMigrationTable() error {
	query := `
    CREATE TABLE IF NOT EXISTS migrations (
        id SERIAL PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        applied_at TIMESTAMP NOT NULL
    )
    `

	_, err := m.db.Exec(query)
	if err != nil {
		m.logger.Error("Migration tablosu oluşturulamadı", map[string]interface{}{"error": err.Error()})
		return err
	}

	return nil
}

func (m *MigrationService) IsMigrationApplied(name string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM migrations WHERE name = $1"
	err := m.db.QueryRow(query, name).Scan(&count)
	if err != nil {
		m.logger.Error("Migration durumu kontrol edilemedi", map[string]interface{}{"name": name, "error": err.Error()})
		return false, err
	}

	return count > 0, nil
}

func (m *MigrationService) RecordMigration(name string) error {
	query := "INSERT INTO migrations (name, applied_at) VALUES ($1, $2)"
	_, err := m.db.Exec(query, name, time.Now())
	if err != nil {
		m.logger.Error("Migration kaydedilemedi", map[string]interface{}{"name": name, "error": err.Error()})
		return err
	}

	return nil
}

func (m *MigrationService) ApplyMigration(name string, migrationFunc func(*sql.DB) error) error {
	applied, err := m.IsMigrationApplied(name)
	if err != nil {
		return err
	}

	if applied {
		m.logger.Info("Migration zaten uygulanmış", map[string]interface{}{"name": name})
		return nil
	}

	m.logger.Info("Migration uygulanıyor", map[string]interface{}{"name": name})

	if err := migrationFunc(m.db); err != nil {
		m.logger.Error("Migration uygulanamadı", map[string]interface{}{"name": name, "error": err.Error()})
		return err
	}

	if err := m.RecordMigration(name); err != nil {
		return err
	}

	m.logger.Info("Migration başarıyla uygulandı", map[string]interface{}{"name": name})
	return nil
}

func (m *MigrationService) RunMigrations() error {
	m.logger.Info("Migrationlar başlatılıyor", map[string]interface{}{})

	if err := m.InitMigrationTable(); err != nil {
		return fmt.Errorf("migration tablosu oluşturulamadı: %w", err)
	}

	migrations := []struct {
		Name string
		Func func(*sql.DB) error
	}{
		{"create_users_table", CreateUsersTable},
		{"create_deposits_table", CreateDepositsTable},
		{"create_withdrawals_table", CreateWithdrawalsTable},
		{"create_webhook_log_table", CreateWebhookLogTable},
		{"create_payment_events_table", CreatePaymentEventsTable},
		{"create_commission_records_table", CreateCommissionRecordsTable},
	}

	for _, migration := range migrations {
		if err := m.ApplyMigration(migration.Name, migration.Func); err != nil {
			return fmt.Errorf("migration uygulanamadı %s: %w", migration.Name, err)
		}
	}

	return nil
}

func CreateUsersTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS users (
        id SERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
        affiliate_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
        affiliate_parent_id INTEGER,
        manager_id INTEGER,
        manager_commission_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        FOREIGN KEY (affiliate_parent_id) REFERENCES users (id),
        FOREIGN KEY (manager_id) REFERENCES users (id)
    )
    `

	_, err := db.Exec(query)
	return err
}

func CreateDepositsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS deposits (
        id SERIAL PRIMARY KEY,
        user_id INTEGER NOT NULL,
        amount NUMERIC(18,2) NOT NULL,
        net_amount NUMERIC(18,2) NOT NULL,
        affiliate_commission NUMERIC(18,2) NOT NULL DEFAULT 0,
        status TEXT NOT NULL DEFAULT 'WAITING_FOR_APPROVAL',
        external_transaction_id TEXT NOT NULL,
        acquirer_ref TEXT NOT NULL,
        split_recipient TEXT,
        split_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
        callback_url TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        UNIQUE (acquirer_ref, external_transaction_id),
        FOREIGN KEY (user_id) REFERENCES users (id)
    )
    `

	_, err := db.Exec(query)
	return err
}

func CreateWithdrawalsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS withdrawals (
        id SERIAL PRIMARY KEY,
        user_id INTEGER NOT NULL,
        amount NUMERIC(18,2) NOT NULL,
        fee NUMERIC(18,2) NOT NULL DEFAULT 0,
        net_amount NUMERIC(18,2) NOT NULL,
        affiliate_commission NUMERIC(18,2) NOT NULL DEFAULT 0,
        debited_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
        status TEXT NOT NULL DEFAULT 'PENDING',
        external_transaction_id TEXT NOT NULL,
        executor_ref TEXT NOT NULL,
        callback_url TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        UNIQUE (executor_ref, external_transaction_id),
        FOREIGN KEY (user_id) REFERENCES users (id)
    )
    `

	_, err := db.Exec(query)
	return err
}

func CreateWebhookLogTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS webhook_log (
        id SERIAL PRIMARY KEY,
        idempotency_key TEXT NOT NULL UNIQUE,
        acquirer TEXT NOT NULL,
        external_transaction_id TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'PROCESSING',
        raw_payload TEXT,
        error TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )
    `

	_, err := db.Exec(query)
	return err
}

func CreatePaymentEventsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS payment_events (
        id SERIAL PRIMARY KEY,
        event_type TEXT NOT NULL,
        related_transaction_id INTEGER NOT NULL,
        transaction_kind TEXT NOT NULL,
        user_id INTEGER NOT NULL,
        balance_field TEXT NOT NULL DEFAULT 'balance',
        amount NUMERIC(18,2) NOT NULL,
        amount_credited NUMERIC(18,2),
        amount_debited NUMERIC(18,2),
        balance_before NUMERIC(18,2) NOT NULL,
        balance_after NUMERIC(18,2) NOT NULL,
        metadata TEXT,
        created_at TIMESTAMP NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    )
    `

	_, err := db.Exec(query)
	return err
}

func CreateCommissionRecordsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS commission_records (
        id SERIAL PRIMARY KEY,
        user_id INTEGER NOT NULL,
        beneficiary_id INTEGER NOT NULL,
        transaction_type TEXT NOT NULL,
        related_transaction_id INTEGER NOT NULL,
        commission_value NUMERIC(18,2) NOT NULL,
        transaction_amount NUMERIC(18,2) NOT NULL,
        status TEXT NOT NULL DEFAULT 'pending',
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        UNIQUE (beneficiary_id, related_transaction_id, transaction_type),
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (beneficiary_id) REFERENCES users (id)
    )
    `

	_, err := db.Exec(query)
	return err
}
