package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

type SQLUnitOfWork struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLUnitOfWork(db *sql.DB, logger logger.Logger) domain.UnitOfWork {
	return &SQLUnitOfWork{
		db:     db,
		logger: logger,
	}
}

func (u *SQLUnitOfWork) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		u.logger.Error("Transaction başlatılamadı", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("transaction başlatılamadı: %w", err)
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		u.logger.Error("Transaction commit edilemedi", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("transaction commit edilemedi: %w", err)
	}

	return nil
}

func (u *SQLUnitOfWork) WithinSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint oluşturulamadı: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			u.logger.Error("Savepoint geri alınamadı", map[string]interface{}{"name": name, "error": rbErr.Error()})
			return fmt.Errorf("savepoint geri alınamadı: %w", rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint serbest bırakılamadı: %w", err)
	}

	return nil
}

// isUniqueViolation recognizes the unique constraint error of both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	return false
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23514"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	return false
}
