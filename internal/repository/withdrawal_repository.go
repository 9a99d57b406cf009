package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

type WithdrawalRepository struct {
	db         *sql.DB
	logger     logger.Logger
	lockSuffix string
}

func NewWithdrawalRepository(db *sql.DB, logger logger.Logger, rowLocks bool) domain.WithdrawalRepository {
	suffix := ""
	if rowLocks {
		suffix = " FOR UPDATE"
	}
	return &WithdrawalRepository{
		db:         db,
		logger:     logger,
		lockSuffix: suffix,
	}
}

const withdrawalColumns = `id, user_id, amount, fee, net_amount, affiliate_commission, debited_amount, status, external_transaction_id, executor_ref, callback_url, created_at, updated_at`

func scanWithdrawal(row interface {
	Scan(dest ...interface{}) error
}) (*domain.WithdrawalRequest, error) {
	var withdrawal domain.WithdrawalRequest
	var status string
	var callbackURL sql.NullString

	err := row.Scan(
		&withdrawal.ID,
		&withdrawal.UserID,
		&withdrawal.Amount,
		&withdrawal.Fee,
		&withdrawal.NetAmount,
		&withdrawal.AffiliateCommission,
		&withdrawal.DebitedAmount,
		&status,
		&withdrawal.ExternalTransactionID,
		&withdrawal.ExecutorRef,
		&callbackURL,
		&withdrawal.CreatedAt,
		&withdrawal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	withdrawal.Status = domain.WithdrawalStatus(status)
	if callbackURL.Valid {
		withdrawal.CallbackURL = callbackURL.String
	}

	return &withdrawal, nil
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	withdrawal, err := scanWithdrawal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		r.logger.Error("Çekme işlemi bulunamadı", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, fmt.Errorf("çekme işlemi bulunamadı: %w", err)
	}

	return withdrawal, nil
}

func (r *WithdrawalRepository) FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, executor, externalID string) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE executor_ref = $1 AND external_transaction_id = $2` + r.lockSuffix

	withdrawal, err := scanWithdrawal(tx.QueryRowContext(ctx, query, executor, externalID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		r.logger.Error("Çekme işlemi kilitlenemedi", map[string]interface{}{
			"executor":    executor,
			"external_id": externalID,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("çekme işlemi kilitlenemedi: %w", err)
	}

	return withdrawal, nil
}

func (r *WithdrawalRepository) TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.WithdrawalStatus) (bool, error) {
	query := `UPDATE withdrawals SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := tx.ExecContext(ctx, query, string(to), time.Now(), id, string(from))
	if err != nil {
		r.logger.Error("Çekme durumu güncellenemedi", map[string]interface{}{"id": id, "error": err.Error()})
		return false, fmt.Errorf("çekme durumu güncellenemedi: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("çekme durumu güncellenemedi: %w", err)
	}

	metrics.RecordDatabaseOperation("transition", "withdrawals")
	return affected == 1, nil
}

func (r *WithdrawalRepository) SetDebitedAmount(ctx context.Context, tx *sql.Tx, id int64, amount decimal.Decimal) error {
	query := `UPDATE withdrawals SET debited_amount = $1, updated_at = $2 WHERE id = $3`

	_, err := tx.ExecContext(ctx, query, amount, time.Now(), id)
	if err != nil {
		r.logger.Error("Düşülen tutar kaydedilemedi", map[string]interface{}{"id": id, "error": err.Error()})
		return fmt.Errorf("düşülen tutar kaydedilemedi: %w", err)
	}

	return nil
}

func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawals (user_id, amount, fee, net_amount, affiliate_commission, debited_amount, status, external_transaction_id, executor_ref, callback_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now()
	withdrawal.CreatedAt = now
	withdrawal.UpdatedAt = now
	if withdrawal.Status == "" {
		withdrawal.Status = domain.WithdrawalStatusPending
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Fee,
		withdrawal.NetAmount,
		withdrawal.AffiliateCommission,
		withdrawal.DebitedAmount,
		string(withdrawal.Status),
		withdrawal.ExternalTransactionID,
		withdrawal.ExecutorRef,
		withdrawal.CallbackURL,
		withdrawal.CreatedAt,
		withdrawal.UpdatedAt,
	).Scan(&withdrawal.ID)

	if err != nil {
		r.logger.Error("Çekme işlemi oluşturulamadı", map[string]interface{}{"user_id": withdrawal.UserID, "error": err.Error()})
		return fmt.Errorf("çekme işlemi oluşturulamadı: %w", err)
	}

	return nil
}
