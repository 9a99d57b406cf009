package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

type DepositRepository struct {
	db         *sql.DB
	logger     logger.Logger
	lockSuffix string
}

func NewDepositRepository(db *sql.DB, logger logger.Logger, rowLocks bool) domain.DepositRepository {
	suffix := ""
	if rowLocks {
		suffix = " FOR UPDATE"
	}
	return &DepositRepository{
		db:         db,
		logger:     logger,
		lockSuffix: suffix,
	}
}

const depositColumns = `id, user_id, amount, net_amount, affiliate_commission, status, external_transaction_id, acquirer_ref, split_recipient, split_percentage, callback_url, created_at, updated_at`

func scanDeposit(row interface {
	Scan(dest ...interface{}) error
}) (*domain.DepositRequest, error) {
	var deposit domain.DepositRequest
	var status string
	var splitRecipient, callbackURL sql.NullString

	err := row.Scan(
		&deposit.ID,
		&deposit.UserID,
		&deposit.Amount,
		&deposit.NetAmount,
		&deposit.AffiliateCommission,
		&status,
		&deposit.ExternalTransactionID,
		&deposit.AcquirerRef,
		&splitRecipient,
		&deposit.SplitPercentage,
		&callbackURL,
		&deposit.CreatedAt,
		&deposit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deposit.Status = domain.DepositStatus(status)
	if splitRecipient.Valid {
		recipient := splitRecipient.String
		deposit.SplitRecipient = &recipient
	}
	if callbackURL.Valid {
		deposit.CallbackURL = callbackURL.String
	}

	return &deposit, nil
}

func (r *DepositRepository) FindByID(ctx context.Context, id int64) (*domain.DepositRequest, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	deposit, err := scanDeposit(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		r.logger.Error("Yatırma işlemi bulunamadı", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, fmt.Errorf("yatırma işlemi bulunamadı: %w", err)
	}

	return deposit, nil
}

func (r *DepositRepository) FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, acquirer, externalID string) (*domain.DepositRequest, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE acquirer_ref = $1 AND external_transaction_id = $2` + r.lockSuffix

	deposit, err := scanDeposit(tx.QueryRowContext(ctx, query, acquirer, externalID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		r.logger.Error("Yatırma işlemi kilitlenemedi", map[string]interface{}{
			"acquirer":    acquirer,
			"external_id": externalID,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("yatırma işlemi kilitlenemedi: %w", err)
	}

	return deposit, nil
}

func (r *DepositRepository) TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.DepositStatus) (bool, error) {
	query := `UPDATE deposits SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := tx.ExecContext(ctx, query, string(to), time.Now(), id, string(from))
	if err != nil {
		r.logger.Error("Yatırma durumu güncellenemedi", map[string]interface{}{"id": id, "error": err.Error()})
		return false, fmt.Errorf("yatırma durumu güncellenemedi: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("yatırma durumu güncellenemedi: %w", err)
	}

	metrics.RecordDatabaseOperation("transition", "deposits")
	return affected == 1, nil
}

func (r *DepositRepository) Create(ctx context.Context, deposit *domain.DepositRequest) error {
	query := `
		INSERT INTO deposits (user_id, amount, net_amount, affiliate_commission, status, external_transaction_id, acquirer_ref, split_recipient, split_percentage, callback_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now()
	deposit.CreatedAt = now
	deposit.UpdatedAt = now
	if deposit.Status == "" {
		deposit.Status = domain.DepositStatusWaitingForApproval
	}

	var splitRecipient interface{}
	if deposit.SplitRecipient != nil {
		splitRecipient = *deposit.SplitRecipient
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		deposit.UserID,
		deposit.Amount,
		deposit.NetAmount,
		deposit.AffiliateCommission,
		string(deposit.Status),
		deposit.ExternalTransactionID,
		deposit.AcquirerRef,
		splitRecipient,
		deposit.SplitPercentage,
		deposit.CallbackURL,
		deposit.CreatedAt,
		deposit.UpdatedAt,
	).Scan(&deposit.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("yatırma işlemi zaten kayıtlı: %w", err)
		}
		r.logger.Error("Yatırma işlemi oluşturulamadı", map[string]interface{}{"user_id": deposit.UserID, "error": err.Error()})
		return fmt.Errorf("yatırma işlemi oluşturulamadı: %w", err)
	}

	return nil
}
