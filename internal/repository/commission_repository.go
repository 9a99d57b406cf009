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

type CommissionRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewCommissionRepository(db *sql.DB, logger logger.Logger) domain.CommissionRepository {
	return &CommissionRepository{db: db, logger: logger}
}

func (r *CommissionRepository) Exists(ctx context.Context, tx *sql.Tx, beneficiaryID, relatedTransactionID int64, commissionType domain.CommissionType) (bool, error) {
	query := `SELECT COUNT(1) FROM commission_records WHERE beneficiary_id = $1 AND related_transaction_id = $2 AND transaction_type = $3`

	var count int
	err := tx.QueryRowContext(ctx, query, beneficiaryID, relatedTransactionID, string(commissionType)).Scan(&count)
	if err != nil {
		r.logger.Error("Komisyon kaydı sorgulanamadı", map[string]interface{}{
			"beneficiary_id": beneficiaryID,
			"transaction_id": relatedTransactionID,
			"error":          err.Error(),
		})
		return false, fmt.Errorf("komisyon kaydı sorgulanamadı: %w", err)
	}

	return count > 0, nil
}

func (r *CommissionRepository) Create(ctx context.Context, tx *sql.Tx, record *domain.CommissionRecord) error {
	query := `
		INSERT INTO commission_records (user_id, beneficiary_id, transaction_type, related_transaction_id, commission_value, transaction_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = domain.CommissionStatusPending
	}

	err := tx.QueryRowContext(
		ctx,
		query,
		record.UserID,
		record.BeneficiaryID,
		string(record.TransactionType),
		record.RelatedTransactionID,
		record.CommissionValue,
		record.TransactionAmount,
		string(record.Status),
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID)

	if err != nil {
		r.logger.Error("Komisyon kaydı oluşturulamadı", map[string]interface{}{
			"beneficiary_id": record.BeneficiaryID,
			"error":          err.Error(),
		})
		return fmt.Errorf("komisyon kaydı oluşturulamadı: %w", err)
	}

	metrics.RecordDatabaseOperation("create", "commission_records")
	return nil
}

func (r *CommissionRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `UPDATE commission_records SET status = $1, updated_at = $2 WHERE id = $3`

	_, err := tx.ExecContext(ctx, query, string(domain.CommissionStatusPaid), time.Now(), id)
	if err != nil {
		r.logger.Error("Komisyon kaydı güncellenemedi", map[string]interface{}{"id": id, "error": err.Error()})
		return fmt.Errorf("komisyon kaydı güncellenemedi: %w", err)
	}

	return nil
}
