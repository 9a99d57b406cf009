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

type WebhookLogRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewWebhookLogRepository(db *sql.DB, logger logger.Logger) domain.WebhookLogRepository {
	return &WebhookLogRepository{db: db, logger: logger}
}

const webhookLogColumns = `id, idempotency_key, acquirer, external_transaction_id, status, raw_payload, error, created_at, updated_at`

func scanWebhookLog(row interface {
	Scan(dest ...interface{}) error
}) (*domain.WebhookLog, error) {
	var log domain.WebhookLog
	var status string
	var errMsg sql.NullString

	err := row.Scan(
		&log.ID,
		&log.IdempotencyKey,
		&log.Acquirer,
		&log.ExternalTransactionID,
		&status,
		&log.RawPayload,
		&errMsg,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	log.Status = domain.WebhookStatus(status)
	if errMsg.Valid {
		log.Error = &errMsg.String
	}

	return &log, nil
}

func (r *WebhookLogRepository) FindByKey(ctx context.Context, key string) (*domain.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_log WHERE idempotency_key = $1`

	log, err := scanWebhookLog(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Webhook kaydı okunamadı", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, fmt.Errorf("webhook kaydı okunamadı: %w", err)
	}

	return log, nil
}

// Reserve inserts the PROCESSING row that claims the idempotency key. A
// unique violation means another delivery holds or held the key.
func (r *WebhookLogRepository) Reserve(ctx context.Context, log *domain.WebhookLog) error {
	query := `
		INSERT INTO webhook_log (idempotency_key, acquirer, external_transaction_id, status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	log.CreatedAt = now
	log.UpdatedAt = now
	log.Status = domain.WebhookStatusProcessing

	err := r.db.QueryRowContext(
		ctx,
		query,
		log.IdempotencyKey,
		log.Acquirer,
		log.ExternalTransactionID,
		string(log.Status),
		log.RawPayload,
		log.CreatedAt,
		log.UpdatedAt,
	).Scan(&log.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateWebhook
		}
		r.logger.Error("Webhook kaydı oluşturulamadı", map[string]interface{}{"key": log.IdempotencyKey, "error": err.Error()})
		return fmt.Errorf("webhook kaydı oluşturulamadı: %w", err)
	}

	metrics.RecordDatabaseOperation("reserve", "webhook_log")
	return nil
}

func (r *WebhookLogRepository) MarkProcessed(ctx context.Context, tx *sql.Tx, key string) error {
	query := `UPDATE webhook_log SET status = $1, error = NULL, updated_at = $2 WHERE idempotency_key = $3`

	_, err := tx.ExecContext(ctx, query, string(domain.WebhookStatusProcessed), time.Now(), key)
	if err != nil {
		r.logger.Error("Webhook kaydı işaretlenemedi", map[string]interface{}{"key": key, "error": err.Error()})
		return fmt.Errorf("webhook kaydı işaretlenemedi: %w", err)
	}

	return nil
}

func (r *WebhookLogRepository) MarkFailed(ctx context.Context, key, cause string) error {
	query := `UPDATE webhook_log SET status = $1, error = $2, updated_at = $3 WHERE idempotency_key = $4`

	_, err := r.db.ExecContext(ctx, query, string(domain.WebhookStatusFailed), cause, time.Now(), key)
	if err != nil {
		r.logger.Error("Webhook kaydı işaretlenemedi", map[string]interface{}{"key": key, "error": err.Error()})
		return fmt.Errorf("webhook kaydı işaretlenemedi: %w", err)
	}

	return nil
}
