package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type WebhookStatus string

const (
	WebhookStatusProcessing WebhookStatus = "PROCESSING"
	WebhookStatusProcessed  WebhookStatus = "PROCESSED"
	WebhookStatusFailed     WebhookStatus = "FAILED"
)

// WebhookLog is the idempotency record kept for every incoming webhook
// attempt. Rows are never deleted; they are the audit trail of inbound events.
type WebhookLog struct {
	ID                    int64           `json:"id"`
	IdempotencyKey        string          `json:"idempotency_key"`
	Acquirer              string          `json:"acquirer"`
	ExternalTransactionID string          `json:"external_transaction_id"`
	Status                WebhookStatus   `json:"status"`
	RawPayload            json.RawMessage `json:"raw_payload"`
	Error                 *string         `json:"error,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type WebhookLogRepository interface {
	FindByKey(ctx context.Context, key string) (*WebhookLog, error)

	// Reserve inserts a new row in PROCESSING status. When the key already
	// exists it returns ErrDuplicateWebhook, meaning a concurrent delivery.
	Reserve(ctx context.Context, log *WebhookLog) error

	// MarkProcessed is called inside the settlement transaction.
	MarkProcessed(ctx context.Context, tx *sql.Tx, key string) error

	MarkFailed(ctx context.Context, key string, cause string) error
}

// WebhookGuard prevents the same event from being applied twice. work runs
// inside the same transaction as the settlement; on success the record becomes
// PROCESSED, on failure FAILED and the error is returned to the caller.
type WebhookGuard interface {
	Execute(ctx context.Context, event *SettlementEvent, work func(tx *sql.Tx) error) error
}
