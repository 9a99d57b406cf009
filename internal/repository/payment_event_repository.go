package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

type PaymentEventRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPaymentEventRepository(db *sql.DB, logger logger.Logger) domain.PaymentEventRepository {
	return &PaymentEventRepository{db: db, logger: logger}
}

const paymentEventColumns = `id, user_id, event_type, transaction_kind, related_transaction_id, balance_field, amount, amount_credited, amount_debited, balance_before, balance_after, metadata, created_at`

func scanPaymentEvent(row interface {
	Scan(dest ...interface{}) error
}) (*domain.PaymentEvent, error) {
	var event domain.PaymentEvent
	var eventType, transactionKind, balanceField string
	var credited, debited decimal.NullDecimal
	var metadata []byte

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&eventType,
		&transactionKind,
		&event.RelatedTransactionID,
		&balanceField,
		&event.Amount,
		&credited,
		&debited,
		&event.BalanceBefore,
		&event.BalanceAfter,
		&metadata,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.EventType = domain.PaymentEventType(eventType)
	event.TransactionKind = domain.TransactionKind(transactionKind)
	event.BalanceField = domain.BalanceField(balanceField)
	if credited.Valid {
		event.AmountCredited = &credited.Decimal
	}
	if debited.Valid {
		event.AmountDebited = &debited.Decimal
	}
	if len(metadata) > 0 {
		event.Metadata = json.RawMessage(metadata)
	}

	return &event, nil
}

func (r *PaymentEventRepository) Append(ctx context.Context, tx *sql.Tx, event *domain.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (user_id, event_type, transaction_kind, related_transaction_id, balance_field, amount, amount_credited, amount_debited, balance_before, balance_after, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	event.CreatedAt = time.Now()

	var metadata []byte
	if len(event.Metadata) > 0 {
		metadata = []byte(event.Metadata)
	}

	var credited, debited decimal.NullDecimal
	if event.AmountCredited != nil {
		credited = decimal.NewNullDecimal(*event.AmountCredited)
	}
	if event.AmountDebited != nil {
		debited = decimal.NewNullDecimal(*event.AmountDebited)
	}

	err := tx.QueryRowContext(
		ctx,
		query,
		event.UserID,
		string(event.EventType),
		string(event.TransactionKind),
		event.RelatedTransactionID,
		string(event.BalanceField),
		event.Amount,
		credited,
		debited,
		event.BalanceBefore,
		event.BalanceAfter,
		metadata,
		event.CreatedAt,
	).Scan(&event.ID)

	if err != nil {
		r.logger.Error("Ödeme olayı kaydedilemedi", map[string]interface{}{"user_id": event.UserID, "error": err.Error()})
		return fmt.Errorf("ödeme olayı kaydedilemedi: %w", err)
	}

	metrics.RecordDatabaseOperation("append", "payment_events")
	return nil
}

func (r *PaymentEventRepository) FindByUser(ctx context.Context, userID int64, from *time.Time, limit int) ([]*domain.PaymentEvent, error) {
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE user_id = $1`
	args := []interface{}{userID}

	if from != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args)+1)
		args = append(args, *from)
	}

	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Ödeme olayları okunamadı", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil, fmt.Errorf("ödeme olayları okunamadı: %w", err)
	}
	defer rows.Close()

	var events []*domain.PaymentEvent
	for rows.Next() {
		event, err := scanPaymentEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ödeme olayları okunamadı: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ödeme olayları okunamadı: %w", err)
	}

	return events, nil
}

// SumBalance folds the ledger for the main balance field only; affiliate
// credits live under their own field and must not leak into the sum.
func (r *PaymentEventRepository) SumBalance(ctx context.Context, userID int64, from *time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_credited), 0) - COALESCE(SUM(amount_debited), 0)
		FROM payment_events
		WHERE user_id = $1 AND balance_field = $2
	`
	args := []interface{}{userID, string(domain.FieldBalance)}

	if from != nil {
		query += ` AND created_at >= $3`
		args = append(args, *from)
	}

	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum)
	if err != nil {
		r.logger.Error("Bakiye toplamı hesaplanamadı", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return decimal.Zero, fmt.Errorf("bakiye toplamı hesaplanamadı: %w", err)
	}

	return sum, nil
}
