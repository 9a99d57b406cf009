package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentEventType string

const (
	EventPaymentReceived PaymentEventType = "PAYMENT_RECEIVED"
	EventPaymentSent     PaymentEventType = "PAYMENT_SENT"
	EventPaymentReversed PaymentEventType = "PAYMENT_REVERSED"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// PaymentEvent is an append-only balance ledger entry. For any user,
// sum(amount_credited) - sum(amount_debited) over the balance field must equal
// the current balance at all times.
type PaymentEvent struct {
	ID                   int64            `json:"id"`
	EventType            PaymentEventType `json:"event_type"`
	RelatedTransactionID int64            `json:"related_transaction_id"`
	TransactionKind      TransactionKind  `json:"transaction_kind"`
	UserID               int64            `json:"user_id"`
	BalanceField         BalanceField     `json:"balance_field"`
	Amount               decimal.Decimal  `json:"amount"`
	AmountCredited       *decimal.Decimal `json:"amount_credited,omitempty"`
	AmountDebited        *decimal.Decimal `json:"amount_debited,omitempty"`
	BalanceBefore        decimal.Decimal  `json:"balance_before"`
	BalanceAfter         decimal.Decimal  `json:"balance_after"`
	Metadata             json.RawMessage  `json:"metadata,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

type PaymentEventRepository interface {
	Append(ctx context.Context, tx *sql.Tx, event *PaymentEvent) error

	FindByUser(ctx context.Context, userID int64, from *time.Time, limit int) ([]*PaymentEvent, error)

	// SumBalance returns credits minus debits recorded against the balance field.
	SumBalance(ctx context.Context, userID int64, from *time.Time) (decimal.Decimal, error)
}

type PaymentEventService interface {
	GetUserEvents(ctx context.Context, userID int64, from *time.Time, limit int) ([]*PaymentEvent, error)
	ReconstructBalance(ctx context.Context, userID int64, from *time.Time) (decimal.Decimal, error)

	// InvalidateUsers drops cached audit queries after a settlement.
	InvalidateUsers(ctx context.Context, userIDs ...int64)
}
