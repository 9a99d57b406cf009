package domain

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// LedgerMutation carries the context needed to record a balance movement.
type LedgerMutation struct {
	UserID               int64
	Field                BalanceField
	EventType            PaymentEventType
	TransactionKind      TransactionKind
	RelatedTransactionID int64
	Metadata             map[string]interface{}
}

// LedgerService is the single mutation point for User.balance and
// User.affiliate_balance. Every operation runs over a row the caller already
// locked, as an atomic column update inside the same transaction, and appends
// the corresponding PaymentEvent.
type LedgerService interface {
	Credit(ctx context.Context, tx *sql.Tx, m LedgerMutation, amount decimal.Decimal) (*PaymentEvent, error)

	// Debit returns ErrInsufficientFunds when the balance does not cover the
	// amount; the check runs after the lock, over the row's current value.
	Debit(ctx context.Context, tx *sql.Tx, m LedgerMutation, amount decimal.Decimal) (*PaymentEvent, error)
}
