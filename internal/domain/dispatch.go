package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CallbackNotification is the settlement outcome summary delivered to the merchant.
type CallbackNotification struct {
	URL             string          `json:"-"`
	TransactionID   int64           `json:"idTransaction"`
	TransactionKind TransactionKind `json:"typeTransaction"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
}

// CallbackDispatcher hands notifications to the async delivery queue.
// Enqueue never blocks; when the queue is full the notification is dropped
// and logged.
type CallbackDispatcher interface {
	EnqueueCallback(ctx context.Context, notification *CallbackNotification)
}
