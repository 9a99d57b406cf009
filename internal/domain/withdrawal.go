package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusPaidOut   WithdrawalStatus = "PAID_OUT"
	WithdrawalStatusCancelled WithdrawalStatus = "CANCELLED"
	WithdrawalStatusRejected  WithdrawalStatus = "REJECTED"
)

type WithdrawalRequest struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"user_id"`
	Amount                decimal.Decimal `json:"amount"`
	Fee                   decimal.Decimal `json:"fee"`
	NetAmount             decimal.Decimal `json:"net_amount"`
	AffiliateCommission   decimal.Decimal `json:"affiliate_commission"`
	// DebitedAmount is the amount debited from the balance so far; on
	// cancel/reject the refund is exactly this amount.
	DebitedAmount         decimal.Decimal `json:"debited_amount"`
	Status                WithdrawalStatus `json:"status"`
	ExternalTransactionID string           `json:"external_transaction_id"`
	ExecutorRef           string           `json:"executor_ref"`
	CallbackURL           string           `json:"callback_url,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the withdrawal reached a final status; every
// status other than PENDING is final.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status != WithdrawalStatusPending
}

func (w *WithdrawalRequest) IsPaidOut() bool {
	return w.Status == WithdrawalStatusPaidOut
}

type WithdrawalRepository interface {
	FindByID(ctx context.Context, id int64) (*WithdrawalRequest, error)

	FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, executor, externalID string) (*WithdrawalRequest, error)

	TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to WithdrawalStatus) (bool, error)

	SetDebitedAmount(ctx context.Context, tx *sql.Tx, id int64, amount decimal.Decimal) error

	Create(ctx context.Context, withdrawal *WithdrawalRequest) error
}
