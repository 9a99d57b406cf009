package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositStatusWaitingForApproval DepositStatus = "WAITING_FOR_APPROVAL"
	DepositStatusPaidOut            DepositStatus = "PAID_OUT"
	DepositStatusCancelled          DepositStatus = "CANCELLED"
	DepositStatusRejected           DepositStatus = "REJECTED"
)

type DepositRequest struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"user_id"`
	Amount                decimal.Decimal `json:"amount"`
	NetAmount             decimal.Decimal `json:"net_amount"`
	AffiliateCommission   decimal.Decimal `json:"affiliate_commission"`
	Status                DepositStatus   `json:"status"`
	ExternalTransactionID string          `json:"external_transaction_id"`
	AcquirerRef           string          `json:"acquirer_ref"`
	SplitRecipient        *string         `json:"split_recipient,omitempty"`
	SplitPercentage       decimal.Decimal `json:"split_percentage"`
	CallbackURL           string          `json:"callback_url,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the deposit reached a final status; every
// status other than WAITING_FOR_APPROVAL is final.
func (d *DepositRequest) IsTerminal() bool {
	return d.Status != DepositStatusWaitingForApproval
}

// Fee is the total fee withheld on the deposit (the commission base).
func (d *DepositRequest) Fee() decimal.Decimal {
	return d.Amount.Sub(d.NetAmount)
}

func (d *DepositRequest) HasSplit() bool {
	return d.SplitRecipient != nil && *d.SplitRecipient != "" && d.SplitPercentage.IsPositive()
}

type DepositRepository interface {
	FindByID(ctx context.Context, id int64) (*DepositRequest, error)

	// FindByExternalIDForUpdate reads the matching row under a row lock.
	FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, acquirer, externalID string) (*DepositRequest, error)

	// TransitionStatus applies the transition only when the current status
	// equals from; false means the record already reached a final status.
	TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to DepositStatus) (bool, error)

	Create(ctx context.Context, deposit *DepositRequest) error
}
