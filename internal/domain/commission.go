package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionCashIn  CommissionType = "cash_in"
	CommissionCashOut CommissionType = "cash_out"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// CommissionRecord is unique per (beneficiary, transaction, type) triple;
// the distributor checks for existence before opening a new record.
type CommissionRecord struct {
	ID                   int64            `json:"id"`
	UserID               int64            `json:"user_id"`
	BeneficiaryID        int64            `json:"beneficiary_id"`
	TransactionType      CommissionType   `json:"transaction_type"`
	RelatedTransactionID int64            `json:"related_transaction_id"`
	CommissionValue      decimal.Decimal  `json:"commission_value"`
	TransactionAmount    decimal.Decimal  `json:"transaction_amount"`
	Status               CommissionStatus `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type CommissionRepository interface {
	Exists(ctx context.Context, tx *sql.Tx, beneficiaryID, relatedTransactionID int64, commissionType CommissionType) (bool, error)

	Create(ctx context.Context, tx *sql.Tx, record *CommissionRecord) error

	MarkPaid(ctx context.Context, tx *sql.Tx, id int64) error
}

// SplitPayout is a merchant split whose CommissionRecord was committed with
// the settlement; the external transfer itself runs after commit, outside any
// row lock.
type SplitPayout struct {
	RecordID      int64
	OwnerID       int64
	Recipient     string
	Amount        decimal.Decimal
	TransactionID int64
}

// CommissionDistributor pays out the manager commission (deposits only), the
// affiliate commission and the merchant split for a successfully settled
// transaction. Step failures are logged and never roll back the settlement
// itself.
type CommissionDistributor interface {
	// DistributeForDeposit returns the pending split payout, when the deposit
	// carries one, for the caller to execute via PaySplit after commit.
	DistributeForDeposit(ctx context.Context, tx *sql.Tx, deposit *DepositRequest, owner *User, locked map[int64]*User) (*SplitPayout, error)
	DistributeForWithdrawal(ctx context.Context, tx *sql.Tx, withdrawal *WithdrawalRequest, owner *User, locked map[int64]*User) error
	PaySplit(ctx context.Context, payout *SplitPayout)
}

// SplitPayer is the collaborator that transfers the merchant split amount
// to the external recipient.
type SplitPayer interface {
	Pay(ctx context.Context, recipient string, amount decimal.Decimal, relatedTransactionID int64) error
}
