package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceField selects which balance column of a user gets mutated.
type BalanceField string

const (
	FieldBalance          BalanceField = "balance"
	FieldAffiliateBalance BalanceField = "affiliate_balance"
)

type User struct {
	ID                       int64           `json:"id"`
	Name                     string          `json:"name"`
	Email                    string          `json:"email"`
	Balance                  decimal.Decimal `json:"balance"`
	AffiliateBalance         decimal.Decimal `json:"affiliate_balance"`
	AffiliateParentID        *int64          `json:"affiliate_parent_id,omitempty"`
	ManagerID                *int64          `json:"manager_id,omitempty"`
	ManagerCommissionPercent decimal.Decimal `json:"manager_commission_percent"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)

	// LockForUpdate locks the given user rows in ascending id order and
	// returns their current state under the lock.
	LockForUpdate(ctx context.Context, tx *sql.Tx, ids ...int64) (map[int64]*User, error)

	// AddToBalance applies delta as an atomic column update and returns the
	// value after the update.
	AddToBalance(ctx context.Context, tx *sql.Tx, userID int64, delta decimal.Decimal, field BalanceField) (decimal.Decimal, error)

	Create(ctx context.Context, user *User) error
}
