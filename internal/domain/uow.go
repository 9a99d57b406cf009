package domain

import (
	"context"
	"database/sql"
)

// UnitOfWork draws the all-or-nothing boundary of a single settlement.
type UnitOfWork interface {
	// WithinTx runs fn inside a single database transaction; when fn returns
	// an error everything is rolled back.
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// WithinSavepoint runs fn under a savepoint. When fn returns an error only
	// the savepoint is rolled back and the outer transaction stays alive.
	WithinSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error
}
