package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

type UserRepository struct {
	db         *sql.DB
	logger     logger.Logger
	lockSuffix string
}

// NewUserRepository omits FOR UPDATE when rowLocks is false (sqlite);
// sqlite already serializes writers.
func NewUserRepository(db *sql.DB, logger logger.Logger, rowLocks bool) domain.UserRepository {
	suffix := ""
	if rowLocks {
		suffix = " FOR UPDATE"
	}
	return &UserRepository{
		db:         db,
		logger:     logger,
		lockSuffix: suffix,
	}
}

const userColumns = `id, name, email, balance, affiliate_balance, affiliate_parent_id, manager_id, manager_commission_percent, created_at, updated_at`

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*domain.User, error) {
	var user domain.User
	var affiliateParentID, managerID sql.NullInt64

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Balance,
		&user.AffiliateBalance,
		&affiliateParentID,
		&managerID,
		&user.ManagerCommissionPercent,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if affiliateParentID.Valid {
		pid := affiliateParentID.Int64
		user.AffiliateParentID = &pid
	}
	if managerID.Valid {
		mid := managerID.Int64
		user.ManagerID = &mid
	}

	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		r.logger.Error("Kullanıcı bulunamadı", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, fmt.Errorf("kullanıcı bulunamadı: %w", err)
	}

	return user, nil
}

func (r *UserRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, ids ...int64) (map[int64]*domain.User, error) {
	// Locks are taken in ascending id order; this is the global ordering that
	// prevents deadlocks between flows touching two users.
	ordered := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1` + r.lockSuffix

	locked := make(map[int64]*domain.User, len(ordered))
	for _, id := range ordered {
		user, err := scanUser(tx.QueryRowContext(ctx, query, id))
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		if err != nil {
			if ctx.Err() != nil {
				// The context expired while waiting for the lock; a competing
				// transaction holds the row.
				return nil, domain.ErrLockTimeout
			}
			r.logger.Error("Kullanıcı satırı kilitlenemedi", map[string]interface{}{"id": id, "error": err.Error()})
			return nil, fmt.Errorf("kullanıcı satırı kilitlenemedi: %w", err)
		}
		locked[id] = user
	}

	metrics.RecordDatabaseOperation("lock", "users")
	return locked, nil
}

func (r *UserRepository) AddToBalance(ctx context.Context, tx *sql.Tx, userID int64, delta decimal.Decimal, field domain.BalanceField) (decimal.Decimal, error) {
	var column string
	switch field {
	case domain.FieldBalance:
		column = "balance"
	case domain.FieldAffiliateBalance:
		column = "affiliate_balance"
	default:
		return decimal.Zero, fmt.Errorf("geçersiz bakiye alanı: %s", field)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s = %s + $1, updated_at = $2 WHERE id = $3 RETURNING %s`,
		column, column, column,
	)

	var after decimal.Decimal
	err := tx.QueryRowContext(ctx, query, delta, time.Now(), userID).Scan(&after)
	if err == sql.ErrNoRows {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if err != nil {
		if isCheckViolation(err) {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		r.logger.Error("Bakiye güncellenemedi", map[string]interface{}{
			"user_id": userID,
			"field":   string(field),
			"error":   err.Error(),
		})
		return decimal.Zero, fmt.Errorf("bakiye güncellenemedi: %w", err)
	}

	metrics.RecordDatabaseOperation("update", "users")
	return after, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, email, balance, affiliate_balance, affiliate_parent_id, manager_id, manager_commission_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	var affiliateParentID, managerID interface{}
	if user.AffiliateParentID != nil {
		affiliateParentID = *user.AffiliateParentID
	}
	if user.ManagerID != nil {
		managerID = *user.ManagerID
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Balance,
		user.AffiliateBalance,
		affiliateParentID,
		managerID,
		user.ManagerCommissionPercent,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		r.logger.Error("Kullanıcı oluşturulamadı", map[string]interface{}{"email": user.Email, "error": err.Error()})
		return fmt.Errorf("kullanıcı oluşturulamadı: %w", err)
	}

	return nil
}
