package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

// DefaultLedgerService applies balance mutations as atomic column updates and
// writes an append-only PaymentEvent per mutation. The caller must have locked
// the relevant user row beforehand.
type DefaultLedgerService struct {
	userRepo  domain.UserRepository
	eventRepo domain.PaymentEventRepository
	logger    logger.Logger
}

func NewLedgerService(
	userRepo domain.UserRepository,
	eventRepo domain.PaymentEventRepository,
	logger logger.Logger,
) domain.LedgerService {
	return &DefaultLedgerService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

func (s *DefaultLedgerService) Credit(ctx context.Context, tx *sql.Tx, m domain.LedgerMutation, amount decimal.Decimal) (*domain.PaymentEvent, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	after, err := s.userRepo.AddToBalance(ctx, tx, m.UserID, amount, m.Field)
	if err != nil {
		return nil, err
	}

	event := s.buildEvent(m, amount, after.Sub(amount), after)
	event.AmountCredited = &amount

	if err := s.eventRepo.Append(ctx, tx, event); err != nil {
		return nil, err
	}

	s.logger.Info("Bakiye kredilendi", map[string]interface{}{
		"user_id": m.UserID,
		"field":   string(m.Field),
		"amount":  amount.String(),
		"after":   after.String(),
	})

	return event, nil
}

func (s *DefaultLedgerService) Debit(ctx context.Context, tx *sql.Tx, m domain.LedgerMutation, amount decimal.Decimal) (*domain.PaymentEvent, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	after, err := s.userRepo.AddToBalance(ctx, tx, m.UserID, amount.Neg(), m.Field)
	if err != nil {
		return nil, err
	}

	// The sufficiency check runs over the current value under the lock; an
	// update that went negative is rolled back with the transaction.
	if after.IsNegative() {
		s.logger.Warn("Yetersiz bakiye", map[string]interface{}{
			"user_id": m.UserID,
			"amount":  amount.String(),
			"balance": after.Add(amount).String(),
		})
		return nil, domain.ErrInsufficientFunds
	}

	event := s.buildEvent(m, amount, after.Add(amount), after)
	event.AmountDebited = &amount

	if err := s.eventRepo.Append(ctx, tx, event); err != nil {
		return nil, err
	}

	s.logger.Info("Bakiyeden düşüldü", map[string]interface{}{
		"user_id": m.UserID,
		"field":   string(m.Field),
		"amount":  amount.String(),
		"after":   after.String(),
	})

	return event, nil
}

func (s *DefaultLedgerService) buildEvent(m domain.LedgerMutation, amount, before, after decimal.Decimal) *domain.PaymentEvent {
	event := &domain.PaymentEvent{
		EventType:            m.EventType,
		RelatedTransactionID: m.RelatedTransactionID,
		TransactionKind:      m.TransactionKind,
		UserID:               m.UserID,
		BalanceField:         m.Field,
		Amount:               amount,
		BalanceBefore:        before,
		BalanceAfter:         after,
	}

	if len(m.Metadata) > 0 {
		encoded, err := json.Marshal(m.Metadata)
		if err != nil {
			s.logger.Warn("Olay verisi kodlanamadı", map[string]interface{}{
				"user_id": m.UserID,
				"error":   err.Error(),
			})
		} else {
			event.Metadata = encoded
		}
	}

	return event
}
