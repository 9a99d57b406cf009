package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/cache"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

// DefaultPaymentEventService serves audit queries with a read-through cache.
// Unfiltered queries are cached; after a settlement the touched users' entries
// are dropped via pattern.
type DefaultPaymentEventService struct {
	eventRepo domain.PaymentEventRepository
	cache     cache.Cache
	logger    logger.Logger
}

func NewPaymentEventService(
	eventRepo domain.PaymentEventRepository,
	cache cache.Cache,
	logger logger.Logger,
) domain.PaymentEventService {
	return &DefaultPaymentEventService{
		eventRepo: eventRepo,
		cache:     cache,
		logger:    logger,
	}
}

func (s *DefaultPaymentEventService) GetUserEvents(ctx context.Context, userID int64, from *time.Time, limit int) ([]*domain.PaymentEvent, error) {
	cacheable := from == nil && limit <= 0

	if cacheable && s.cache != nil {
		var cached []*domain.PaymentEvent
		if err := s.cache.Get(ctx, cache.UserEventsCacheKey(userID), &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	events, err := s.eventRepo.FindByUser(ctx, userID, from, limit)
	if err != nil {
		return nil, err
	}

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, cache.UserEventsCacheKey(userID), events, cache.ShortExpiration); err != nil {
			s.logger.Warn("Olaylar önbelleğe yazılamadı", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	return events, nil
}

func (s *DefaultPaymentEventService) ReconstructBalance(ctx context.Context, userID int64, from *time.Time) (decimal.Decimal, error) {
	cacheable := from == nil

	if cacheable && s.cache != nil {
		var cached decimal.Decimal
		if err := s.cache.Get(ctx, cache.ReconstructedBalanceCacheKey(userID), &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	sum, err := s.eventRepo.SumBalance(ctx, userID, from)
	if err != nil {
		return decimal.Zero, err
	}

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, cache.ReconstructedBalanceCacheKey(userID), sum, cache.ShortExpiration); err != nil {
			s.logger.Warn("Bakiye toplamı önbelleğe yazılamadı", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	return sum, nil
}

func (s *DefaultPaymentEventService) InvalidateUsers(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}

	for _, userID := range userIDs {
		if err := s.cache.DeletePattern(ctx, cache.UserEventsPattern(userID)); err != nil {
			s.logger.Warn("Önbellek düşürülemedi", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
}
