package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
	"pixgate/pkg/tracing"
)

// WebhookGuardService prevents a settlement event from being applied twice,
// keyed by its idempotency key. The key reservation happens outside the
// transaction so competing deliveries hit the unique constraint; the PROCESSED
// mark happens inside the settlement transaction.
type WebhookGuardService struct {
	webhookLogRepo domain.WebhookLogRepository
	uow            domain.UnitOfWork
	processingWait time.Duration
	logger         logger.Logger
}

func NewWebhookGuardService(
	webhookLogRepo domain.WebhookLogRepository,
	uow domain.UnitOfWork,
	processingWait time.Duration,
	logger logger.Logger,
) domain.WebhookGuard {
	return &WebhookGuardService{
		webhookLogRepo: webhookLogRepo,
		uow:            uow,
		processingWait: processingWait,
		logger:         logger,
	}
}

// IdempotencyKey uses the provider's idempotency header when sent, otherwise
// the external transaction id plus the raw payload digest. The header always
// wins, so the same event resent with a different body still yields a single
// key.
func IdempotencyKey(event *domain.SettlementEvent) string {
	if event.IdempotencyHeader != "" {
		sum := sha256.Sum256([]byte(event.Acquirer + ":" + event.IdempotencyHeader))
		return hex.EncodeToString(sum[:])
	}

	payloadSum := sha256.Sum256(event.RawPayload)
	sum := sha256.Sum256([]byte(event.Acquirer + ":" + event.ExternalTransactionID + ":" + hex.EncodeToString(payloadSum[:])))
	return hex.EncodeToString(sum[:])
}

func (s *WebhookGuardService) Execute(ctx context.Context, event *domain.SettlementEvent, work func(tx *sql.Tx) error) error {
	ctx, span := tracing.StartSpan(ctx, "webhook_guard.execute")
	defer span.End()

	key := IdempotencyKey(event)

	existing, err := s.webhookLogRepo.FindByKey(ctx, key)
	if err != nil {
		return err
	}

	if existing != nil {
		switch existing.Status {
		case domain.WebhookStatusProcessed:
			s.logger.Info("Webhook zaten işlenmiş, yoksayılıyor", map[string]interface{}{
				"key":      key,
				"acquirer": event.Acquirer,
			})
			metrics.RecordWebhook(event.Acquirer, "duplicate")
			return nil
		case domain.WebhookStatusProcessing:
			return s.awaitConcurrent(ctx, key, event)
		case domain.WebhookStatusFailed:
			// FAILED records may be retried; the row stays in place and the
			// outcome is updated via MarkProcessed/MarkFailed.
			s.logger.Info("Başarısız webhook yeniden deneniyor", map[string]interface{}{
				"key":      key,
				"acquirer": event.Acquirer,
			})
			return s.run(ctx, key, event, work)
		}
	}

	reservation := &domain.WebhookLog{
		IdempotencyKey:        key,
		Acquirer:              event.Acquirer,
		ExternalTransactionID: event.ExternalTransactionID,
		RawPayload:            event.RawPayload,
	}
	if err := s.webhookLogRepo.Reserve(ctx, reservation); err != nil {
		if err == domain.ErrDuplicateWebhook {
			// A competing delivery grabbed the key first.
			return s.awaitConcurrent(ctx, key, event)
		}
		return err
	}

	return s.run(ctx, key, event, work)
}

// awaitConcurrent waits a bounded time for the competing PROCESSING delivery
// to finish and reads the record once more. Either way the delivery is
// acknowledged as a success: the competitor owns the effect, and a failure ack
// would only trigger a provider retry against a key that is already taken.
func (s *WebhookGuardService) awaitConcurrent(ctx context.Context, key string, event *domain.SettlementEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.processingWait):
	}

	recheck, err := s.webhookLogRepo.FindByKey(ctx, key)
	if err != nil {
		return err
	}

	if recheck != nil && recheck.Status == domain.WebhookStatusProcessed {
		s.logger.Info("Rakip teslimat webhook'u tamamladı", map[string]interface{}{
			"key":      key,
			"acquirer": event.Acquirer,
		})
		metrics.RecordWebhook(event.Acquirer, "duplicate")
		return nil
	}

	s.logger.Warn("Webhook halen işleniyor, rakip teslimata bırakıldı", map[string]interface{}{
		"key":      key,
		"acquirer": event.Acquirer,
	})
	metrics.RecordWebhook(event.Acquirer, "in_progress")
	return nil
}

func (s *WebhookGuardService) run(ctx context.Context, key string, event *domain.SettlementEvent, work func(tx *sql.Tx) error) error {
	err := s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := work(tx); err != nil {
			return err
		}
		// The PROCESSED mark commits in the same transaction as the
		// settlement; neither is visible without the other.
		return s.webhookLogRepo.MarkProcessed(ctx, tx, key)
	})

	if err != nil {
		if markErr := s.webhookLogRepo.MarkFailed(ctx, key, err.Error()); markErr != nil {
			s.logger.Error("Webhook FAILED olarak işaretlenemedi", map[string]interface{}{
				"key":   key,
				"error": markErr.Error(),
			})
		}
		metrics.RecordWebhook(event.Acquirer, "failure")
		return fmt.Errorf("webhook işlenemedi: %w", err)
	}

	metrics.RecordWebhook(event.Acquirer, "success")
	return nil
}
