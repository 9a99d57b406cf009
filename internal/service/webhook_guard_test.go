package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgate/internal/domain"
)

func guardEvent(header string) *domain.SettlementEvent {
	return &domain.SettlementEvent{
		Acquirer:              "pix",
		ExternalTransactionID: "ext-1",
		Direction:             domain.DirectionDeposit,
		Outcome:               domain.OutcomeSuccess,
		RawPayload:            json.RawMessage(`{"idTransaction":"ext-1"}`),
		IdempotencyHeader:     header,
	}
}

func TestIdempotencyKeyPrefersHeader(t *testing.T) {
	withHeader := guardEvent("delivery-42")
	withoutHeader := guardEvent("")

	t.Run("header takes priority", func(t *testing.T) {
		other := guardEvent("delivery-42")
		other.RawPayload = json.RawMessage(`{"idTransaction":"ext-1","extra":true}`)
		assert.Equal(t, IdempotencyKey(withHeader), IdempotencyKey(other), "same header with a different body must yield the same key")
	})

	t.Run("payload digest without header", func(t *testing.T) {
		assert.NotEqual(t, IdempotencyKey(withHeader), IdempotencyKey(withoutHeader))

		changed := guardEvent("")
		changed.RawPayload = json.RawMessage(`{"idTransaction":"ext-1","extra":true}`)
		assert.NotEqual(t, IdempotencyKey(withoutHeader), IdempotencyKey(changed), "a different body must yield a different key")
	})

	t.Run("acquirer scopes the key", func(t *testing.T) {
		other := guardEvent("delivery-42")
		other.Acquirer = "baska"
		assert.NotEqual(t, IdempotencyKey(withHeader), IdempotencyKey(other))
	})
}

func TestWebhookGuardRunsWorkOnce(t *testing.T) {
	repo := newFakeWebhookLogRepo()
	guard := NewWebhookGuardService(repo, &fakeUnitOfWork{}, 10*time.Millisecond, testLogger())

	calls := 0
	work := func(tx *sql.Tx) error {
		calls++
		return nil
	}

	event := guardEvent("delivery-1")
	require.NoError(t, guard.Execute(context.Background(), event, work))
	require.NoError(t, guard.Execute(context.Background(), event, work))

	assert.Equal(t, 1, calls, "second delivery must not run the work again")
	assert.Equal(t, domain.WebhookStatusProcessed, repo.status(IdempotencyKey(event)))
}

func TestWebhookGuardFailedAllowsRetry(t *testing.T) {
	repo := newFakeWebhookLogRepo()
	guard := NewWebhookGuardService(repo, &fakeUnitOfWork{}, 10*time.Millisecond, testLogger())

	event := guardEvent("delivery-2")
	boom := errors.New("transient failure")

	err := guard.Execute(context.Background(), event, func(tx *sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.WebhookStatusFailed, repo.status(IdempotencyKey(event)))

	calls := 0
	require.NoError(t, guard.Execute(context.Background(), event, func(tx *sql.Tx) error {
		calls++
		return nil
	}))

	assert.Equal(t, 1, calls, "a FAILED record must be retryable")
	assert.Equal(t, domain.WebhookStatusProcessed, repo.status(IdempotencyKey(event)))
}

func TestWebhookGuardConcurrentDuplicate(t *testing.T) {
	repo := newFakeWebhookLogRepo()
	guard := NewWebhookGuardService(repo, &fakeUnitOfWork{}, 50*time.Millisecond, testLogger())

	event := guardEvent("delivery-3")
	release := make(chan struct{})

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var calls int32
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = guard.Execute(context.Background(), event, func(tx *sql.Tx) error {
			mu.Lock()
			calls++
			mu.Unlock()
			<-release
			return nil
		})
	}()

	// Wait for the first delivery to reserve the key.
	require.Eventually(t, func() bool {
		log, err := repo.FindByKey(context.Background(), IdempotencyKey(event))
		return err == nil && log != nil
	}, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		secondErr = guard.Execute(context.Background(), event, func(tx *sql.Tx) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	require.NoError(t, secondErr, "the competing delivery should wait and observe success")
	assert.Equal(t, int32(1), calls, "the work must run exactly once")
}

func TestWebhookGuardStuckProcessingAcknowledgedAsSuccess(t *testing.T) {
	repo := newFakeWebhookLogRepo()
	guard := NewWebhookGuardService(repo, &fakeUnitOfWork{}, 10*time.Millisecond, testLogger())

	event := guardEvent("delivery-4")

	// Leave a PROCESSING row behind; its owner never comes back.
	require.NoError(t, repo.Reserve(context.Background(), &domain.WebhookLog{
		IdempotencyKey:        IdempotencyKey(event),
		Acquirer:              event.Acquirer,
		ExternalTransactionID: event.ExternalTransactionID,
	}))

	err := guard.Execute(context.Background(), event, func(tx *sql.Tx) error {
		t.Fatal("work should not have run")
		return nil
	})

	// The other attempt owns the effect; acknowledging success stops the
	// provider from retrying against a reserved key.
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessing, repo.status(IdempotencyKey(event)))
}
