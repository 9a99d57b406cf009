package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"pixgate/internal/config"
	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

// Delivery is a single queued merchant callback delivery.
type Delivery struct {
	ID           string
	Notification *domain.CallbackNotification
	EnqueuedAt   time.Time
}

// Dispatcher delivers post-settlement merchant callbacks asynchronously with
// a fixed worker pool. Delivery is best effort: attempts are bounded by
// exponential backoff and a permanent failure is only logged.
type Dispatcher struct {
	workers        int
	queue          chan *Delivery
	client         *http.Client
	maxRetries     uint64
	attemptTimeout time.Duration
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	logger         logger.Logger
	started        bool
	mutex          sync.Mutex
	statsCollector *StatsCollector
}

func NewDispatcher(cfg config.DispatchConfig, logger logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		workers:        cfg.Workers,
		queue:          make(chan *Delivery, cfg.QueueSize),
		client:         &http.Client{Timeout: cfg.AttemptTimeout},
		maxRetries:     uint64(cfg.MaxRetries),
		attemptTimeout: cfg.AttemptTimeout,
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger,
		statsCollector: NewStatsCollector(),
	}
}

func (d *Dispatcher) Start() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.started {
		return
	}

	d.logger.Info("Teslimat havuzu başlatılıyor", map[string]interface{}{
		"workers":    d.workers,
		"queue_size": cap(d.queue),
	})

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		workerID := i
		go func() {
			defer d.wg.Done()
			d.worker(workerID)
		}()
	}

	d.started = true
}

func (d *Dispatcher) Stop() {
	d.mutex.Lock()
	if !d.started {
		d.mutex.Unlock()
		return
	}
	d.started = false
	d.cancel()
	close(d.queue)
	d.mutex.Unlock()

	d.logger.Info("Teslimat havuzu durduruluyor", map[string]interface{}{})
	d.wg.Wait()
}

func (d *Dispatcher) GetStats() Stats {
	return d.statsCollector.GetStats()
}

// EnqueueCallback drops the notification into the queue without blocking;
// when the queue is full the notification is dropped and logged.
func (d *Dispatcher) EnqueueCallback(ctx context.Context, notification *domain.CallbackNotification) {
	// The lock is held through the send: Stop closes the queue under the same
	// lock, so a racing Stop cannot close it between the check and the send.
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.started {
		d.logger.Warn("Teslimat havuzu çalışmıyor, bildirim düşürüldü", map[string]interface{}{
			"transaction_id": notification.TransactionID,
		})
		return
	}

	delivery := &Delivery{
		ID:           uuid.New().String(),
		Notification: notification,
		EnqueuedAt:   time.Now(),
	}

	select {
	case d.queue <- delivery:
		d.statsCollector.IncrementEnqueued()
		metrics.DispatchQueueSize.Set(float64(len(d.queue)))
		d.logger.Info("Callback kuyruğa eklendi", map[string]interface{}{
			"delivery_id":    delivery.ID,
			"transaction_id": notification.TransactionID,
			"url":            notification.URL,
		})
	default:
		d.statsCollector.IncrementDropped()
		metrics.RecordCallbackDelivery("dropped")
		d.logger.Warn("Callback kuyruğu dolu, bildirim düşürüldü", map[string]interface{}{
			"delivery_id":    delivery.ID,
			"transaction_id": notification.TransactionID,
		})
	}
}

func (d *Dispatcher) worker(id int) {
	d.logger.Info("Teslimat işçisi başlatıldı", map[string]interface{}{"worker_id": id})

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("Teslimat işçisi durduruldu", map[string]interface{}{"worker_id": id})
			return
		case delivery, ok := <-d.queue:
			if !ok {
				d.logger.Info("Teslimat kuyruğu kapatıldı, işçi durduruluyor", map[string]interface{}{"worker_id": id})
				return
			}

			metrics.DispatchQueueSize.Set(float64(len(d.queue)))

			start := time.Now()
			err := d.deliver(delivery)
			elapsed := time.Since(start)

			if err != nil {
				d.statsCollector.IncrementFailed()
				metrics.RecordCallbackDelivery("failure")
				d.logger.Error("Callback teslim edilemedi", map[string]interface{}{
					"worker_id":      id,
					"delivery_id":    delivery.ID,
					"transaction_id": delivery.Notification.TransactionID,
					"url":            delivery.Notification.URL,
					"error":          err.Error(),
				})
				continue
			}

			d.statsCollector.IncrementDelivered()
			d.statsCollector.RecordDeliveryTime(elapsed)
			metrics.RecordCallbackDelivery("success")
			d.logger.Info("Callback teslim edildi", map[string]interface{}{
				"worker_id":   id,
				"delivery_id": delivery.ID,
				"duration_ms": elapsed.Milliseconds(),
			})
		}
	}
}

// deliver attempts to deliver a single notification with exponential backoff.
func (d *Dispatcher) deliver(delivery *Delivery) error {
	body, err := json.Marshal(delivery.Notification)
	if err != nil {
		return fmt.Errorf("bildirim kodlanamadı: %w", err)
	}

	operation := func() error {
		ctx, cancel := context.WithTimeout(d.ctx, d.attemptTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.Notification.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("istek oluşturulamadı: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Delivery-Id", delivery.ID)

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("istek gönderilemedi: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("merchant %d döndü", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// 4xx is permanent; the merchant rejected the request, retrying is
			// pointless.
			return backoff.Permanent(fmt.Errorf("merchant %d döndü", resp.StatusCode))
		}

		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries)
	return backoff.Retry(operation, backoff.WithContext(policy, d.ctx))
}
