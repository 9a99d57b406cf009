package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_http_requests_total",
			Help: "Toplam HTTP istek sayısı",
		},
		[]string{"method", "endpoint", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixgate_http_request_duration_seconds",
			Help:    "HTTP istek süresi (saniye)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_webhooks_received_total",
			Help: "Acquirer'dan alınan toplam webhook sayısı",
		},
		[]string{"acquirer"},
	)

	WebhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_webhooks_processed_total",
			Help: "Sonuca bağlanan webhook sayısı",
		},
		[]string{"acquirer", "result"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixgate_settlement_duration_seconds",
			Help:    "Settlement işleme süresi (saniye)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction", "outcome"},
	)

	CommissionsDistributed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_commissions_distributed_total",
			Help: "Dağıtılan komisyon sayısı",
		},
		[]string{"type", "result"},
	)

	CallbackDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_callback_deliveries_total",
			Help: "Merchant callback teslimat denemeleri",
		},
		[]string{"result"},
	)

	DispatchQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixgate_dispatch_queue_size",
			Help: "Callback kuyruğundaki bekleyen teslimat sayısı",
		},
	)

	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixgate_database_operations_total",
			Help: "Toplam veritabanı operasyonu sayısı",
		},
		[]string{"operation", "entity"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixgate_cache_hits_total",
			Help: "Önbellek isabet sayısı",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixgate_cache_misses_total",
			Help: "Önbellek isabet etmeme sayısı",
		},
	)
)

func RecordHttpRequest(method, endpoint, status string, duration time.Duration) {
	HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordWebhook(acquirer, result string) {
	WebhooksProcessed.WithLabelValues(acquirer, result).Inc()
}

func RecordSettlement(direction, outcome string, duration time.Duration) {
	SettlementDuration.WithLabelValues(direction, outcome).Observe(duration.Seconds())
}

func RecordCommission(commissionType, result string) {
	CommissionsDistributed.WithLabelValues(commissionType, result).Inc()
}

func RecordCallbackDelivery(result string) {
	CallbackDeliveries.WithLabelValues(result).Inc()
}

func RecordDatabaseOperation(operation, entity string) {
	DatabaseOperationsTotal.WithLabelValues(operation, entity).Inc()
}

func RecordCacheHit()  { CacheHits.Inc() }
func RecordCacheMiss() { CacheMisses.Inc() }
