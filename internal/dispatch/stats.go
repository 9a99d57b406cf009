package dispatch

import (
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	Enqueued       int64
	Delivered      int64
	Failed         int64
	Dropped        int64
	AvgDeliverTime time.Duration
}

type StatsCollector struct {
	enqueued       int64
	delivered      int64
	failed         int64
	dropped        int64
	totalTime      int64
	deliveredCount int64
	mutex          sync.RWMutex
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

func (sc *StatsCollector) IncrementEnqueued() {
	atomic.AddInt64(&sc.enqueued, 1)
}

func (sc *StatsCollector) IncrementDelivered() {
	atomic.AddInt64(&sc.delivered, 1)
}

func (sc *StatsCollector) IncrementFailed() {
	atomic.AddInt64(&sc.failed, 1)
}

func (sc *StatsCollector) IncrementDropped() {
	atomic.AddInt64(&sc.dropped, 1)
}

func (sc *StatsCollector) RecordDeliveryTime(d time.Duration) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.totalTime += d.Nanoseconds()
	sc.deliveredCount++
}

func (sc *StatsCollector) GetStats() Stats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	stats := Stats{
		Enqueued:  atomic.LoadInt64(&sc.enqueued),
		Delivered: atomic.LoadInt64(&sc.delivered),
		Failed:    atomic.LoadInt64(&sc.failed),
		Dropped:   atomic.LoadInt64(&sc.dropped),
	}

	if sc.deliveredCount > 0 {
		stats.AvgDeliverTime = time.Duration(sc.totalTime / sc.deliveredCount)
	}

	return stats
}
