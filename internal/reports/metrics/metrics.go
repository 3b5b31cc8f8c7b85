package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reporting module.
type Metrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	AggregateDuration prometheus.Histogram
}

// New creates a Metrics instance with all reporting metrics registered.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taptrail_stats_cache_hits_total",
			Help: "Live stats served from the Redis cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taptrail_stats_cache_misses_total",
			Help: "Live stats recomputed from the ledger",
		}),
		AggregateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taptrail_report_aggregate_duration_seconds",
			Help:    "Duration of report aggregation runs",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveAggregate records the duration of one aggregation run.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAggregate(start time.Time) {
	m.AggregateDuration.Observe(time.Since(start).Seconds())
}
