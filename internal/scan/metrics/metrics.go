package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan ingestion path.
type Metrics struct {
	EventsRecorded  *prometheus.CounterVec
	ScansSuppressed prometheus.Counter
	LockTimeouts    prometheus.Counter
	AutoRegistered  prometheus.Counter
	SubmitDuration  prometheus.Histogram
}

// New creates a Metrics instance with all scan module metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taptrail_scan_events_recorded_total",
			Help: "Ledger events appended by the sequencer, by kind",
		}, []string{"kind"}),
		ScansSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taptrail_scans_suppressed_total",
			Help: "Scans absorbed by the bounce window as idempotent duplicates",
		}),
		LockTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taptrail_scan_lock_timeouts_total",
			Help: "Scans rejected because the per-subject lock wait expired",
		}),
		AutoRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taptrail_subjects_autoregistered_total",
			Help: "Subjects created on first sight of an unknown card UID",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taptrail_scan_submit_duration_seconds",
			Help:    "Duration of scan submissions (kiosk critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordEvent counts one appended ledger event.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsRecorded.WithLabelValues(kind).Inc()
}

// ObserveSubmit records the duration of one scan submission.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}
