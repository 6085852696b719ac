package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for key synchronization.
type Metrics struct {
	Synced       *prometheus.CounterVec
	ItemFailures *prometheus.CounterVec
	Renewals     prometheus.Counter
	SyncDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all key module metrics registered.
func New() *Metrics {
	return &Metrics{
		Synced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domopass_keys_synced_total",
			Help: "Total number of composite keys whose payload was updated, by trigger",
		}, []string{"trigger"}),
		ItemFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domopass_key_sync_item_failures_total",
			Help: "Total number of per-key synchronization failures, by trigger",
		}, []string{"trigger"}),
		Renewals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domopass_key_renewals_submitted_total",
			Help: "Total number of renewal requests submitted",
		}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domopass_key_sync_duration_seconds",
			Help:    "Duration of one synchronization batch, by trigger",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"trigger"}),
	}
}

// IncrementSynced records a successfully updated key.
func (m *Metrics) IncrementSynced(trigger string) {
	m.Synced.WithLabelValues(trigger).Inc()
}

// IncrementItemFailures records a failed per-key update.
func (m *Metrics) IncrementItemFailures(trigger string) {
	m.ItemFailures.WithLabelValues(trigger).Inc()
}

// IncrementRenewals records a submitted renewal.
func (m *Metrics) IncrementRenewals() {
	m.Renewals.Inc()
}

// ObserveSync records the duration of a synchronization batch.
func (m *Metrics) ObserveSync(trigger string, start time.Time) {
	m.SyncDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
}
