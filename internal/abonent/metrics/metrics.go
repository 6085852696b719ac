package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the abonent module.
type Metrics struct {
	Registered     prometheus.Counter
	Updated        prometheus.Counter
	Unregistered   prometheus.Counter
	UpdateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all abonent module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domopass_abonents_registered_total",
			Help: "Total number of abonents registered",
		}),
		Updated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domopass_abonents_updated_total",
			Help: "Total number of abonent updates applied",
		}),
		Unregistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domopass_abonents_unregistered_total",
			Help: "Total number of abonents unregistered",
		}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "domopass_abonent_update_duration_seconds",
			Help:    "Duration of abonent update operations including propagation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	m.Registered.Inc()
}

// IncrementUpdated records a successful update.
func (m *Metrics) IncrementUpdated() {
	m.Updated.Inc()
}

// IncrementUnregistered records a successful unregistration.
func (m *Metrics) IncrementUnregistered() {
	m.Unregistered.Inc()
}

// ObserveUpdate records the duration of an update operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}
