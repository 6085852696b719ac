package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for event propagation.
type Metrics struct {
	Emitted  *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// New creates a new Metrics instance with all propagation metrics registered.
func New() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domopass_propagation_events_total",
			Help: "Total number of propagation events emitted, by signal",
		}, []string{"signal"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domopass_propagation_failures_total",
			Help: "Total number of propagation events whose handlers failed, by signal",
		}, []string{"signal"}),
	}
}

// IncrementEmitted records an emitted event.
func (m *Metrics) IncrementEmitted(signal string) {
	m.Emitted.WithLabelValues(signal).Inc()
}

// IncrementFailures records an event whose handler set failed.
func (m *Metrics) IncrementFailures(signal string) {
	m.Failures.WithLabelValues(signal).Inc()
}
