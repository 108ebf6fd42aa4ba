package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes reported in the deliveries counter.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeSkipped = "skipped"
	OutcomeDropped = "dropped"
)

// Metrics holds the Prometheus collectors for a bus.
type Metrics struct {
	Notified   prometheus.Counter
	Deliveries *prometheus.CounterVec
	Duration   prometheus.Histogram
}

// NewMetrics creates the bus collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Notified: f.NewCounter(prometheus.CounterOpts{
			Name: "eventroute_bus_notify_total",
			Help: "Total number of events notified",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventroute_bus_deliveries_total",
			Help: "Handler deliveries by outcome",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventroute_bus_handler_duration_seconds",
			Help:    "Handler execution time",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) notified() {
	if m != nil {
		m.Notified.Inc()
	}
}

func (m *Metrics) delivered(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeOK, OutcomeError, OutcomePanic:
		m.Duration.Observe(seconds)
	}
}
