package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup paths reported in the lookups counter.
const (
	PathDirect = "direct"
	PathCache  = "cache"
	PathScan   = "scan"
)

// Metrics holds the Prometheus collectors for a registry.
type Metrics struct {
	Lookups            *prometheus.CounterVec
	CacheInvalidations prometheus.Counter
	Registrations      prometheus.Gauge
}

// NewMetrics creates the registry collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventroute_registry_lookups_total",
			Help: "Total number of registry lookups by resolution path",
		}, []string{"path"}),
		CacheInvalidations: f.NewCounter(prometheus.CounterOpts{
			Name: "eventroute_registry_cache_invalidations_total",
			Help: "Total number of times the pattern cache was dropped",
		}),
		Registrations: f.NewGauge(prometheus.GaugeOpts{
			Name: "eventroute_registry_registrations",
			Help: "Current number of live registrations",
		}),
	}
}

func (m *Metrics) lookup(path string) {
	if m != nil {
		m.Lookups.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) invalidated() {
	if m != nil {
		m.CacheInvalidations.Inc()
	}
}

func (m *Metrics) setRegistrations(n int) {
	if m != nil {
		m.Registrations.Set(float64(n))
	}
}
