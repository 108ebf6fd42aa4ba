package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/dshills/eventroute/internal/config"
	"github.com/dshills/eventroute/internal/event"
	"github.com/dshills/eventroute/internal/logging"
	"github.com/dshills/eventroute/internal/registry"
)

// app carries what every command needs after configuration.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	// metrics is nil unless metrics.enabled is set.
	metrics *prometheus.Registry
}

func newApp(cfg *config.Config, logger zerolog.Logger) *app {
	a := &app{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		a.metrics = prometheus.NewRegistry()
	}
	return a
}

// newBus builds an event bus configured from the dispatch and registry
// settings.
func (a *app) newBus() *event.Bus {
	regOpts := []registry.Option{
		registry.WithCache(a.cfg.Registry.Cache),
		registry.WithLogger(logging.For("registry")),
	}
	busOpts := []event.BusOption{
		event.WithMode(event.Mode(a.cfg.Dispatch.Mode)),
		event.WithAsyncWorkerCount(a.cfg.Dispatch.Workers),
		event.WithAsyncQueueSize(a.cfg.Dispatch.QueueSize),
		event.WithDefaultTimeout(a.cfg.Dispatch.Timeout),
		event.WithLogger(logging.For("bus")),
	}
	if a.metrics != nil {
		regOpts = append(regOpts, registry.WithMetrics(registry.NewMetrics(a.metrics)))
		busOpts = append(busOpts, event.WithMetrics(event.NewMetrics(a.metrics)))
	}
	busOpts = append(busOpts, event.WithRegistryOptions(regOpts...))
	return event.NewBus(busOpts...)
}

// writeMetrics writes the collected metrics in the Prometheus text format.
// It does nothing when metrics are disabled.
func (a *app) writeMetrics(w io.Writer) error {
	if a.metrics == nil {
		return nil
	}
	families, err := a.metrics.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}
