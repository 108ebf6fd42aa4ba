package event

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/eventroute/internal/registry"
)

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	mode        Mode
	workerCount int
	queueSize   int
	timeout     time.Duration
	logger      zerolog.Logger
	metrics     *Metrics
	registry    []registry.Option
}

func defaultBusConfig() busConfig {
	return busConfig{
		mode:        ModeSync,
		workerCount: 10,
		queueSize:   10000,
		timeout:     5 * time.Second,
		logger:      zerolog.Nop(),
	}
}

// WithMode selects sync or async dispatch.
func WithMode(m Mode) BusOption {
	return func(c *busConfig) {
		c.mode = m
	}
}

// WithAsyncWorkerCount sets the number of async worker goroutines. It also
// bounds the concurrency of NotifyAll.
func WithAsyncWorkerCount(count int) BusOption {
	return func(c *busConfig) {
		if count > 0 {
			c.workerCount = count
		}
	}
}

// WithAsyncQueueSize sets the async queue capacity.
func WithAsyncQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithDefaultTimeout bounds each handler execution. Zero disables it.
func WithDefaultTimeout(timeout time.Duration) BusOption {
	return func(c *busConfig) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger for handler failures.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) BusOption {
	return func(c *busConfig) {
		c.metrics = m
	}
}

// WithRegistryOptions passes options to the bus's registry.
func WithRegistryOptions(opts ...registry.Option) BusOption {
	return func(c *busConfig) {
		c.registry = append(c.registry, opts...)
	}
}
