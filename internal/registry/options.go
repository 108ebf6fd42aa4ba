package registry

import "github.com/rs/zerolog"

// Option configures a Registry.
type Option func(*config)

type config struct {
	cache   bool
	logger  zerolog.Logger
	metrics *Metrics
	onMiss  func(key any)
}

func defaultConfig() config {
	return config{
		cache:  true,
		logger: zerolog.Nop(),
	}
}

// WithCache enables or disables the pattern cache. With caching off every
// pattern lookup scans all registrations.
func WithCache(enabled bool) Option {
	return func(c *config) {
		c.cache = enabled
	}
}

// WithLogger sets the logger used for trace and debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithMissHook sets a function called after every lookup that had to scan
// the registrations. It runs outside the registry lock.
func WithMissHook(fn func(key any)) Option {
	return func(c *config) {
		c.onMiss = fn
	}
}
