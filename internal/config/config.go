package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a
// double underscore: EVENTROUTE_DISPATCH__WORKERS=4.
const EnvPrefix = "EVENTROUTE_"

// Dispatch modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config is the full eventroute configuration.
type Config struct {
	Registry RegistryConfig `koanf:"registry"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Log      LogConfig      `koanf:"log"`
	Routes   RoutesConfig   `koanf:"routes"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// RegistryConfig configures the selector registry.
type RegistryConfig struct {
	// Cache enables the pattern lookup cache.
	Cache bool `koanf:"cache"`
}

// DispatchConfig configures handler delivery.
type DispatchConfig struct {
	Mode      string        `koanf:"mode"`
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RoutesConfig points at a route table.
type RoutesConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// MetricsConfig toggles Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"registry.cache":      true,
		"dispatch.mode":       ModeSync,
		"dispatch.workers":    10,
		"dispatch.queue_size": 10000,
		"dispatch.timeout":    "5s",
		"log.level":           "warn",
		"log.format":          "console",
		"routes.path":         "",
		"routes.watch":        false,
		"metrics.enabled":     false,
	}
}

// Load builds a Config. An empty path skips the file layer; a missing
// file is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalid, filepath.Ext(path))
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Dispatch.Mode {
	case ModeSync, ModeAsync:
	default:
		return fmt.Errorf("%w: dispatch.mode must be %q or %q, got %q", ErrInvalid, ModeSync, ModeAsync, c.Dispatch.Mode)
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("%w: dispatch.workers must be positive", ErrInvalid)
	}
	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("%w: dispatch.queue_size must be positive", ErrInvalid)
	}
	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("%w: dispatch.timeout cannot be negative", ErrInvalid)
	}
	if c.Routes.Watch && c.Routes.Path == "" {
		return fmt.Errorf("%w: routes.watch requires routes.path", ErrInvalid)
	}
	return nil
}
