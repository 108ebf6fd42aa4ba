// Package config provides the configuration for eventroute binaries.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← EVENTROUTE_DISPATCH__WORKERS=4
//	├─────────────────────────────┤
//	│  2. Config File             │  ← --config eventroute.toml / .yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Nested keys are separated by dots in files and by a double underscore in
// environment variable names. The merged result is decoded into Config and
// validated; an invalid value fails Load with ErrInvalid.
//
// # Keys
//
//	registry.cache       enable the pattern lookup cache (true)
//	dispatch.mode        "sync" or "async" ("sync")
//	dispatch.workers     async worker goroutines (10)
//	dispatch.queue_size  async queue capacity (10000)
//	dispatch.timeout     per-handler timeout, 0 disables (5s)
//	log.level            trace, debug, info, warn, error, off ("warn")
//	log.format           "console" or "json" ("console")
//	routes.path          route table file
//	routes.watch         reload the route table on change (false)
//	metrics.enabled      collect Prometheus metrics (false)
package config
