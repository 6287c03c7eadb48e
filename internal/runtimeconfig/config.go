// Package runtimeconfig loads the Builder's optional global defaults
// (default warmup policy, circuit breaker overrides, eager-load
// concurrency, logging) from a YAML or TOML file. This is distinct
// from the catalog (internal/catalog), which is always JSON and is
// never hot-reloaded — catalog immutability is a core invariant, so
// unlike the teacher's config.Watcher this package has no file-watch
// component.
package runtimeconfig

import (
	"github.com/modelrt/modelrt/internal/obslog"
)

// Config is the Builder-wide defaults document.
type Config struct {
	Logging              obslog.Config          `yaml:"logging" toml:"logging"`
	DefaultWarmup        string                 `yaml:"default_warmup" toml:"default_warmup"`
	EagerLoadConcurrency int                    `yaml:"eager_load_concurrency" toml:"eager_load_concurrency"`
	CircuitBreaker       CircuitBreakerDefaults `yaml:"circuit_breaker" toml:"circuit_breaker"`
}

// CircuitBreakerDefaults overrides the §4.5 fixed breaker defaults
// (failure_threshold=5, open_wait_seconds=10) at the process level.
// Zero values mean "use the built-in default".
type CircuitBreakerDefaults struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
	OpenWaitSeconds  int `yaml:"open_wait_seconds" toml:"open_wait_seconds"`
}

// DefaultEagerLoadConcurrency bounds concurrent eager-alias loads at
// Builder.Build() time when the document doesn't set one.
const DefaultEagerLoadConcurrency = 4

// GetEagerLoadConcurrency returns EagerLoadConcurrency or the package
// default if unset or non-positive.
func (c Config) GetEagerLoadConcurrency() int {
	if c.EagerLoadConcurrency <= 0 {
		return DefaultEagerLoadConcurrency
	}
	return c.EagerLoadConcurrency
}
