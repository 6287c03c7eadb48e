// Package catalog holds the alias -> AliasSpec mapping (§3, §4.3):
// validated catalog entries backed by an immutable radix tree, built
// once and read lock-free for the runtime's lifetime.
package catalog

import (
	"github.com/samber/mo"

	"github.com/modelrt/modelrt/internal/runtimekey"
)

// WarmupPolicy controls when an alias's instance is loaded relative to
// runtime build.
type WarmupPolicy int

// Supported warmup policies. Lazy is the default when unspecified.
const (
	WarmupLazy WarmupPolicy = iota
	WarmupEager
	WarmupBackground
)

func (w WarmupPolicy) String() string {
	switch w {
	case WarmupEager:
		return "eager"
	case WarmupBackground:
		return "background"
	default:
		return "lazy"
	}
}

// RetryConfig bounds retry attempts for an alias's inference wrapper.
type RetryConfig struct {
	MaxAttempts      int
	InitialBackoffMS int
}

// AliasSpec is one catalog entry (§3 field table).
type AliasSpec struct {
	Alias       string
	Task        runtimekey.Task
	ProviderID  string
	ModelID     string
	Revision    mo.Option[string]
	Warmup      WarmupPolicy
	Required    bool
	Timeout     mo.Option[int]
	LoadTimeout int
	Retry       mo.Option[RetryConfig]
	Options     []byte
}

// DefaultLoadTimeoutSeconds is applied when a catalog entry omits
// load_timeout (§3).
const DefaultLoadTimeoutSeconds = 600
