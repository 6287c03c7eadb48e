// Package providerdir holds the process-wide provider_id -> Provider
// directory (§3, §6.1) and a database/sql-style blank-import
// registration idiom: a provider package registers a Factory under its
// id at init time, and cmd/prefetch (or any host) never imports a
// concrete provider package directly.
package providerdir

import (
	"context"

	"github.com/modelrt/modelrt/internal/runtimekey"
)

// HealthState is the closed set of health states a provider reports.
type HealthState int

// Supported health states.
const (
	HealthHealthy HealthState = iota
	HealthDegraded
	HealthUnhealthy
)

// HealthStatus is a provider's self-reported health.
type HealthStatus struct {
	State  HealthState
	Reason string
}

// Capabilities describes which tasks a provider's Load can satisfy.
type Capabilities struct {
	SupportedTasks []runtimekey.Task
}

// Supports reports whether the provider declares support for task.
func (c Capabilities) Supports(task runtimekey.Task) bool {
	for _, t := range c.SupportedTasks {
		if t == task {
			return true
		}
	}
	return false
}

// Handle is the opaque capability-erased value a Provider.Load returns.
// Callers downcast it to Embedder, Reranker, or Generator based on the
// AliasSpec's task.
type Handle interface{}

// Spec is the subset of AliasSpec a Provider needs to load a model.
// internal/runtime builds this from the full AliasSpec.
type Spec struct {
	Alias       string
	ModelID     string
	Revision    string
	Options     []byte
	LoadTimeout int
}

// Provider is the external interface every model backend implements.
type Provider interface {
	// ProviderID returns this provider's identity, of form
	// "<locality>/<name>" where locality is "local" or "remote".
	ProviderID() string

	// Capabilities reports which tasks this provider can Load.
	Capabilities() Capabilities

	// Load returns a Handle whose concrete capability matches spec's
	// task, or fails with a capability-mismatch-classified error.
	Load(ctx context.Context, spec Spec) (Handle, error)

	// Health reports the provider's current self-assessed health.
	Health(ctx context.Context) HealthStatus
}

// Warmer is an optional extension a Provider may implement for
// idempotent pre-initialization (credential probe, client pool build).
// It is detected via a type assertion, never required.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// IsRemote reports whether a provider_id identifies a remote provider
// (locality prefix "remote/"), the population the circuit breaker
// applies to.
func IsRemote(providerID string) bool {
	return len(providerID) >= 7 && providerID[:7] == "remote/"
}
