// Package registry holds the live, build-time-and-beyond
// RuntimeKey -> LoadedInstance map (§3, §4.4): the read-heavy
// structure that guarantees at most one provider.Load in flight per
// key and that every caller resolving the same key observes the same
// instance once it is loaded. A failed load is not cached and its
// error is returned only to the caller that ran it; each caller that
// was waiting on the load-lock then runs its own provider.Load.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/modelrt/modelrt/internal/obslog"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// LoadedInstance is the opaque, capability-erased result of a
// successful provider.Load, plus the bookkeeping §3 requires.
type LoadedInstance struct {
	Handle     providerdir.Handle
	ProviderID string
	Key        runtimekey.Key
	CreatedAt  time.Time

	wrapperMu sync.Mutex
	wrappers  map[string]any
}

// WrapperFor returns the cached per-alias reliability value for alias
// (internal/runtime stores the alias's reliability.Settings here),
// building it with build and caching the result if this is the first
// call for that alias on this instance. Entries are keyed by alias
// (not by RuntimeKey) because two aliases that share one RuntimeKey
// may still declare different per-alias timeout/retry settings.
func (li *LoadedInstance) WrapperFor(alias string, build func() any) any {
	li.wrapperMu.Lock()
	defer li.wrapperMu.Unlock()

	if li.wrappers == nil {
		li.wrappers = make(map[string]any)
	}
	if w, ok := li.wrappers[alias]; ok {
		return w
	}
	w := build()
	li.wrappers[alias] = w
	return w
}

// Registry is the concurrent RuntimeKey -> LoadedInstance map.
type Registry struct {
	mu        sync.RWMutex
	instances map[runtimekey.Key]*LoadedInstance

	locksMu sync.Mutex
	locks   map[runtimekey.Key]*semaphore.Weighted

	logger zerolog.Logger
}

// New returns an empty registry that logs load attempts to the
// provided logger. A zero-value logger is a valid, silent sink.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		instances: make(map[runtimekey.Key]*LoadedInstance),
		locks:     make(map[runtimekey.Key]*semaphore.Weighted),
		logger:    logger,
	}
}

// LoadFunc invokes a provider's Load and downcasts the resulting
// Handle to the capability interface the caller's task expects,
// returning rterrors.CapabilityMismatch on a downcast failure.
// internal/runtime supplies this, since only it knows which
// capability interface corresponds to which task.
type LoadFunc func(ctx context.Context, provider providerdir.Provider, spec providerdir.Spec) (providerdir.Handle, error)

// GetOrLoad implements the §4.4 load contract. loadTimeoutSeconds of
// 0 falls back to catalog.DefaultLoadTimeoutSeconds's value (600); the
// caller is expected to pass spec.LoadTimeout already defaulted.
func (r *Registry) GetOrLoad(
	ctx context.Context,
	key runtimekey.Key,
	provider providerdir.Provider,
	spec providerdir.Spec,
	loadTimeoutSeconds int,
	load LoadFunc,
) (*LoadedInstance, error) {
	if inst, ok := r.fastGet(key); ok {
		return inst, nil
	}

	// A plain sync.Mutex's Lock cannot be abandoned, so a waiter queued
	// behind an in-progress load for this key would ignore ctx
	// cancellation (§5 Cancellation). A weighted semaphore of size 1
	// gives the same mutual-exclusion guarantee with a ctx-aware
	// Acquire: a cancelled waiter returns ctx.Err() promptly instead of
	// blocking until its turn.
	lock := r.loadLockFor(key)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer lock.Release(1)

	if inst, ok := r.fastGet(key); ok {
		return inst, nil
	}

	// The load runs against its own background-derived context, not ctx: a
	// waiter that owns the load-lock does it on behalf of every caller
	// blocked behind it, including ones that arrive after this call. If it
	// inherited ctx, the first caller cancelling would abort a load the
	// second caller is still waiting on.
	loadCtx, logger := obslog.WithLoadID(context.Background(), r.logger, "")
	logger = logger.With().Str("provider", provider.ProviderID()).Str("runtime_key", key.String()).Logger()
	logger.Debug().Msg("loading model instance")

	if loadTimeoutSeconds <= 0 {
		loadTimeoutSeconds = 600
	}
	loadCtx, cancel := context.WithTimeout(loadCtx, time.Duration(loadTimeoutSeconds)*time.Second)
	defer cancel()

	handle, err := load(loadCtx, provider, spec)
	if err != nil {
		if loadCtx.Err() != nil {
			logger.Warn().Msg("model load timed out")
			return nil, rterrors.Timeout
		}
		logger.Warn().Err(err).Msg("model load failed")
		return nil, err
	}

	inst := &LoadedInstance{
		Handle:     handle,
		ProviderID: provider.ProviderID(),
		Key:        key,
		CreatedAt:  time.Now(),
	}

	r.mu.Lock()
	r.instances[key] = inst
	r.mu.Unlock()

	logger.Info().Msg("model instance loaded")
	return inst, nil
}

func (r *Registry) fastGet(key runtimekey.Key) (*LoadedInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[key]
	return inst, ok
}

// loadLockFor returns the cooperative per-key lock for key, creating it
// under a short critical section if this is the first caller to ask
// for it. The lock map itself is never held while a Load runs.
func (r *Registry) loadLockFor(key runtimekey.Key) *semaphore.Weighted {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[key]
	if !ok {
		lock = semaphore.NewWeighted(1)
		r.locks[key] = lock
	}
	return lock
}

// Len returns the number of successfully loaded instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Get returns the instance for key without attempting a load.
func (r *Registry) Get(key runtimekey.Key) (*LoadedInstance, bool) {
	return r.fastGet(key)
}
