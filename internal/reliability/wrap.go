package reliability

import (
	"context"
	"time"

	"github.com/samber/mo"

	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// RetryConfig bounds the Retry wrapper's attempt count and backoff.
type RetryConfig struct {
	MaxAttempts      int
	InitialBackoffMS int
}

// Settings carries the per-alias reliability parameters (§4.5): they
// are derived once per alias and cached on the LoadedInstance, since
// they come from the AliasSpec, not the RuntimeKey. The wrapper chain
// itself is composed from them by Wrap on every call.
type Settings struct {
	Timeout mo.Option[time.Duration]
	Retry   mo.Option[RetryConfig]
	Remote  bool
	Key     runtimekey.Key
}

// Call is the raw capability invocation a wrapper guards: an Embed,
// Rerank, or Generate call reduced to its context-in, error-out shape.
// internal/runtime adapts each concrete capability method to this
// shape with a closure capturing the rest of the call's arguments.
type Call[T any] func(ctx context.Context) (T, error)

// Wrap composes Retry -> CircuitBreaker (remote only) -> Timeout around
// call, per §4.5's fixed wrapper order.
func Wrap[T any](tracker *Tracker, settings Settings, call Call[T]) Call[T] {
	wrapped := withTimeout(settings.Timeout, call)
	if settings.Remote {
		wrapped = withCircuitBreaker(tracker, settings.Key, wrapped)
	}
	wrapped = withRetry(settings.Retry, wrapped)
	return wrapped
}

func withTimeout[T any](timeout mo.Option[time.Duration], call Call[T]) Call[T] {
	d, ok := timeout.Get()
	if !ok {
		return call
	}
	return func(ctx context.Context) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		result, err := call(callCtx)
		if err != nil && callCtx.Err() != nil {
			var zero T
			return zero, rterrors.Timeout
		}
		return result, err
	}
}

func withCircuitBreaker[T any](tracker *Tracker, key runtimekey.Key, call Call[T]) Call[T] {
	return func(ctx context.Context) (T, error) {
		var result T
		err := tracker.guard(key, func() error {
			var callErr error
			result, callErr = call(ctx)
			return callErr
		})
		return result, err
	}
}

func withRetry[T any](retry mo.Option[RetryConfig], call Call[T]) Call[T] {
	cfg, ok := retry.Get()
	if !ok {
		return call
	}
	return func(ctx context.Context) (T, error) {
		var lastResult T
		var lastErr error
		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(cfg.InitialBackoffMS) * time.Millisecond * time.Duration(1<<uint(attempt-1))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return lastResult, lastErr
				}
			}
			lastResult, lastErr = call(ctx)
			if lastErr == nil || !rterrors.IsRetryable(lastErr) {
				return lastResult, lastErr
			}
		}
		return lastResult, lastErr
	}
}
