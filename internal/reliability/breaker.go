// Package reliability composes the §4.5 wrapper chain — Retry,
// CircuitBreaker, and Timeout — around a raw provider capability call.
package reliability

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// FailureThreshold and OpenWait are the fixed §4.5 circuit breaker
// defaults. Providers do not currently override them; a provider
// override hook is a natural extension point but no component needs
// one yet.
const (
	FailureThreshold = 5
	OpenWait         = 10 * time.Second
)

// Tracker owns one circuit breaker per RuntimeKey, lazily created the
// same way the teacher's health.Tracker creates one CircuitBreaker per
// provider name: a read-locked fast path, a write-locked
// double-checked slow path.
type Tracker struct {
	mu               sync.RWMutex
	breakers         map[runtimekey.Key]*gobreaker.TwoStepCircuitBreaker[struct{}]
	failureThreshold uint32
	openWait         time.Duration
}

// NewTracker returns an empty breaker tracker using the fixed §4.5
// defaults (FailureThreshold, OpenWait).
func NewTracker() *Tracker {
	return NewTrackerWithConfig(FailureThreshold, OpenWait)
}

// NewTrackerWithConfig returns an empty breaker tracker using
// process-level overrides of the §4.5 defaults, as loaded from
// internal/runtimeconfig.Config.CircuitBreaker. A zero failureThreshold
// or openWait falls back to the package default.
func NewTrackerWithConfig(failureThreshold int, openWait time.Duration) *Tracker {
	if failureThreshold <= 0 {
		failureThreshold = FailureThreshold
	}
	if openWait <= 0 {
		openWait = OpenWait
	}
	return &Tracker{
		breakers:         make(map[runtimekey.Key]*gobreaker.TwoStepCircuitBreaker[struct{}]),
		failureThreshold: uint32(failureThreshold),
		openWait:         openWait,
	}
}

func (t *Tracker) getOrCreate(key runtimekey.Key) *gobreaker.TwoStepCircuitBreaker[struct{}] {
	t.mu.RLock()
	cb, ok := t.breakers[key]
	t.mu.RUnlock()
	if ok {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok = t.breakers[key]; ok {
		return cb
	}

	threshold := t.failureThreshold
	openWait := t.openWait
	settings := gobreaker.Settings{
		Name:        key.String(),
		MaxRequests: 1,
		Timeout:     openWait,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !rterrors.IsRetryable(err)
		},
	}
	cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)
	t.breakers[key] = cb
	return cb
}

// State reports the current breaker state for key, or gobreaker's
// closed zero value if no breaker has been created for it yet.
func (t *Tracker) State(key runtimekey.Key) gobreaker.State {
	t.mu.RLock()
	cb, ok := t.breakers[key]
	t.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// guard runs fn through key's circuit breaker: an open breaker returns
// rterrors.Unavailable without calling fn; otherwise fn runs and its
// error (if any) is fed back into the breaker's accounting.
func (t *Tracker) guard(key runtimekey.Key, fn func() error) error {
	cb := t.getOrCreate(key)
	done, err := cb.Allow()
	if err != nil {
		return rterrors.Unavailable
	}
	callErr := fn()
	done(callErr)
	return callErr
}
