package reliability

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

func testKey() runtimekey.Key {
	return runtimekey.Key{Task: runtimekey.TaskEmbed, ProviderID: "remote/x", ModelID: "m"}
}

func TestTrackerStartsClosed(t *testing.T) {
	tracker := NewTracker()
	key := testKey()
	if tracker.State(key) != gobreaker.StateClosed {
		t.Errorf("State() = %v, want StateClosed for an unused key", tracker.State(key))
	}
}

func TestTrackerGuardPassesThroughResult(t *testing.T) {
	tracker := NewTracker()
	key := testKey()
	err := tracker.guard(key, func() error { return nil })
	if err != nil {
		t.Fatalf("guard() error = %v", err)
	}
}

func TestTrackerUnauthorizedDoesNotCountAsFailure(t *testing.T) {
	tracker := NewTracker()
	key := testKey()

	for i := 0; i < FailureThreshold*2; i++ {
		err := tracker.guard(key, func() error { return rterrors.Unauthorized })
		if !errors.Is(err, rterrors.Unauthorized) {
			t.Fatalf("guard() error = %v, want rterrors.Unauthorized", err)
		}
	}
	if tracker.State(key) != gobreaker.StateClosed {
		t.Errorf("State() = %v, want StateClosed (Unauthorized never trips the breaker)", tracker.State(key))
	}
}

func TestTrackerRetryableFailuresTripBreaker(t *testing.T) {
	tracker := NewTracker()
	key := testKey()

	for i := 0; i < FailureThreshold; i++ {
		_ = tracker.guard(key, func() error { return rterrors.Unavailable })
	}
	if tracker.State(key) != gobreaker.StateOpen {
		t.Errorf("State() = %v, want StateOpen after %d consecutive retryable failures", tracker.State(key), FailureThreshold)
	}

	err := tracker.guard(key, func() error { return nil })
	if !errors.Is(err, rterrors.Unavailable) {
		t.Fatalf("guard() on open breaker error = %v, want rterrors.Unavailable", err)
	}
}

func TestTrackerIsolatesKeys(t *testing.T) {
	tracker := NewTracker()
	keyA := runtimekey.Key{Task: runtimekey.TaskEmbed, ProviderID: "remote/a", ModelID: "m"}
	keyB := runtimekey.Key{Task: runtimekey.TaskEmbed, ProviderID: "remote/b", ModelID: "m"}

	for i := 0; i < FailureThreshold; i++ {
		_ = tracker.guard(keyA, func() error { return rterrors.Unavailable })
	}
	if tracker.State(keyA) != gobreaker.StateOpen {
		t.Fatalf("State(keyA) = %v, want StateOpen", tracker.State(keyA))
	}
	if tracker.State(keyB) != gobreaker.StateClosed {
		t.Errorf("State(keyB) = %v, want StateClosed (breakers must be per-key)", tracker.State(keyB))
	}
}
