// Package rterrors defines the stable error taxonomy returned by every
// public operation in the runtime. Callers are expected to classify
// failures with errors.As/errors.Is against these types rather than by
// matching message text.
package rterrors

import (
	"errors"
	"fmt"
)

// Sentinel errors with no associated payload.
var (
	// RateLimited is returned when a remote provider responds 429.
	RateLimited = errors.New("rterrors: rate limited")

	// Unauthorized is returned when a remote provider responds 401 or 403.
	Unauthorized = errors.New("rterrors: unauthorized")

	// Timeout is returned when a load or inference deadline is exceeded.
	Timeout = errors.New("rterrors: timeout")

	// Unavailable is returned when a circuit is open or a remote provider
	// responds 5xx.
	Unavailable = errors.New("rterrors: unavailable")
)

// ConfigError reports a catalog or option validation failure: unknown
// alias, bad numeric bound, schema violation, and similar build-time
// problems.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rterrors: config: %s", e.Msg)
}

// Config constructs a ConfigError.
func Config(msg string) error {
	return &ConfigError{Msg: msg}
}

// Configf constructs a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ProviderNotFoundError reports that an AliasSpec references a
// provider_id that was never registered.
type ProviderNotFoundError struct {
	ProviderID string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("rterrors: provider not found: %s", e.ProviderID)
}

// ProviderNotFound constructs a ProviderNotFoundError.
func ProviderNotFound(providerID string) error {
	return &ProviderNotFoundError{ProviderID: providerID}
}

// CapabilityMismatchError reports that a loaded handle does not expose
// the capability its AliasSpec's task requires.
type CapabilityMismatchError struct {
	Msg string
}

func (e *CapabilityMismatchError) Error() string {
	return fmt.Sprintf("rterrors: capability mismatch: %s", e.Msg)
}

// CapabilityMismatch constructs a CapabilityMismatchError.
func CapabilityMismatch(msg string) error {
	return &CapabilityMismatchError{Msg: msg}
}

// LoadError reports a provider initialization failure (weight loading,
// client construction, warmup probe).
type LoadError struct {
	Msg string
	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rterrors: load: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("rterrors: load: %s", e.Msg)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load constructs a LoadError, optionally wrapping an underlying cause.
func Load(msg string, cause error) error {
	return &LoadError{Msg: msg, Err: cause}
}

// APIError reports a remote transport or response-shape failure that
// the §4.5 HTTP classification does not map to a more specific tag.
type APIError struct {
	Msg string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rterrors: api error: %s", e.Msg)
}

// API constructs an APIError.
func API(msg string) error {
	return &APIError{Msg: msg}
}

// InferenceError reports a model-pipeline failure surfaced at call
// time (as opposed to load time).
type InferenceError struct {
	Msg string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("rterrors: inference error: %s", e.Msg)
}

// Inference constructs an InferenceError.
func Inference(msg string) error {
	return &InferenceError{Msg: msg}
}

// IsRetryable reports whether err belongs to the retryable set the
// reliability wrappers recover from: RateLimited, Timeout, Unavailable.
// Every other kind, including the zero value (nil), is not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, RateLimited) || errors.Is(err, Timeout) || errors.Is(err, Unavailable)
}
