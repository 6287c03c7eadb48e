// Package metrics defines the process-level metric sink interface
// (§6.5) the runtime emits well-known model-load and model-inference
// measurements to. Concrete sinks (Prometheus, StatsD, etc.) live
// outside this module; the core only ever depends on this interface.
package metrics

import "time"

// Well-known metric names emitted by the runtime. Sinks are free to
// ignore any name they don't recognize.
const (
	// ModelLoadDurationSeconds is a histogram, labels: provider, task.
	ModelLoadDurationSeconds = "model_load.duration_seconds"

	// ModelLoadTotal is a counter, labels: provider, task, result.
	ModelLoadTotal = "model_load.total"

	// ModelInferenceDurationSeconds is a histogram, labels: alias, task, provider.
	ModelInferenceDurationSeconds = "model_inference.duration_seconds"

	// ModelInferenceTotal is a counter, labels: alias, task, provider, status.
	ModelInferenceTotal = "model_inference.total"
)

// Result is the closed set of outcome labels for *.total counters.
type Result string

// Supported result labels.
const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Sink is the metric emission surface the runtime calls into. Every
// method is expected to be safe for concurrent use and non-blocking;
// a sink that needs to do expensive work should buffer internally.
type Sink interface {
	// ObserveDuration records a histogram observation for name with the
	// given label set.
	ObserveDuration(name string, d time.Duration, labels map[string]string)

	// IncrCounter increments a counter for name with the given label set.
	IncrCounter(name string, labels map[string]string)
}

// NoopSink discards every observation. It is the default sink when a
// Builder is not given one, matching §6.5's "unknown sinks are
// silently accepted" framing — a sink that accepts everything and
// does nothing is a valid implementation of the same contract.
type NoopSink struct{}

// ObserveDuration implements Sink.
func (NoopSink) ObserveDuration(string, time.Duration, map[string]string) {}

// IncrCounter implements Sink.
func (NoopSink) IncrCounter(string, map[string]string) {}

var _ Sink = NoopSink{}

// LoadLabels builds the label set for model_load.* metrics.
func LoadLabels(provider, task string) map[string]string {
	return map[string]string{"provider": provider, "task": task}
}

// LoadResultLabels builds the label set for model_load.total.
func LoadResultLabels(provider, task string, result Result) map[string]string {
	return map[string]string{"provider": provider, "task": task, "result": string(result)}
}

// InferenceLabels builds the label set for model_inference.duration_seconds.
func InferenceLabels(alias, task, provider string) map[string]string {
	return map[string]string{"alias": alias, "task": task, "provider": provider}
}

// InferenceResultLabels builds the label set for model_inference.total,
// whose outcome label is named "status" per §6.5, unlike
// model_load.total's "result".
func InferenceResultLabels(alias, task, provider string, status Result) map[string]string {
	return map[string]string{"alias": alias, "task": task, "provider": provider, "status": string(status)}
}
