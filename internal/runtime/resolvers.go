package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/modelrt/modelrt/internal/catalog"
	"github.com/modelrt/modelrt/internal/metrics"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/registry"
	"github.com/modelrt/modelrt/internal/reliability"
	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// loadFuncFor adapts provider.Load to registry.LoadFunc, downcasting
// the returned Handle to the capability interface task requires and
// recording the model_load.* metrics. This closure only runs on an
// actual load (registry.GetOrLoad never calls it on a cache hit), so
// the metrics it emits never double-count a cached resolution.
func loadFuncFor(task runtimekey.Task, sink metrics.Sink) registry.LoadFunc {
	return func(ctx context.Context, provider providerdir.Provider, spec providerdir.Spec) (providerdir.Handle, error) {
		start := time.Now()
		handle, err := provider.Load(ctx, spec)
		if err == nil {
			if mismatchErr := checkCapability(task, provider.ProviderID(), handle); mismatchErr != nil {
				err = mismatchErr
				handle = nil
			}
		}

		sink.ObserveDuration(metrics.ModelLoadDurationSeconds, time.Since(start), metrics.LoadLabels(provider.ProviderID(), string(task)))
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
		}
		sink.IncrCounter(metrics.ModelLoadTotal, metrics.LoadResultLabels(provider.ProviderID(), string(task), result))

		return handle, err
	}
}

func checkCapability(task runtimekey.Task, providerID string, handle providerdir.Handle) error {
	switch task {
	case runtimekey.TaskEmbed:
		if _, ok := handle.(providerdir.Embedder); !ok {
			return rterrors.CapabilityMismatch(fmt.Sprintf("provider %q did not return an Embedder for task %q", providerID, task))
		}
	case runtimekey.TaskRerank:
		if _, ok := handle.(providerdir.Reranker); !ok {
			return rterrors.CapabilityMismatch(fmt.Sprintf("provider %q did not return a Reranker for task %q", providerID, task))
		}
	case runtimekey.TaskGenerate:
		if _, ok := handle.(providerdir.Generator); !ok {
			return rterrors.CapabilityMismatch(fmt.Sprintf("provider %q did not return a Generator for task %q", providerID, task))
		}
	default:
		return rterrors.CapabilityMismatch(fmt.Sprintf("alias declares unknown task %q", task))
	}
	return nil
}

// buildSettings derives the reliability wrapper configuration for an
// alias from its catalog spec, to be cached once per alias on the
// LoadedInstance by resolveInstance's callers.
func buildSettings(spec catalog.AliasSpec, key runtimekey.Key) reliability.Settings {
	var s reliability.Settings
	s.Remote = providerdir.IsRemote(spec.ProviderID)
	s.Key = key
	if seconds, ok := spec.Timeout.Get(); ok {
		s.Timeout = mo.Some(time.Duration(seconds) * time.Second)
	}
	if retry, ok := spec.Retry.Get(); ok {
		s.Retry = mo.Some(reliability.RetryConfig{
			MaxAttempts:      retry.MaxAttempts,
			InitialBackoffMS: retry.InitialBackoffMS,
		})
	}
	return s
}

// Embedding resolves alias to an Embedder, wrapped with the
// reliability chain. Returns rterrors.CapabilityMismatch without
// touching the registry if alias's task is not "embed".
func (rt *Runtime) Embedding(ctx context.Context, alias string) (providerdir.Embedder, error) {
	inst, spec, err := rt.resolveInstance(ctx, alias, runtimekey.TaskEmbed)
	if err != nil {
		return nil, err
	}
	base := inst.Handle.(providerdir.Embedder)
	settings := inst.WrapperFor(alias, func() any { return buildSettings(spec, inst.Key) }).(reliability.Settings)
	return &embedderHandle{alias: alias, spec: spec, base: base, settings: settings, tracker: rt.breakers, sink: rt.sink}, nil
}

// Reranker resolves alias to a Reranker, wrapped with the reliability
// chain.
func (rt *Runtime) Reranker(ctx context.Context, alias string) (providerdir.Reranker, error) {
	inst, spec, err := rt.resolveInstance(ctx, alias, runtimekey.TaskRerank)
	if err != nil {
		return nil, err
	}
	base := inst.Handle.(providerdir.Reranker)
	settings := inst.WrapperFor(alias, func() any { return buildSettings(spec, inst.Key) }).(reliability.Settings)
	return &rerankerHandle{alias: alias, spec: spec, base: base, settings: settings, tracker: rt.breakers, sink: rt.sink}, nil
}

// Generator resolves alias to a Generator, wrapped with the
// reliability chain.
func (rt *Runtime) Generator(ctx context.Context, alias string) (providerdir.Generator, error) {
	inst, spec, err := rt.resolveInstance(ctx, alias, runtimekey.TaskGenerate)
	if err != nil {
		return nil, err
	}
	base := inst.Handle.(providerdir.Generator)
	settings := inst.WrapperFor(alias, func() any { return buildSettings(spec, inst.Key) }).(reliability.Settings)
	return &generatorHandle{alias: alias, spec: spec, base: base, settings: settings, tracker: rt.breakers, sink: rt.sink}, nil
}

type embedderHandle struct {
	alias    string
	spec     catalog.AliasSpec
	base     providerdir.Embedder
	settings reliability.Settings
	tracker  *reliability.Tracker
	sink     metrics.Sink
}

func (h *embedderHandle) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	call := reliability.Wrap(h.tracker, h.settings, func(ctx context.Context) ([][]float32, error) {
		return h.base.Embed(ctx, texts)
	})
	return recordInference(h.sink, h.alias, string(h.spec.Task), h.spec.ProviderID, call)(ctx)
}

func (h *embedderHandle) Dimensions() uint32 { return h.base.Dimensions() }
func (h *embedderHandle) ModelID() string    { return h.base.ModelID() }

type rerankerHandle struct {
	alias    string
	spec     catalog.AliasSpec
	base     providerdir.Reranker
	settings reliability.Settings
	tracker  *reliability.Tracker
	sink     metrics.Sink
}

func (h *rerankerHandle) Rerank(ctx context.Context, query string, docs []string) ([]providerdir.RankResult, error) {
	call := reliability.Wrap(h.tracker, h.settings, func(ctx context.Context) ([]providerdir.RankResult, error) {
		return h.base.Rerank(ctx, query, docs)
	})
	return recordInference(h.sink, h.alias, string(h.spec.Task), h.spec.ProviderID, call)(ctx)
}

type generatorHandle struct {
	alias    string
	spec     catalog.AliasSpec
	base     providerdir.Generator
	settings reliability.Settings
	tracker  *reliability.Tracker
	sink     metrics.Sink
}

func (h *generatorHandle) Generate(ctx context.Context, messages []string, opts providerdir.GenerateOptions) (providerdir.GenerateResult, error) {
	call := reliability.Wrap(h.tracker, h.settings, func(ctx context.Context) (providerdir.GenerateResult, error) {
		return h.base.Generate(ctx, messages, opts)
	})
	return recordInference(h.sink, h.alias, string(h.spec.Task), h.spec.ProviderID, call)(ctx)
}

// recordInference wraps call with the model_inference.* metrics,
// timing and counting the whole reliability-wrapped invocation
// (including any retries the wrapper performs internally).
func recordInference[T any](sink metrics.Sink, alias, task, providerID string, call reliability.Call[T]) reliability.Call[T] {
	return func(ctx context.Context) (T, error) {
		start := time.Now()
		result, err := call(ctx)
		sink.ObserveDuration(metrics.ModelInferenceDurationSeconds, time.Since(start), metrics.InferenceLabels(alias, task, providerID))
		status := metrics.ResultSuccess
		if err != nil {
			status = metrics.ResultFailure
		}
		sink.IncrCounter(metrics.ModelInferenceTotal, metrics.InferenceResultLabels(alias, task, providerID, status))
		return result, err
	}
}
