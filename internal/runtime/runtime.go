// Package runtime is the facade of §4.6: the Builder that assembles a
// catalog, provider directory, and registry into one immutable
// runtime value, the warmup orchestration that runs at build time,
// and the typed resolvers (Embedding, Reranker, Generator) host code
// calls afterward.
package runtime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/modelrt/modelrt/internal/catalog"
	"github.com/modelrt/modelrt/internal/metrics"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/registry"
	"github.com/modelrt/modelrt/internal/reliability"
	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// Runtime is the built, immutable-after-construction value returned by
// Builder.Build. It lives until Close is called (typically at process
// shutdown); there is no explicit eviction (§5 Resource release).
type Runtime struct {
	injector *do.RootScope

	catalog   *catalog.Catalog
	directory *providerdir.Directory
	registry  *registry.Registry
	keys      *runtimekey.Deriver
	breakers  *reliability.Tracker
	sink      metrics.Sink
	logger    zerolog.Logger
}

// ContainsAlias reports whether alias has a catalog entry (§4.6
// Auxiliary operations).
func (rt *Runtime) ContainsAlias(alias string) bool {
	return rt.catalog.Contains(alias)
}

// Close shuts down the runtime's injector scope, which holds only the
// services wired by wireInjector. Providers and the instances they
// loaded are not in that scope: Close neither stops providers nor
// releases registry entries (§5 Resource release — no explicit
// eviction).
func (rt *Runtime) Close() error {
	report := rt.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("runtime: shutdown: %s", report.Error())
	}
	return nil
}

func toKeySpec(spec catalog.AliasSpec) runtimekey.Spec {
	revision, _ := spec.Revision.Get()
	return runtimekey.Spec{
		Task:        spec.Task,
		ProviderID:  spec.ProviderID,
		ModelID:     spec.ModelID,
		Revision:    revision,
		OptionsJSON: spec.Options,
	}
}

func toProviderSpec(spec catalog.AliasSpec) providerdir.Spec {
	revision, _ := spec.Revision.Get()
	return providerdir.Spec{
		Alias:       spec.Alias,
		ModelID:     spec.ModelID,
		Revision:    revision,
		Options:     spec.Options,
		LoadTimeout: spec.LoadTimeout,
	}
}

// resolveInstance runs the §4.6 typed-resolver steps 1-2: look up the
// alias, verify its declared task against expected, then get-or-load
// the backing instance. On a task mismatch the registry is never
// touched, matching the "CapabilityMismatch without touching the
// registry" testable property.
func (rt *Runtime) resolveInstance(ctx context.Context, alias string, expected runtimekey.Task) (*registry.LoadedInstance, catalog.AliasSpec, error) {
	spec, err := rt.catalog.Resolve(alias)
	if err != nil {
		return nil, catalog.AliasSpec{}, err
	}
	if spec.Task != expected {
		return nil, spec, rterrors.CapabilityMismatch(
			fmt.Sprintf("alias %q has task %q, requested %q", alias, spec.Task, expected))
	}

	provider, err := rt.directory.Get(spec.ProviderID)
	if err != nil {
		return nil, spec, err
	}

	key := rt.keys.KeyOf(toKeySpec(spec))
	return rt.registry.GetOrLoad(ctx, key, provider, toProviderSpec(spec), spec.LoadTimeout, loadFuncFor(expected, rt.sink))
}
