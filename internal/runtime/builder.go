package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"github.com/modelrt/modelrt/internal/catalog"
	"github.com/modelrt/modelrt/internal/metrics"
	"github.com/modelrt/modelrt/internal/obslog"
	"github.com/modelrt/modelrt/internal/optionschema"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/registry"
	"github.com/modelrt/modelrt/internal/reliability"
	"github.com/modelrt/modelrt/internal/rterrors"
	"github.com/modelrt/modelrt/internal/runtimeconfig"
	"github.com/modelrt/modelrt/internal/runtimekey"
)

// GlobalWarmupPolicy controls provider-level (not alias-level) warmup,
// applied uniformly to every provider.Warmer found in the directory.
type GlobalWarmupPolicy string

// Supported provider-level warmup policies.
const (
	GlobalWarmupLazy       GlobalWarmupPolicy = "lazy"
	GlobalWarmupEager      GlobalWarmupPolicy = "eager"
	GlobalWarmupBackground GlobalWarmupPolicy = "background"
)

func parseGlobalWarmupPolicy(raw string) GlobalWarmupPolicy {
	switch GlobalWarmupPolicy(raw) {
	case GlobalWarmupEager:
		return GlobalWarmupEager
	case GlobalWarmupBackground:
		return GlobalWarmupBackground
	default:
		return GlobalWarmupLazy
	}
}

// Builder accumulates catalog entries, option schemas, and ambient
// configuration, then assembles a Runtime in one Build call (§4.6). It
// does not register providers itself — providers arrive through
// internal/providerdir's blank-import Register idiom, the same
// separation database/sql draws between driver registration and
// sql.Open.
type Builder struct {
	schemas *optionschema.Registry
	entries []catalog.AliasSpec

	sink     metrics.Sink
	logging  obslog.Config
	defaults runtimeconfig.Config
}

// NewBuilder returns an empty Builder. A NoopSink and the built-in
// §4.5 defaults apply until overridden.
func NewBuilder() *Builder {
	return &Builder{
		schemas: optionschema.NewRegistry(),
		sink:    metrics.NoopSink{},
	}
}

// WithLogging sets the logger configuration (§4.7).
func (b *Builder) WithLogging(cfg obslog.Config) *Builder {
	b.logging = cfg
	return b
}

// WithMetricsSink overrides the default NoopSink (§6.5).
func (b *Builder) WithMetricsSink(sink metrics.Sink) *Builder {
	if sink != nil {
		b.sink = sink
	}
	return b
}

// WithDefaults loads the Builder-wide defaults (default warmup policy,
// circuit breaker overrides, eager-load concurrency) as parsed by
// internal/runtimeconfig.
func (b *Builder) WithDefaults(cfg runtimeconfig.Config) *Builder {
	b.defaults = cfg
	return b
}

// WithOptionSchema registers the static option schema a provider
// validates its AliasSpec.Options against (§4.2).
func (b *Builder) WithOptionSchema(providerID string, schema optionschema.Schema) *Builder {
	b.schemas.Register(providerID, schema)
	return b
}

// AddAlias appends one catalog entry, to be validated at Build time.
func (b *Builder) AddAlias(spec catalog.AliasSpec) *Builder {
	b.entries = append(b.entries, spec)
	return b
}

// AddCatalogJSON parses raw as a §6.2 catalog document and appends
// every decoded entry. A parse failure here is reported immediately
// rather than deferred to Build, since it reflects a malformed
// document rather than a cross-entry validation violation.
func (b *Builder) AddCatalogJSON(raw []byte) error {
	specs, err := catalog.ParseJSON(raw)
	if err != nil {
		return err
	}
	b.entries = append(b.entries, specs...)
	return nil
}

// Build runs the §4.6 Builder steps: validate every catalog entry,
// warm providers per the global policy, partition and warm aliases per
// their declared policy, and return the assembled Runtime.
func (b *Builder) Build(ctx context.Context) (*Runtime, error) {
	logger, err := obslog.New(b.logging)
	if err != nil {
		return nil, fmt.Errorf("runtime: building logger: %w", err)
	}

	directory, err := providerdir.Build()
	if err != nil {
		return nil, fmt.Errorf("runtime: building provider directory: %w", err)
	}

	cat := catalog.New()
	var validation *multierror.Error
	for _, spec := range b.entries {
		if insertErr := cat.Insert(spec, directory, b.schemas); insertErr != nil {
			validation = multierror.Append(validation, insertErr)
		}
	}
	if validation.ErrorOrNil() != nil {
		return nil, validation
	}

	injector, reg, keys, breakers, err := wireInjector(logger, cat, directory, b.sink, b.defaults)
	if err != nil {
		return nil, fmt.Errorf("runtime: wiring internals: %w", err)
	}

	rt := &Runtime{
		injector:  injector,
		catalog:   cat,
		directory: directory,
		registry:  reg,
		keys:      keys,
		breakers:  breakers,
		sink:      b.sink,
		logger:    logger,
	}

	warmupProviders(ctx, directory, parseGlobalWarmupPolicy(b.defaults.DefaultWarmup), logger)

	if err := rt.warmupAliases(ctx, cat, b.defaults.GetEagerLoadConcurrency(), logger); err != nil {
		return nil, err
	}

	return rt, nil
}

// wireInjector wires the internal samber/do singletons (§4.8): the
// already-built catalog and provider directory are provided as values,
// the registry/key-deriver/breaker-tracker are provided as
// constructors, mirroring internal/di.RegisterSingletons's
// do.Provide-per-service shape.
func wireInjector(
	logger zerolog.Logger,
	cat *catalog.Catalog,
	directory *providerdir.Directory,
	sink metrics.Sink,
	defaults runtimeconfig.Config,
) (*do.RootScope, *registry.Registry, *runtimekey.Deriver, *reliability.Tracker, error) {
	injector := do.New()

	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, cat)
	do.ProvideValue(injector, directory)
	do.ProvideValue(injector, sink)

	do.Provide(injector, func(i do.Injector) (*registry.Registry, error) {
		l := do.MustInvoke[zerolog.Logger](i)
		return registry.New(l), nil
	})
	do.Provide(injector, func(i do.Injector) (*runtimekey.Deriver, error) {
		return runtimekey.New()
	})
	do.Provide(injector, func(i do.Injector) (*reliability.Tracker, error) {
		openWait := time.Duration(defaults.CircuitBreaker.OpenWaitSeconds) * time.Second
		return reliability.NewTrackerWithConfig(defaults.CircuitBreaker.FailureThreshold, openWait), nil
	})

	reg, err := do.Invoke[*registry.Registry](injector)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	deriver, err := do.Invoke[*runtimekey.Deriver](injector)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	tracker, err := do.Invoke[*reliability.Tracker](injector)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return injector, reg, deriver, tracker, nil
}

// warmupProviders implements §4.6 step 2: for each registered
// provider, optionally invoke provider.Warmup(ctx) per the global
// policy. Providers not implementing providerdir.Warmer are skipped.
func warmupProviders(ctx context.Context, directory *providerdir.Directory, policy GlobalWarmupPolicy, logger zerolog.Logger) {
	if policy == GlobalWarmupLazy {
		return
	}

	directory.Each(func(providerID string, p providerdir.Provider) bool {
		warmer, ok := p.(providerdir.Warmer)
		if !ok {
			return true
		}
		switch policy {
		case GlobalWarmupEager:
			if err := warmer.Warmup(ctx); err != nil {
				logger.Warn().Str("provider", providerID).Err(err).Msg("provider warmup failed")
			}
		case GlobalWarmupBackground:
			go func() {
				if err := warmer.Warmup(context.Background()); err != nil {
					logger.Warn().Str("provider", providerID).Err(err).Msg("provider warmup failed")
				}
			}()
		}
		return true
	})
}

// warmupAliases implements §4.6 step 3: partition catalog entries by
// alias warmup policy (samber/lo.GroupBy) and drive Eager/Background
// loads.
func (rt *Runtime) warmupAliases(ctx context.Context, cat *catalog.Catalog, eagerConcurrency int, logger zerolog.Logger) error {
	entries := make([]catalog.AliasSpec, 0, cat.Len())
	for _, alias := range cat.Aliases() {
		spec, err := cat.Resolve(alias)
		if err != nil {
			continue
		}
		entries = append(entries, spec)
	}

	groups := lo.GroupBy(entries, func(spec catalog.AliasSpec) catalog.WarmupPolicy { return spec.Warmup })

	for _, spec := range groups[catalog.WarmupBackground] {
		go func() {
			if err := rt.forceLoad(context.Background(), spec); err != nil {
				logger.Warn().Str("alias", spec.Alias).Err(err).Msg("background warmup failed")
			}
		}()
	}

	return rt.warmupEager(ctx, groups[catalog.WarmupEager], eagerConcurrency, logger)
}

// warmupEager drives every eager alias bounded by a weighted semaphore
// (§4.6 step 3), aborting the build on the first required alias's
// failure while letting non-required failures merely log.
func (rt *Runtime) warmupEager(ctx context.Context, eager []catalog.AliasSpec, concurrency int, logger zerolog.Logger) error {
	if len(eager) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = runtimeconfig.DefaultEagerLoadConcurrency
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstRequiredErr error

	for _, spec := range eager {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstRequiredErr == nil {
				firstRequiredErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := rt.forceLoad(ctx, spec); err != nil {
				if spec.Required {
					mu.Lock()
					if firstRequiredErr == nil {
						firstRequiredErr = err
					}
					mu.Unlock()
				} else {
					logger.Warn().Str("alias", spec.Alias).Err(err).Msg("eager warmup failed")
				}
			}
		}()
	}
	wg.Wait()

	if firstRequiredErr != nil {
		return rterrors.Load("eager warmup of a required alias failed", firstRequiredErr)
	}
	return nil
}

// forceLoad drives a single alias's GetOrLoad without returning a
// typed resolver, used by warmup and Prefetch/PrefetchAll alike.
func (rt *Runtime) forceLoad(ctx context.Context, spec catalog.AliasSpec) error {
	provider, err := rt.directory.Get(spec.ProviderID)
	if err != nil {
		return err
	}
	key := rt.keys.KeyOf(toKeySpec(spec))
	_, err = rt.registry.GetOrLoad(ctx, key, provider, toProviderSpec(spec), spec.LoadTimeout, loadFuncFor(spec.Task, rt.sink))
	return err
}
