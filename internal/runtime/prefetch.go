package runtime

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/modelrt/modelrt/internal/ro"
)

// PrefetchReport is the structured outcome of Prefetch/PrefetchAll:
// per-alias failures keyed by alias, plus the same failures combined
// into one go-multierror for callers that just want a single error
// check (§9 "Decisions recorded for this implementation").
type PrefetchReport struct {
	Errors   map[string]error
	Combined error
}

type prefetchResult struct {
	alias string
	err   error
}

// Prefetch forces a load of exactly the named aliases, one at a time
// in the given order, mapped and collected as a reactive stream (§4.6
// Auxiliary operations).
func (rt *Runtime) Prefetch(ctx context.Context, aliases []string) PrefetchReport {
	return rt.runPrefetch(ctx, aliases)
}

// PrefetchAll forces a load of every alias in the catalog.
func (rt *Runtime) PrefetchAll(ctx context.Context) PrefetchReport {
	return rt.runPrefetch(ctx, rt.catalog.Aliases())
}

func (rt *Runtime) runPrefetch(ctx context.Context, aliases []string) PrefetchReport {
	stream := ro.MapStream(ro.StreamFromSlice(aliases), func(alias string) prefetchResult {
		spec, err := rt.catalog.Resolve(alias)
		if err != nil {
			return prefetchResult{alias: alias, err: err}
		}
		return prefetchResult{alias: alias, err: rt.forceLoad(ctx, spec)}
	})

	results, _, _ := ro.CollectWithContext(ctx, stream)

	report := PrefetchReport{Errors: make(map[string]error)}
	var combined *multierror.Error
	for _, r := range results {
		if r.err != nil {
			report.Errors[r.alias] = r.err
			combined = multierror.Append(combined, r.err)
		}
	}
	report.Combined = combined.ErrorOrNil()
	return report
}
