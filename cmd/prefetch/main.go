// Command prefetch drives the §6.3 CLI: it loads a catalog document,
// restricts it to locally-backed providers, forces eager+required
// warmup on what remains, and builds a runtime so every local model is
// loaded before the process exits. Remote-backed aliases are skipped —
// this binary never dials a network provider.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang/v2"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/modelrt/modelrt/internal/catalog"
	"github.com/modelrt/modelrt/internal/obslog"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/ro"
	"github.com/modelrt/modelrt/internal/runtime"
)

var (
	cacheDir string
	dryRun   bool
)

func main() {
	root := newRootCmd()
	if err := fang.Execute(context.Background(), root); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "prefetch <catalog.json>",
		Short:         "Force-load every locally-backed alias in a catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPrefetch,
	}

	defaultCacheDir := os.Getenv("UNI_CACHE_DIR")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir, "directory providers may use for on-disk model caches")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the partitioned warmup plan without building")

	return cmd
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}

	specs, err := catalog.ParseJSON(raw)
	if err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}

	local, remote := partitionByLocality(specs)

	if dryRun {
		printPlan(local, remote)
		return nil
	}

	logger, err := obslog.New(obslog.Config{})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	go watchForShutdown(ctx, stop, logger)

	builder := runtime.NewBuilder().WithLogging(obslog.Config{})
	for _, spec := range local {
		builder = builder.AddAlias(spec)
	}

	start := time.Now()
	rt, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building runtime: %w", err)
	}
	defer rt.Close()

	fmt.Printf("prefetched %d local alias(es) in %s (cache-dir=%q, %d remote alias(es) skipped)\n",
		len(local), time.Since(start).Round(time.Millisecond), cacheDir, len(remote))
	return nil
}

// partitionByLocality splits specs by provider_id locality prefix
// (§4.9) and forces Eager/Required on every local entry, since the
// whole point of this binary is to force those loads now.
func partitionByLocality(specs []catalog.AliasSpec) (local, remote []catalog.AliasSpec) {
	for _, spec := range specs {
		if providerdir.IsRemote(spec.ProviderID) {
			remote = append(remote, spec)
			continue
		}
		spec.Warmup = catalog.WarmupEager
		spec.Required = true
		local = append(local, spec)
	}
	return local, remote
}

func printPlan(local, remote []catalog.AliasSpec) {
	fmt.Printf("plan: %d local alias(es) to prefetch, %d remote alias(es) skipped\n", len(local), len(remote))
	for _, spec := range local {
		deadline := time.Now().Add(time.Duration(spec.LoadTimeout) * time.Second)
		fmt.Printf("  %s  provider=%s  model=%s  load_timeout=%s (%s)\n",
			spec.Alias, spec.ProviderID, spec.ModelID,
			humanize.Time(deadline), fmt.Sprintf("%ds", spec.LoadTimeout))
	}
	for _, spec := range remote {
		fmt.Printf("  %s  provider=%s  (skipped: remote)\n", spec.Alias, spec.ProviderID)
	}
}

// watchForShutdown cancels the build on SIGINT/SIGTERM, letting
// context-respecting provider.Load calls abort cleanly instead of the
// process being killed mid-load.
func watchForShutdown(ctx context.Context, stop context.CancelFunc, logger zerolog.Logger) {
	sig, err := ro.WaitForShutdown(ctx)
	if err != nil {
		return
	}
	logger.Warn().Str("signal", sig.String()).Msg("received shutdown signal, cancelling prefetch")
	stop()
}
