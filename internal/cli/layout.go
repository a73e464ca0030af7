package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/cache"
	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/layout"
)

// layoutCommand creates the layout command for computing a fixed-length layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output     string
		noCache    bool
		iterations int
		flags      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Lay out a graph and write node positions",
		Long: `Lay out a graph and write node positions.

The layout command places the nodes of graph.json with the initial static
layout, then runs the iterative algorithm on the calling goroutine until the
requested number of iterations is reached. The positions are written as a
snapshot (default: <input>.layout.json).

Results are cached by graph content and layout settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			flags.apply(cmd, &cfg.Layout)
			return c.runLayout(cmd.Context(), cfg, args[0], output, iterations, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", defaultIterations, "iterations to run")
	flags.register(cmd)

	return cmd
}

// runLayout loads the graph, computes or fetches the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, cfg config.Config, input, output string, iterations int, noCache bool) error {
	if iterations < 0 {
		return fmt.Errorf("iterations must be >= 0, got %d", iterations)
	}
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	store, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer store.Close()

	hash, err := cache.GraphHash(g)
	if err != nil {
		return err
	}
	key := newKeyer(cfg.Cache).LayoutKey(hash, layoutKeyOpts(cfg.Layout, iterations))

	snap, cached, err := c.cachedLayout(ctx, store, key)
	if err != nil {
		return err
	}
	if !cached {
		if snap, err = c.computeLayout(ctx, cfg.Layout, g, iterations); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := layout.WriteSnapshot(snap, &buf); err != nil {
			return err
		}
		if err := store.Set(ctx, key, buf.Bytes(), cfg.Cache.TTL); err != nil {
			loggerFromContext(ctx).Warn("cache write failed", "err", err)
		}
	}

	out := outputPath(input, output, "layout.json")
	if err := layout.ExportSnapshot(snap, out); err != nil {
		return err
	}

	printSuccess("Layout complete")
	printFile(out)
	printStats(g.NodeCount(), g.EdgeCount(), cached)
	printNextStep("Serve it", fmt.Sprintf("%s serve %s", appName, input))
	return nil
}

// cachedLayout returns the snapshot stored under key, if any. Read failures
// are logged and treated as misses.
func (c *CLI) cachedLayout(ctx context.Context, store cache.Cache, key string) (layout.Snapshot, bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		loggerFromContext(ctx).Warn("cache read failed", "err", err)
		return layout.Snapshot{}, false, nil
	}
	if !ok {
		return layout.Snapshot{}, false, nil
	}
	snap, err := layout.ReadSnapshot(bytes.NewReader(data))
	if err != nil {
		loggerFromContext(ctx).Warn("discarding corrupt cache entry", "key", key, "err", err)
		return layout.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// computeLayout runs iterations on a fresh manager and returns the result.
func (c *CLI) computeLayout(ctx context.Context, cfg config.LayoutConfig, g graph.Graph[string], iterations int) (layout.Snapshot, error) {
	prog := newProgress(loggerFromContext(ctx))
	mgr, err := c.newManager(ctx, cfg)
	if err != nil {
		return layout.Snapshot{}, err
	}
	defer mgr.Close()

	if err := mgr.SetGraph(ctx, g); err != nil {
		return layout.Snapshot{}, err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %d iterations of %s...", iterations, cfg.Algorithm))
	spinner.Start()
	for mgr.TotalIterations() < iterations {
		if err := mgr.IterateLayout(ctx); err != nil {
			if spinner.Cancelled() {
				spinner.Stop()
				return layout.Snapshot{}, ctx.Err()
			}
			spinner.StopWithError("Layout failed")
			return layout.Snapshot{}, err
		}
		spinner.SetMessage(fmt.Sprintf("Running %s: %d/%d iterations", cfg.Algorithm, mgr.TotalIterations(), iterations))
	}
	spinner.Stop()
	prog.done("Layout computed", "algorithm", cfg.Algorithm, "iterations", mgr.TotalIterations())

	snap := layout.NewSnapshot(g.Nodes(), mgr.Store().ActiveLocationCopy())
	snap.Algorithm = cfg.Algorithm
	snap.Iteration = mgr.TotalIterations()
	snap.Cooling = mgr.CoolingParameter()
	return snap, nil
}

func layoutKeyOpts(cfg config.LayoutConfig, iterations int) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Algorithm:    cfg.Algorithm,
		Initial:      cfg.Initial,
		Iterations:   iterations,
		ItersPerTick: cfg.ItersPerTick,
		Warmup:       cfg.Warmup,
		HalfLife:     cfg.HalfLife,
		SpringK:      cfg.SpringK,
		Width:        cfg.Params.Width,
		Height:       cfg.Params.Height,
		Seed:         cfg.Params.Seed,
	}
}
