package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
	"github.com/matzehuels/livegraph/pkg/observability/prom"
	"github.com/matzehuels/livegraph/pkg/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
		paused  bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve the layout manager and graph metrics over HTTP",
		Long: `Serve the layout manager and graph metrics over HTTP.

When a graph file is given it is loaded and the background layout starts
immediately (unless --paused). Otherwise a graph can be uploaded with
PUT /v1/graph. Prometheus metrics are exposed on /metrics.

With --config, schedule changes in the file are applied without restarting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			flags.apply(cmd, &cfg.Layout)
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			return c.runServe(cmd.Context(), cfg, input, noCache, !paused)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.Default().Server.Addr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the metric report cache")
	cmd.Flags().BoolVar(&paused, "paused", false, "do not start the background layout")
	flags.register(cmd)

	return cmd
}

// runServe wires Prometheus hooks, the cache and the manager into a server
// and serves until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, cfg config.Config, input string, noCache, start bool) error {
	logger := loggerFromContext(ctx)

	hooks := prom.New(prometheus.DefaultRegisterer)
	observability.SetLayoutHooks(hooks)
	observability.SetStatsHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)

	store, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer store.Close()

	mgr, err := c.newManager(ctx, cfg.Layout)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if input != "" {
		g, err := graph.ReadGraphFile(input)
		if err != nil {
			return fmt.Errorf("load graph %s: %w", input, err)
		}
		if err := mgr.SetGraph(ctx, g); err != nil {
			return err
		}
		logger.Info("graph loaded", "graph", input, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	}

	srv := server.New(mgr, server.Options{
		Logger:   logger,
		Cache:    store,
		Keyer:    newKeyer(cfg.Cache),
		Hooks:    hooks,
		Stats:    hooks,
		Gatherer: prometheus.DefaultGatherer,
		Layouts:  layouts(cfg.Layout),
		CacheTTL: cfg.Cache.TTL,
	})
	defer srv.Close()

	stopWatch := c.watchConfig(ctx, mgr)
	defer stopWatch()

	if start {
		mgr.SetLayoutTaskActive(true)
	}
	logger.Info("listening", "addr", cfg.Server.Addr, "layout", describeLayout(cfg.Layout))
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
