package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/buildinfo"
	"github.com/matzehuels/livegraph/pkg/cache"
	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/manager"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "livegraph"

	// defaultIterations is the number of iterations the layout command runs.
	defaultIterations = 300
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	loader     *config.Loader
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               appName,
		Short:             "Livegraph lays out graphs continuously and serves their metrics",
		Long:              `Livegraph keeps 2D positions for the nodes of a graph, refines them with a background force layout, and computes cached per-node and global metrics.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Manager Factory
// =============================================================================

// layouts returns the algorithm registry with the spring layout tuned by cfg.
func layouts(cfg config.LayoutConfig) *layout.Registry[string] {
	reg := layout.DefaultRegistry[string]()
	reg.RegisterIterative("spring", func() layout.Iterative[string] {
		return layout.NewSpring[string](layout.SpringOptions{K: cfg.SpringK})
	})
	return reg
}

// newManager builds a manager configured by cfg with its iterative algorithm
// already set. The background task is not started. Layout hooks are the
// globally registered ones.
func (c *CLI) newManager(ctx context.Context, cfg config.LayoutConfig) (*manager.Manager[string], error) {
	reg := layouts(cfg)
	initial, err := reg.Static(cfg.Initial)
	if err != nil {
		return nil, err
	}
	adding, err := reg.Static(cfg.Adding)
	if err != nil {
		return nil, err
	}
	alg, err := reg.Iterative(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	mgr := manager.New(manager.Options[string]{
		Logger:           loggerFromContext(ctx),
		TickDelay:        cfg.TickDelay,
		ItersPerTick:     cfg.ItersPerTick,
		StopTimeout:      cfg.StopTimeout,
		MaxInactive:      cfg.MaxInactive,
		Initial:          initial,
		Adding:           adding,
		Params:           cfg.Params,
		Cooling:          manager.HyperbolicCooling(cfg.HalfLife),
		WarmupIterations: cfg.Warmup,
	})
	mgr.SetLayoutAlgorithm(alg)
	return mgr, nil
}

// watchConfig applies schedule changes from a reloaded config file to mgr.
// It returns a no-op stop function when no config file is in use.
func (c *CLI) watchConfig(ctx context.Context, mgr *manager.Manager[string]) func() {
	if c.loader == nil {
		return func() {}
	}
	logger := loggerFromContext(ctx)
	c.loader.OnChange(func(cfg config.Config) {
		if err := mgr.SetSchedule(cfg.Layout.TickDelay, cfg.Layout.ItersPerTick); err != nil {
			logger.Warn("apply schedule", "err", err)
			return
		}
		logger.Info("schedule updated", "tick_delay", cfg.Layout.TickDelay, "iters_per_tick", cfg.Layout.ItersPerTick)
	})
	stop, err := c.loader.Watch()
	if err != nil {
		logger.Warn("config watch disabled", "err", err)
		return func() {}
	}
	return stop
}

// =============================================================================
// Cache Factory
// =============================================================================

// newKeyer builds cache keys, prefixed with cfg.Prefix when set.
func newKeyer(cfg config.CacheConfig) cache.Keyer {
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Prefix)
}

// newCache opens the cache backend selected by cfg, instrumented with the
// registered cache hooks.
func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == config.BackendNone {
		return cache.NewNullCache(), nil
	}
	if cfg.Backend == config.BackendRedis {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc, nil), nil
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrument(fc, nil), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/livegraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// outputPath returns output, or <input>.<suffix> when output is empty.
func outputPath(input, output, suffix string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + suffix
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseSubset parses a comma-separated node list.
func parseSubset(s string) []string {
	var nodes []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// layoutFlags are the layout settings shared by layout, run and serve.
type layoutFlags struct {
	algorithm    string
	initial      string
	itersPerTick int
	width        float64
	height       float64
	seed         uint64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	def := config.Default().Layout
	cmd.Flags().StringVarP(&f.algorithm, "algorithm", "a", def.Algorithm, "iterative layout algorithm")
	cmd.Flags().StringVar(&f.initial, "initial", def.Initial, "static layout for the first placement")
	cmd.Flags().IntVar(&f.itersPerTick, "iters-per-tick", def.ItersPerTick, "iterations per background tick")
	cmd.Flags().Float64Var(&f.width, "width", def.Params.Width, "frame width")
	cmd.Flags().Float64Var(&f.height, "height", def.Params.Height, "frame height")
	cmd.Flags().Uint64Var(&f.seed, "seed", def.Params.Seed, "placement seed")
}

// apply overrides cfg with the flags the user set explicitly.
func (f *layoutFlags) apply(cmd *cobra.Command, cfg *config.LayoutConfig) {
	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		cfg.Algorithm = f.algorithm
	}
	if flags.Changed("initial") {
		cfg.Initial = f.initial
	}
	if flags.Changed("iters-per-tick") {
		cfg.ItersPerTick = f.itersPerTick
	}
	if flags.Changed("width") {
		cfg.Params.Width = f.width
	}
	if flags.Changed("height") {
		cfg.Params.Height = f.height
	}
	if flags.Changed("seed") {
		cfg.Params.Seed = f.seed
	}
}

func describeLayout(cfg config.LayoutConfig) string {
	return fmt.Sprintf("%s from %s, %d iters/tick every %s", cfg.Algorithm, cfg.Initial, cfg.ItersPerTick, cfg.TickDelay)
}
