package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/manager"
)

// runReportInterval is how often the non-interactive run command logs progress.
const runReportInterval = time.Second

// runCommand creates the run command for driving the background layout task.
func (c *CLI) runCommand() *cobra.Command {
	var (
		output   string
		live     bool
		duration time.Duration
		flags    layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "run [graph.json]",
		Short: "Run the background layout task on a graph",
		Long: `Run the background layout task on a graph.

The graph is placed with the initial static layout, then the iterative
algorithm runs on a background task until --duration elapses or the command
is interrupted. The final positions are written as a snapshot (default:
<input>.layout.json).

With --live, a terminal view shows iterations, cooling and energy as the
layout converges. With --config, schedule changes in the file are applied
without restarting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			flags.apply(cmd, &cfg.Layout)
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return c.runTask(ctx, cfg.Layout, args[0], output, live)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVarP(&live, "live", "l", false, "show a live view of the layout")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (default: until interrupted)")
	flags.register(cmd)

	return cmd
}

// runTask runs the layout task until ctx is done or the live view quits,
// then writes the final positions.
func (c *CLI) runTask(ctx context.Context, cfg config.LayoutConfig, input, output string, live bool) error {
	logger := loggerFromContext(ctx)
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	mgr, err := c.newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.SetGraph(ctx, g); err != nil {
		return err
	}
	stopWatch := c.watchConfig(ctx, mgr)
	defer stopWatch()

	logger.Info("layout started", "graph", input, "nodes", g.NodeCount(), "edges", g.EdgeCount(), "layout", describeLayout(cfg))
	mgr.SetLayoutTaskActive(true)

	if live {
		p := tea.NewProgram(NewLiveModel(mgr), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("live view: %w", err)
		}
	} else {
		waitTask(ctx, mgr, logger.Info)
	}

	mgr.SetLayoutTaskActive(false)
	if err := mgr.TaskErr(); err != nil {
		return err
	}

	snap := layout.NewSnapshot(g.Nodes(), mgr.Store().ActiveLocationCopy())
	snap.Algorithm = cfg.Algorithm
	snap.Iteration = mgr.TotalIterations()
	snap.Cooling = mgr.CoolingParameter()

	out := outputPath(input, output, "layout.json")
	if err := layout.ExportSnapshot(snap, out); err != nil {
		return err
	}
	printSuccess("Ran %d iterations", snap.Iteration)
	printFile(out)
	return nil
}

// waitTask blocks until ctx is done or the task stops, reporting progress
// every runReportInterval.
func waitTask(ctx context.Context, mgr *manager.Manager[string], report func(msg any, keyvals ...any)) {
	ticker := time.NewTicker(runReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !mgr.LayoutTaskActive() {
				return
			}
			report("layout",
				"iterations", mgr.TotalIterations(),
				"cooling", fmt.Sprintf("%.4g", mgr.CoolingParameter()),
				"energy", fmt.Sprintf("%.4g", mgr.Energy()))
		}
	}
}
