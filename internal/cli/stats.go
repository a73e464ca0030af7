package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/metrics"
)

// statsReport is the --json output of the stats command.
type statsReport struct {
	Node   []*metrics.NodeReport[string] `json:"node"`
	Global map[string]any                `json:"global"`
	Subset map[string]any                `json:"subset,omitempty"`
}

// statsCommand creates the stats command for printing graph metrics.
func (c *CLI) statsCommand() *cobra.Command {
	var (
		subset  string
		asJSON  bool
		metricF []string
	)

	cmd := &cobra.Command{
		Use:   "stats [graph.json]",
		Short: "Print node, global and subset metrics of a graph",
		Long: `Print node, global and subset metrics of a graph.

Every registered per-node metric is evaluated over all nodes and shown with
its summary (mean, variance, min, max). Global metrics follow. With --subset,
subset metrics are evaluated for the listed nodes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(cmd.Context(), cmd.OutOrStdout(), args[0], metricF, parseSubset(subset), asJSON)
		},
	}

	cmd.Flags().StringVarP(&subset, "subset", "s", "", "comma-separated nodes for subset metrics")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	cmd.Flags().StringSliceVarP(&metricF, "metric", "m", nil, "node metrics to show (default: all)")

	return cmd
}

// runStats evaluates the metrics and renders them to w.
func (c *CLI) runStats(ctx context.Context, w io.Writer, input string, ids []string, subset []string, asJSON bool) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	prog := newProgress(loggerFromContext(ctx))
	reg := metrics.DefaultRegistry[string]()
	stats := metrics.NewGraphStats[string](g, nil)

	if len(ids) == 0 {
		ids = reg.NodeIDs()
	}
	report := statsReport{Global: map[string]any{}}
	for _, id := range ids {
		r, err := reg.Node(ctx, stats, id)
		if err != nil {
			return err
		}
		report.Node = append(report.Node, r)
	}
	for _, id := range reg.GlobalIDs() {
		v, err := reg.Global(ctx, stats, id)
		if err != nil {
			return err
		}
		report.Global[id] = v
	}
	if len(subset) > 0 {
		report.Subset = map[string]any{}
		for _, id := range reg.SubsetIDs() {
			v, err := reg.Subset(stats, id, subset)
			if err != nil {
				return err
			}
			report.Subset[id] = v
		}
	}
	prog.done("Metrics computed", "node", len(report.Node), "global", len(report.Global), "subset", len(report.Subset))

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderStats(w, g.Nodes(), report, subset)
	return nil
}

// renderStats prints the node metric table followed by the global and subset
// values.
func renderStats(w io.Writer, nodes []string, report statsReport, subset []string) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(28)

	headers := []string{"Node"}
	for _, r := range report.Node {
		headers = append(headers, r.ID)
	}
	rows := make([][]string, 0, len(nodes)+1)
	for i, n := range nodes {
		row := []string{n}
		for _, r := range report.Node {
			row = append(row, formatValue(r.Values[i]))
		}
		rows = append(rows, row)
	}
	mean := []string{"mean ± sd"}
	for _, r := range report.Node {
		if r.Summary.Count == 0 {
			mean = append(mean, "-")
			continue
		}
		mean = append(mean, fmt.Sprintf("%.3g ± %.3g", r.Summary.Mean, math.Sqrt(r.Summary.Variance)))
	}
	rows = append(rows, mean)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == len(rows)-1:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	fmt.Fprintln(w, StyleTitle.Render("Node metrics"))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("Global metrics"))
	for _, id := range slices.Sorted(maps.Keys(report.Global)) {
		fmt.Fprintln(w, keyStyle.Render(id)+" "+StyleValue.Render(formatValue(report.Global[id])))
	}
	if len(report.Subset) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render("Subset metrics")+" "+StyleDim.Render(fmt.Sprint(subset)))
		for _, id := range slices.Sorted(maps.Keys(report.Subset)) {
			fmt.Fprintln(w, keyStyle.Render(id)+" "+StyleValue.Render(formatValue(report.Subset[id])))
		}
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', 4, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 4, 32)
	}
	return fmt.Sprint(v)
}
