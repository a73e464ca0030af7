package layout

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

// Graphviz engines usable by [Graphviz].
const (
	EngineNeato = "neato"
	EngineCirco = "circo"
	EngineFDP   = "fdp"
	EngineSFDP  = "sfdp"
	EngineTwopi = "twopi"
	EngineDot   = "dot"
)

// Graphviz runs a Graphviz layout engine over the graph and reads node
// positions back from the laid out DOT. Locked nodes that have a current
// position are pinned for engines that honour pinning (neato, fdp) and keep
// their position in the result in every case.
//
// Without pinned nodes the drawing is centred on the origin and scaled
// uniformly to fill 80% of the Params frame, matching [Circle]. With pinned
// nodes the engine works in their coordinates and the result is left as is.
type Graphviz[N comparable] struct {
	// Engine is one of the Engine constants; empty means neato.
	Engine string
}

var _ Static[string] = Graphviz[string]{}

// Name returns "graphviz-<engine>".
func (g Graphviz[N]) Name() string { return "graphviz-" + g.engine() }

func (g Graphviz[N]) engine() string {
	if g.Engine == "" {
		return EngineNeato
	}
	return g.Engine
}

// Layout implements [Static].
func (g Graphviz[N]) Layout(ctx context.Context, gr graph.Graph[N], current map[N]r2.Vec, locked []N, p Params) (map[N]r2.Vec, error) {
	nodes := gr.Nodes()
	if len(nodes) == 0 {
		return map[N]r2.Vec{}, nil
	}

	lockedSet := toSet(locked)
	pinned := false
	for n := range lockedSet {
		if _, ok := current[n]; ok {
			pinned = true
			break
		}
	}

	dot, ids := toDOT(gr, current, lockedSet)
	rendered, err := renderDOT(ctx, dot, g.engine())
	if err != nil {
		return nil, err
	}

	raw, err := parsePositions(rendered, len(nodes))
	if err != nil {
		return nil, err
	}

	shift, scale := r2.Vec{}, 1.0
	if !pinned {
		lo, hi := bounds(raw)
		shift = r2.Scale(0.5, r2.Add(lo, hi))
		scale = fitScale(r2.Sub(hi, lo), p.WithDefaults())
	}

	out := make(map[N]r2.Vec, len(nodes))
	for i, n := range nodes {
		pos, ok := raw[i]
		if !ok {
			return nil, fmt.Errorf("graphviz: no position for node %q", ids[i])
		}
		out[n] = r2.Scale(scale, r2.Sub(pos, shift))
	}
	keepLocked(out, current, locked)
	return out, nil
}

// fitScale returns the factor that fits a drawing of the given extent into
// 80% of the frame. Degenerate extents are not scaled along that axis.
func fitScale(extent r2.Vec, p Params) float64 {
	scale := math.Inf(1)
	if extent.X > 0 {
		scale = 0.8 * p.Width / extent.X
	}
	if extent.Y > 0 {
		scale = math.Min(scale, 0.8*p.Height/extent.Y)
	}
	if math.IsInf(scale, 1) {
		return 1
	}
	return scale
}

// toDOT emits the graph with synthetic node names n0..nk in g.Nodes() order,
// so arbitrary node values need no escaping.
func toDOT[N comparable](g graph.Graph[N], current map[N]r2.Vec, locked map[N]struct{}) (string, []string) {
	nodes := g.Nodes()
	index := make(map[N]int, len(nodes))
	ids := make([]string, len(nodes))

	var buf bytes.Buffer
	kind, arrow := "graph", "--"
	if g.Directed() {
		kind, arrow = "digraph", "->"
	}
	fmt.Fprintf(&buf, "%s G {\n", kind)
	buf.WriteString("  node [shape=point];\n")
	buf.WriteString("  overlap=false;\n")

	for i, n := range nodes {
		index[n] = i
		ids[i] = fmt.Sprint(n)
		if _, isLocked := locked[n]; isLocked {
			if pos, ok := current[n]; ok {
				fmt.Fprintf(&buf, "  n%d [pos=\"%g,%g!\"];\n", i, pos.X, pos.Y)
				continue
			}
		}
		fmt.Fprintf(&buf, "  n%d;\n", i)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  n%d %s n%d;\n", index[e.From], arrow, index[e.To])
	}
	buf.WriteString("}\n")
	return buf.String(), ids
}

func renderDOT(ctx context.Context, dot, engine string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(engine))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", engine, err)
	}
	return buf.Bytes(), nil
}

var (
	nodeStmtRe = regexp.MustCompile(`(?m)^\s*"?n(\d+)"?\s*\[([^\]]*)\]`)
	nodePosRe  = regexp.MustCompile(`\bpos="(-?[0-9.eE+-]+),(-?[0-9.eE+-]+)!?"`)
)

// parsePositions extracts node positions keyed by synthetic index. Edge
// statements never match because their pos attribute is a spline list.
func parsePositions(dot []byte, n int) (map[int]r2.Vec, error) {
	out := make(map[int]r2.Vec, n)
	for _, m := range nodeStmtRe.FindAllSubmatch(dot, -1) {
		i, err := strconv.Atoi(string(m[1]))
		if err != nil || i >= n {
			continue
		}
		pm := nodePosRe.FindSubmatch(m[2])
		if pm == nil {
			continue
		}
		x, errX := strconv.ParseFloat(string(pm[1]), 64)
		y, errY := strconv.ParseFloat(string(pm[2]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("graphviz: bad pos for n%d: %s", i, pm[0])
		}
		out[i] = r2.Vec{X: x, Y: y}
	}
	return out, nil
}
