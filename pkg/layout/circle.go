package layout

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

// Circle places every node evenly on a circle centred at the origin, in the
// order returned by g.Nodes(). It is the default initial layout.
type Circle[N comparable] struct{}

var _ Static[string] = Circle[string]{}

// Name returns "circle".
func (Circle[N]) Name() string { return "circle" }

// Layout implements [Static].
func (Circle[N]) Layout(ctx context.Context, g graph.Graph[N], current map[N]r2.Vec, locked []N, p Params) (map[N]r2.Vec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = p.WithDefaults()
	nodes := g.Nodes()
	radius := 0.4 * math.Min(p.Width, p.Height)

	out := make(map[N]r2.Vec, len(nodes))
	for i, n := range nodes {
		a := 2 * math.Pi * float64(i) / float64(len(nodes))
		out[n] = r2.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	keepLocked(out, current, locked)
	return out, nil
}
