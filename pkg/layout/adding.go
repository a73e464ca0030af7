package layout

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

// Adding extends an existing configuration. Nodes that already have a
// position keep it unchanged; every other node is placed at the barycenter of
// its already placed neighbours, or on a ring around the bounding box of the
// existing positions when it has none. New positions are then pushed along a
// golden-angle spiral until they are clear of every occupied point, so the
// result is finite and pairwise distinct.
//
// With no prior positions at all, Adding falls back to [Circle].
type Adding[N comparable] struct{}

var _ Static[string] = Adding[string]{}

// Name returns "adding".
func (Adding[N]) Name() string { return "adding" }

// Layout implements [Static].
func (Adding[N]) Layout(ctx context.Context, g graph.Graph[N], current map[N]r2.Vec, locked []N, p Params) (map[N]r2.Vec, error) {
	p = p.WithDefaults()
	nodes := g.Nodes()

	out := make(map[N]r2.Vec, len(nodes))
	var missing []N
	for _, n := range nodes {
		if pos, ok := current[n]; ok && finite(pos) {
			out[n] = pos
		} else {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	if len(out) == 0 {
		return Circle[N]{}.Layout(ctx, g, current, locked, p)
	}

	step := p.spacing(len(nodes))
	minDist := step / 4
	lo, hi := bounds(out)
	center := r2.Scale(0.5, r2.Add(lo, hi))
	ring := 0.5*r2.Norm(r2.Sub(hi, lo)) + step

	occupied := make([]r2.Vec, 0, len(nodes))
	for _, pos := range out {
		occupied = append(occupied, pos)
	}

	for i, n := range missing {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, ok := barycenter(g, n, out)
		if !ok {
			a := float64(i)*golden + float64(p.Seed%360)*math.Pi/180
			target = r2.Add(center, r2.Vec{X: ring * math.Cos(a), Y: ring * math.Sin(a)})
		}
		pos := target
		for k := 0; clash(pos, occupied, minDist); k++ {
			pos = r2.Add(target, spiral(k, minDist))
		}
		out[n] = pos
		occupied = append(occupied, pos)
	}
	return out, nil
}

func barycenter[N comparable](g graph.Graph[N], n N, placed map[N]r2.Vec) (r2.Vec, bool) {
	var sum r2.Vec
	count := 0
	for _, m := range g.Neighbors(n) {
		if pos, ok := placed[m]; ok && m != n {
			sum = r2.Add(sum, pos)
			count++
		}
	}
	if count == 0 {
		return r2.Vec{}, false
	}
	return r2.Scale(1/float64(count), sum), true
}

func clash(p r2.Vec, occupied []r2.Vec, minDist float64) bool {
	for _, q := range occupied {
		if r2.Norm(r2.Sub(p, q)) < minDist {
			return true
		}
	}
	return false
}

func bounds[N comparable](m map[N]r2.Vec) (lo, hi r2.Vec) {
	first := true
	for _, p := range m {
		if first {
			lo, hi = p, p
			first = false
			continue
		}
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}
