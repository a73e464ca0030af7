package metrics

import (
	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
)

// Additive sums a per-node metric over a subset. The result keeps the
// metric's declared numeric type.
type Additive[N comparable, V Number] struct {
	Metric NodeMetric[N, V]
}

// NewAdditive returns the additive subset metric built from m.
func NewAdditive[N comparable, V Number](m NodeMetric[N, V]) *Additive[N, V] {
	return &Additive[N, V]{Metric: m}
}

// ID returns "additive(<metric id>)".
func (a *Additive[N, V]) ID() string { return "additive(" + a.Metric.ID() + ")" }

// Compute sums the metric over the distinct members of subset. Duplicates in
// subset are counted once; an empty subset sums to zero.
func (a *Additive[N, V]) Compute(g graph.Graph[N], subset []N) (V, error) {
	var sum V
	members, err := validSubset(g, subset)
	if err != nil {
		return sum, err
	}
	for _, n := range members {
		sum += a.Metric.Compute(g, n)
	}
	return sum, nil
}

// Contractive collapses a subset into one representative node and evaluates a
// per-node metric at that node in the contracted graph.
type Contractive[N comparable, V any] struct {
	Metric NodeMetric[N, V]

	// Rep picks the representative for a subset. It receives the distinct
	// members in input order. Nil picks the first member.
	Rep func(members []N) N
}

// NewContractive returns the contractive subset metric built from m.
func NewContractive[N comparable, V any](m NodeMetric[N, V], rep func([]N) N) *Contractive[N, V] {
	return &Contractive[N, V]{Metric: m, Rep: rep}
}

// ID returns "contractive(<metric id>)".
func (c *Contractive[N, V]) ID() string { return "contractive(" + c.Metric.ID() + ")" }

// Compute contracts subset and evaluates the metric at the representative.
func (c *Contractive[N, V]) Compute(g graph.Graph[N], subset []N) (V, error) {
	var zero V
	members, err := validSubset(g, subset)
	if err != nil {
		return zero, err
	}
	if len(members) == 0 {
		return zero, lgerrors.New(lgerrors.ErrCodeInvalidSubset, "cannot contract an empty subset")
	}
	rep := members[0]
	if c.Rep != nil {
		rep = c.Rep(members)
	}
	h, err := Contract(g, members, rep)
	if err != nil {
		return zero, err
	}
	return c.Metric.Compute(h, rep), nil
}

// Contract returns a copy of g with subset collapsed into rep.
//
// Edges between a member and an outside node are redirected to rep and merged,
// so rep is adjacent to each outside neighbour once per direction. Edges with
// both endpoints in subset are dropped and no loop is created for them. A
// loop on an outside node is kept. Node order follows g with rep taking the
// place of the first member.
//
// rep must be a member of subset or a node not in g.
func Contract[N comparable](g graph.Graph[N], subset []N, rep N) (*graph.Simple[N], error) {
	members, err := validSubset(g, subset)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, lgerrors.New(lgerrors.ErrCodeInvalidSubset, "cannot contract an empty subset")
	}
	in := toSet(members)
	if _, ok := in[rep]; !ok && g.Contains(rep) {
		return nil, lgerrors.New(lgerrors.ErrCodeInvalidSubset, "representative %v is an outside node", rep)
	}

	b := graph.NewBuilder[N](g.Directed())
	for _, n := range g.Nodes() {
		if _, ok := in[n]; ok {
			b.AddNode(rep)
			continue
		}
		b.AddNode(n)
	}
	mapped := func(n N) N {
		if _, ok := in[n]; ok {
			return rep
		}
		return n
	}
	for _, e := range g.Edges() {
		_, fromIn := in[e.From]
		_, toIn := in[e.To]
		if fromIn && toIn {
			continue
		}
		b.AddEdge(mapped(e.From), mapped(e.To))
	}
	return b.Build(), nil
}

// validSubset returns the distinct members of subset in input order, or an
// INVALID_SUBSET error naming the first node missing from g.
func validSubset[N comparable](g graph.Graph[N], subset []N) ([]N, error) {
	seen := make(map[N]struct{}, len(subset))
	members := make([]N, 0, len(subset))
	for _, n := range subset {
		if !g.Contains(n) {
			return nil, lgerrors.New(lgerrors.ErrCodeInvalidSubset, "node %v is not in the graph", n)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		members = append(members, n)
	}
	return members, nil
}

func toSet[N comparable](xs []N) map[N]struct{} {
	s := make(map[N]struct{}, len(xs))
	for _, x := range xs {
		s[x] = struct{}{}
	}
	return s
}
