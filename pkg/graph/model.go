package graph

import (
	"reflect"
	"slices"
)

// Graph is a read-only view of a graph snapshot.
//
// Implementations must treat the snapshot as immutable once it has been handed
// to a layout manager or a metrics cache. Queries for a node that is not part
// of the graph return zero values or empty slices, never an error.
//
// For every node x:
//
//	Degree(x) == OutDegree(x) + InDegree(x)   (directed)
//	Degree(x) == OutDegree(x) == InDegree(x)  (undirected)
type Graph[N comparable] interface {
	Directed() bool

	Nodes() []N
	Edges() []Edge[N]
	NodeCount() int
	EdgeCount() int

	Contains(x N) bool
	Adjacent(x, y N) bool

	Degree(x N) int
	OutDegree(x N) int
	InDegree(x N) int

	Neighbors(x N) []N
	OutNeighbors(x N) []N
	InNeighbors(x N) []N
	EdgesAdjacentTo(x N) []Edge[N]
}

// Edge connects two nodes. The pair is ordered only when the owning graph is
// directed.
type Edge[N comparable] struct {
	From N
	To   N
}

// IsLoop reports whether both endpoints are the same node.
func (e Edge[N]) IsLoop() bool { return e.From == e.To }

// Other returns the endpoint opposite to x.
func (e Edge[N]) Other(x N) N {
	if e.From == x {
		return e.To
	}
	return e.From
}

// Equal compares two edges, ignoring endpoint order when directed is false.
func (e Edge[N]) Equal(o Edge[N], directed bool) bool {
	if e.From == o.From && e.To == o.To {
		return true
	}
	return !directed && e.From == o.To && e.To == o.From
}

// =============================================================================
// Simple - immutable adjacency-list graph
// =============================================================================

// Simple is an immutable graph without parallel edges. Create one with a
// [Builder]. Node and edge enumeration follow insertion order, so repeated
// calls to Nodes and Edges always return the same sequence.
//
// Loop policy: on a directed graph a loop x→x adds one to both OutDegree(x)
// and InDegree(x). On an undirected graph a loop counts once toward Degree(x),
// which keeps Degree == OutDegree == InDegree without special cases.
//
// Simple is safe for concurrent reads.
type Simple[N comparable] struct {
	directed bool
	order    []N
	index    map[N]int
	out      map[N][]N
	in       map[N][]N
	incident map[N][]int
	edges    []Edge[N]
}

var _ Graph[string] = (*Simple[string])(nil)

func newSimple[N comparable](directed bool) *Simple[N] {
	return &Simple[N]{
		directed: directed,
		index:    make(map[N]int),
		out:      make(map[N][]N),
		in:       make(map[N][]N),
		incident: make(map[N][]int),
	}
}

// Directed reports whether edges are ordered pairs.
func (g *Simple[N]) Directed() bool { return g.directed }

// Nodes returns a copy of the nodes in insertion order.
func (g *Simple[N]) Nodes() []N { return slices.Clone(g.order) }

// Edges returns a copy of the edges in insertion order.
func (g *Simple[N]) Edges() []Edge[N] { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Simple[N]) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Simple[N]) EdgeCount() int { return len(g.edges) }

// Contains reports whether x is a node of the graph.
func (g *Simple[N]) Contains(x N) bool {
	_, ok := g.index[x]
	return ok
}

// Adjacent reports whether an edge x→y exists (x–y for undirected graphs).
func (g *Simple[N]) Adjacent(x, y N) bool {
	return slices.Contains(g.out[x], y)
}

// Degree returns the number of edge endpoints at x.
func (g *Simple[N]) Degree(x N) int {
	if !g.directed {
		return len(g.out[x])
	}
	return len(g.out[x]) + len(g.in[x])
}

// OutDegree returns the number of edges leaving x.
func (g *Simple[N]) OutDegree(x N) int { return len(g.out[x]) }

// InDegree returns the number of edges entering x.
func (g *Simple[N]) InDegree(x N) int { return len(g.in[x]) }

// Neighbors returns the distinct nodes sharing an edge with x. x itself is
// only included when a loop x→x exists.
func (g *Simple[N]) Neighbors(x N) []N {
	if !g.directed {
		return slices.Clone(g.out[x])
	}
	out := slices.Clone(g.out[x])
	for _, p := range g.in[x] {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// OutNeighbors returns the targets of edges leaving x.
func (g *Simple[N]) OutNeighbors(x N) []N { return slices.Clone(g.out[x]) }

// InNeighbors returns the sources of edges entering x.
func (g *Simple[N]) InNeighbors(x N) []N { return slices.Clone(g.in[x]) }

// EdgesAdjacentTo returns every edge with x as an endpoint.
func (g *Simple[N]) EdgesAdjacentTo(x N) []Edge[N] {
	idx := g.incident[x]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge[N], len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

// =============================================================================
// Builder
// =============================================================================

// Builder accumulates nodes and edges for a [Simple] graph.
// A Builder is not safe for concurrent use.
type Builder[N comparable] struct {
	g *Simple[N]
}

// NewBuilder starts an empty directed or undirected graph.
func NewBuilder[N comparable](directed bool) *Builder[N] {
	return &Builder[N]{g: newSimple[N](directed)}
}

// AddNode adds x if it is not already present.
func (b *Builder[N]) AddNode(x N) *Builder[N] {
	if _, ok := b.g.index[x]; ok {
		return b
	}
	b.g.index[x] = len(b.g.order)
	b.g.order = append(b.g.order, x)
	return b
}

// AddEdge adds the edge from→to, adding missing endpoints first.
// Parallel edges are ignored.
func (b *Builder[N]) AddEdge(from, to N) *Builder[N] {
	b.AddNode(from).AddNode(to)
	g := b.g
	if slices.Contains(g.out[from], to) {
		return b
	}

	g.edges = append(g.edges, Edge[N]{From: from, To: to})
	i := len(g.edges) - 1
	g.incident[from] = append(g.incident[from], i)
	if from != to {
		g.incident[to] = append(g.incident[to], i)
	}

	g.out[from] = append(g.out[from], to)
	if g.directed {
		g.in[to] = append(g.in[to], from)
		return b
	}
	if from != to {
		g.out[to] = append(g.out[to], from)
	}
	return b
}

// Build returns the finished graph. The builder starts over afterwards, so
// later calls never mutate a graph that has already been handed out.
func (b *Builder[N]) Build() *Simple[N] {
	g := b.g
	if !g.directed {
		g.in = g.out
	}
	b.g = newSimple[N](g.directed)
	return g
}

// FromEdges builds a graph from nodes and edges in one call.
func FromEdges[N comparable](directed bool, nodes []N, edges []Edge[N]) *Simple[N] {
	b := NewBuilder[N](directed)
	for _, n := range nodes {
		b.AddNode(n)
	}
	for _, e := range edges {
		b.AddEdge(e.From, e.To)
	}
	return b.Build()
}

// Same reports whether a and b are the same graph value: the same pointer for
// *Simple. Values of non-comparable dynamic types are never the same.
func Same[N comparable](a, b Graph[N]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}
