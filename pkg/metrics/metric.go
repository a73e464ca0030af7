package metrics

import (
	"github.com/matzehuels/livegraph/pkg/graph"
)

// Number is the set of result types that can be summed by [Additive].
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NodeMetric computes a value for one node of a graph.
//
// ID identifies the metric in caches and registries. Two metrics with the same
// ID are assumed to compute the same thing.
type NodeMetric[N comparable, V any] interface {
	ID() string
	Compute(g graph.Graph[N], n N) V
}

// GraphMetric computes a value for a whole graph.
type GraphMetric[N comparable, V any] interface {
	ID() string
	Compute(g graph.Graph[N]) V
}

// SubsetMetric computes a value for a set of nodes. It returns an error with
// code INVALID_SUBSET when the subset is not contained in the graph.
type SubsetMetric[N comparable, V any] interface {
	ID() string
	Compute(g graph.Graph[N], subset []N) (V, error)
}

// NodeFunc adapts a function to [NodeMetric].
type NodeFunc[N comparable, V any] struct {
	Name string
	Fn   func(g graph.Graph[N], n N) V
}

func (f NodeFunc[N, V]) ID() string { return f.Name }

func (f NodeFunc[N, V]) Compute(g graph.Graph[N], n N) V { return f.Fn(g, n) }

// GraphFunc adapts a function to [GraphMetric].
type GraphFunc[N comparable, V any] struct {
	Name string
	Fn   func(g graph.Graph[N]) V
}

func (f GraphFunc[N, V]) ID() string { return f.Name }

func (f GraphFunc[N, V]) Compute(g graph.Graph[N]) V { return f.Fn(g) }

// =============================================================================
// Built-in Metrics
// =============================================================================

// Degree returns the "degree" node metric.
func Degree[N comparable]() NodeMetric[N, int] {
	return NodeFunc[N, int]{Name: "degree", Fn: func(g graph.Graph[N], n N) int { return g.Degree(n) }}
}

// InDegree returns the "in-degree" node metric.
func InDegree[N comparable]() NodeMetric[N, int] {
	return NodeFunc[N, int]{Name: "in-degree", Fn: func(g graph.Graph[N], n N) int { return g.InDegree(n) }}
}

// OutDegree returns the "out-degree" node metric.
func OutDegree[N comparable]() NodeMetric[N, int] {
	return NodeFunc[N, int]{Name: "out-degree", Fn: func(g graph.Graph[N], n N) int { return g.OutDegree(n) }}
}

// Count returns the "count" node metric, which is 1 for every node. Summed
// over a subset it yields the subset size.
func Count[N comparable]() NodeMetric[N, int] {
	return NodeFunc[N, int]{Name: "count", Fn: func(graph.Graph[N], N) int { return 1 }}
}

// NodeCountMetric returns the "node-count" graph metric.
func NodeCountMetric[N comparable]() GraphMetric[N, int] {
	return GraphFunc[N, int]{Name: "node-count", Fn: func(g graph.Graph[N]) int { return g.NodeCount() }}
}

// EdgeCountMetric returns the "edge-count" graph metric.
func EdgeCountMetric[N comparable]() GraphMetric[N, int] {
	return GraphFunc[N, int]{Name: "edge-count", Fn: func(g graph.Graph[N]) int { return g.EdgeCount() }}
}

// Density returns the "density" graph metric: edges divided by the number of
// possible edges between distinct nodes, 0 for graphs with fewer than two
// nodes. Self-loops count as edges, so the value may exceed 1 for tiny
// graphs with loops.
func Density[N comparable]() GraphMetric[N, float64] {
	return GraphFunc[N, float64]{Name: "density", Fn: func(g graph.Graph[N]) float64 {
		n := float64(g.NodeCount())
		if n < 2 {
			return 0
		}
		possible := n * (n - 1)
		if !g.Directed() {
			possible /= 2
		}
		return float64(g.EdgeCount()) / possible
	}}
}
