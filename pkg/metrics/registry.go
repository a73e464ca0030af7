package metrics

import (
	"context"
	"maps"
	"slices"
	"sync"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
)

// NodeReport is a per-node result with its values boxed, as returned by a
// [Registry] that mixes metrics of different result types.
type NodeReport[N comparable] struct {
	ID      string  `json:"id"`
	Nodes   []N     `json:"nodes"`
	Values  []any   `json:"values"`
	Summary Summary `json:"summary"`
}

// Registry holds named metrics so callers such as the CLI and the HTTP
// server can evaluate them by ID. Metrics are registered explicitly with
// [RegisterNode], [RegisterGlobal] and [RegisterSubset]; registering an ID
// again replaces the earlier metric.
//
// A Registry is safe for concurrent use.
type Registry[N comparable] struct {
	mu     sync.RWMutex
	node   map[string]func(context.Context, *GraphStats[N]) (*NodeReport[N], error)
	global map[string]func(context.Context, *GraphStats[N]) (any, error)
	subset map[string]func(graph.Graph[N], []N) (any, error)
}

// NewRegistry returns an empty registry.
func NewRegistry[N comparable]() *Registry[N] {
	return &Registry[N]{
		node:   make(map[string]func(context.Context, *GraphStats[N]) (*NodeReport[N], error)),
		global: make(map[string]func(context.Context, *GraphStats[N]) (any, error)),
		subset: make(map[string]func(graph.Graph[N], []N) (any, error)),
	}
}

// DefaultRegistry returns a registry with the built-in metrics.
func DefaultRegistry[N comparable]() *Registry[N] {
	r := NewRegistry[N]()
	RegisterNode(r, Degree[N]())
	RegisterNode(r, InDegree[N]())
	RegisterNode(r, OutDegree[N]())
	RegisterNode(r, Count[N]())
	RegisterGlobal(r, NodeCountMetric[N]())
	RegisterGlobal(r, EdgeCountMetric[N]())
	RegisterGlobal(r, Density[N]())
	RegisterSubset(r, SubsetMetric[N, int](NewAdditive(Count[N]())))
	RegisterSubset(r, SubsetMetric[N, int](NewAdditive(Degree[N]())))
	RegisterSubset(r, SubsetMetric[N, int](NewContractive(Degree[N](), nil)))
	return r
}

// RegisterNode adds a per-node metric to r.
func RegisterNode[N comparable, V any](r *Registry[N], m NodeMetric[N, V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.node[m.ID()] = func(ctx context.Context, s *GraphStats[N]) (*NodeReport[N], error) {
		res, err := NodeStats(ctx, s, m)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(res.Values))
		for i, v := range res.Values {
			values[i] = v
		}
		return &NodeReport[N]{ID: m.ID(), Nodes: res.Nodes, Values: values, Summary: res.Summary}, nil
	}
}

// RegisterGlobal adds a graph metric to r.
func RegisterGlobal[N comparable, V any](r *Registry[N], m GraphMetric[N, V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[m.ID()] = func(ctx context.Context, s *GraphStats[N]) (any, error) {
		return GlobalStats(ctx, s, m)
	}
}

// RegisterSubset adds a subset metric to r.
func RegisterSubset[N comparable, V any](r *Registry[N], m SubsetMetric[N, V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subset[m.ID()] = func(g graph.Graph[N], subset []N) (any, error) {
		return m.Compute(g, subset)
	}
}

// Node evaluates the per-node metric registered as id.
func (r *Registry[N]) Node(ctx context.Context, s *GraphStats[N], id string) (*NodeReport[N], error) {
	r.mu.RLock()
	eval, ok := r.node[id]
	r.mu.RUnlock()
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeNotFound, "unknown node metric %q", id)
	}
	return eval(ctx, s)
}

// Global evaluates the graph metric registered as id.
func (r *Registry[N]) Global(ctx context.Context, s *GraphStats[N], id string) (any, error) {
	r.mu.RLock()
	eval, ok := r.global[id]
	r.mu.RUnlock()
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeNotFound, "unknown global metric %q", id)
	}
	return eval(ctx, s)
}

// Subset evaluates the subset metric registered as id on the snapshot of s.
// Subset results are not cached.
func (r *Registry[N]) Subset(s *GraphStats[N], id string, subset []N) (any, error) {
	r.mu.RLock()
	eval, ok := r.subset[id]
	r.mu.RUnlock()
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeNotFound, "unknown subset metric %q", id)
	}
	return eval(s.Graph(), subset)
}

// NodeIDs returns the registered per-node metric IDs in sorted order.
func (r *Registry[N]) NodeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.node))
}

// GlobalIDs returns the registered graph metric IDs in sorted order.
func (r *Registry[N]) GlobalIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.global))
}

// SubsetIDs returns the registered subset metric IDs in sorted order.
func (r *Registry[N]) SubsetIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.subset))
}
