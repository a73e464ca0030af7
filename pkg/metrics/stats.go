package metrics

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/singleflight"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
)

// Summary describes the numeric values of a per-node result. Variance is the
// population variance. Count is zero when no value is numeric, and then the
// other fields are zero too.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// NodeResult holds a per-node metric evaluated over every node of a graph.
// Values[i] belongs to Nodes[i]; Nodes is in graph enumeration order.
type NodeResult[N comparable, V any] struct {
	Nodes   []N
	Values  []V
	Summary Summary
}

// Value returns the value computed for n.
func (r *NodeResult[N, V]) Value(n N) (V, bool) {
	for i, m := range r.Nodes {
		if m == n {
			return r.Values[i], true
		}
	}
	var zero V
	return zero, false
}

// GraphStats caches metric results for one immutable graph snapshot. A new
// snapshot needs a new GraphStats; entries are never invalidated.
//
// GraphStats is safe for concurrent use. Concurrent misses on the same metric
// are collapsed into one computation.
type GraphStats[N comparable] struct {
	g     graph.Graph[N]
	hooks observability.StatsHooks
	cache sync.Map // key -> result
	group singleflight.Group
}

// NewGraphStats binds a cache to g. A nil hooks uses observability.Stats().
func NewGraphStats[N comparable](g graph.Graph[N], hooks observability.StatsHooks) *GraphStats[N] {
	if hooks == nil {
		hooks = observability.Stats()
	}
	return &GraphStats[N]{g: g, hooks: hooks}
}

// Graph returns the snapshot the cache is bound to.
func (s *GraphStats[N]) Graph() graph.Graph[N] { return s.g }

// Cached reports whether a node or global metric with the given ID has a
// cached result.
func (s *GraphStats[N]) Cached(id string) bool {
	_, node := s.cache.Load(nodeKey(id))
	_, global := s.cache.Load(globalKey(id))
	return node || global
}

func nodeKey(id string) string   { return "node:" + id }
func globalKey(id string) string { return "global:" + id }

// NodeStats evaluates m on every node of the snapshot, or returns the cached
// result from an earlier call with a metric of the same ID.
func NodeStats[N comparable, V any](ctx context.Context, s *GraphStats[N], m NodeMetric[N, V]) (*NodeResult[N, V], error) {
	v, err := s.load(ctx, nodeKey(m.ID()), m.ID(), func() any {
		nodes := s.g.Nodes()
		values := make([]V, len(nodes))
		for i, n := range nodes {
			values[i] = m.Compute(s.g, n)
		}
		return &NodeResult[N, V]{Nodes: nodes, Values: values, Summary: summarize(values)}
	})
	if err != nil {
		return nil, err
	}
	r, ok := v.(*NodeResult[N, V])
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeInvalidInput, "metric %q is cached as %T", m.ID(), v)
	}
	return r, nil
}

// GlobalStats evaluates m on the snapshot, or returns the cached result.
func GlobalStats[N comparable, V any](ctx context.Context, s *GraphStats[N], m GraphMetric[N, V]) (V, error) {
	var zero V
	v, err := s.load(ctx, globalKey(m.ID()), m.ID(), func() any { return m.Compute(s.g) })
	if err != nil {
		return zero, err
	}
	r, ok := v.(V)
	if !ok {
		return zero, lgerrors.New(lgerrors.ErrCodeInvalidInput, "metric %q is cached as %T", m.ID(), v)
	}
	return r, nil
}

func (s *GraphStats[N]) load(ctx context.Context, key, id string, compute func() any) (any, error) {
	if err := lgerrors.ValidateIdentifier("metric", id); err != nil {
		return nil, err
	}
	if v, ok := s.cache.Load(key); ok {
		s.hooks.OnStatsHit(ctx, id)
		return v, nil
	}
	v, err, _ := s.group.Do(key, func() (res any, err error) {
		if v, ok := s.cache.Load(key); ok {
			return v, nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = lgerrors.New(lgerrors.ErrCodeInternal, "metric %q panicked: %v", id, r)
			}
		}()
		start := time.Now()
		res = compute()
		s.cache.Store(key, res)
		s.hooks.OnStatsMiss(ctx, id, time.Since(start))
		return res, nil
	})
	return v, err
}

// summarize computes a Summary over the values that have a numeric kind.
func summarize[V any](values []V) Summary {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			data = append(data, f)
		}
	}
	return Summarize(data)
}

// Summarize computes a Summary over data.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	d := stats.Float64Data(data)
	mean, _ := d.Mean()
	variance, _ := d.PopulationVariance()
	lo, _ := d.Min()
	hi, _ := d.Max()
	return Summary{Count: len(d), Mean: mean, Variance: variance, Min: lo, Max: hi}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return 0, false
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		return rv.Float(), true
	}
	return 0, false
}

// String formats a summary for logs.
func (s Summary) String() string {
	return fmt.Sprintf("n=%d mean=%.4g var=%.4g min=%.4g max=%.4g", s.Count, s.Mean, s.Variance, s.Min, s.Max)
}
