// Package prom implements the observability hooks with Prometheus collectors.
//
//	reg := prometheus.NewRegistry()
//	h := prom.New(reg)
//	observability.SetLayoutHooks(h)
//	observability.SetStatsHooks(h)
//	observability.SetCacheHooks(h)
//	observability.SetHTTPHooks(h)
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/livegraph/pkg/observability"
)

// Hooks records every hook event as a Prometheus metric.
type Hooks struct {
	Ticks          *prometheus.CounterVec
	TickIterations *prometheus.CounterVec
	TickDuration   *prometheus.HistogramVec
	Energy         *prometheus.GaugeVec
	TaskStates     *prometheus.CounterVec
	GraphNodes     prometheus.Gauge
	GraphSwaps     prometheus.Counter
	NodesAdded     prometheus.Counter
	NodesRemoved   prometheus.Counter

	StatsHits    *prometheus.CounterVec
	StatsMisses  *prometheus.CounterVec
	StatsCompute *prometheus.HistogramVec

	CacheOps   *prometheus.CounterVec
	CacheBytes *prometheus.CounterVec

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	_ observability.LayoutHooks = (*Hooks)(nil)
	_ observability.StatsHooks  = (*Hooks)(nil)
	_ observability.CacheHooks  = (*Hooks)(nil)
	_ observability.HTTPHooks   = (*Hooks)(nil)
)

// New registers the collectors on reg and returns hooks that update them.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_layout_ticks_total",
			Help: "Total number of layout ticks, labelled by algorithm and outcome.",
		}, []string{"algorithm", "status"}),
		TickIterations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_layout_iterations_total",
			Help: "Total number of published layout iterations, labelled by algorithm.",
		}, []string{"algorithm"}),
		TickDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livegraph_layout_tick_duration_ms",
			Help:    "Layout tick latency in milliseconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"algorithm"}),
		Energy: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livegraph_layout_energy",
			Help: "Energy reported by the iterative algorithm after the last tick.",
		}, []string{"algorithm"}),
		TaskStates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_task_transitions_total",
			Help: "Total number of background task state transitions, labelled by target state.",
		}, []string{"state"}),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "livegraph_graph_nodes",
			Help: "Number of nodes in the current graph.",
		}),
		GraphSwaps: f.NewCounter(prometheus.CounterOpts{
			Name: "livegraph_graph_swaps_total",
			Help: "Total number of graph replacements.",
		}),
		NodesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "livegraph_graph_nodes_added_total",
			Help: "Total number of nodes placed by the adding layout on graph swaps.",
		}),
		NodesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "livegraph_graph_nodes_removed_total",
			Help: "Total number of nodes deactivated on graph swaps.",
		}),
		StatsHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_stats_hits_total",
			Help: "Total number of cached metric results returned, labelled by metric.",
		}, []string{"metric"}),
		StatsMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_stats_misses_total",
			Help: "Total number of metric computations, labelled by metric.",
		}, []string{"metric"}),
		StatsCompute: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livegraph_stats_compute_duration_ms",
			Help:    "Metric computation latency in milliseconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}, []string{"metric"}),
		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_cache_operations_total",
			Help: "Total number of snapshot cache operations, labelled by key type and result.",
		}, []string{"key_type", "result"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_cache_written_bytes_total",
			Help: "Total bytes written to the snapshot cache, labelled by key type.",
		}, []string{"key_type"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livegraph_http_requests_total",
			Help: "Total number of served HTTP requests, labelled by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livegraph_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "route"}),
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (h *Hooks) OnTick(_ context.Context, algorithm string, iterations int, energy float64, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.Ticks.WithLabelValues(algorithm, status).Inc()
	h.TickIterations.WithLabelValues(algorithm).Add(float64(iterations))
	h.TickDuration.WithLabelValues(algorithm).Observe(ms(d))
	h.Energy.WithLabelValues(algorithm).Set(energy)
}

func (h *Hooks) OnTaskState(_ context.Context, _, to string) {
	h.TaskStates.WithLabelValues(to).Inc()
}

func (h *Hooks) OnGraphSwap(_ context.Context, nodes, added, removed int) {
	h.GraphSwaps.Inc()
	h.GraphNodes.Set(float64(nodes))
	h.NodesAdded.Add(float64(added))
	h.NodesRemoved.Add(float64(removed))
}

func (h *Hooks) OnStatsHit(_ context.Context, metricID string) {
	h.StatsHits.WithLabelValues(metricID).Inc()
}

func (h *Hooks) OnStatsMiss(_ context.Context, metricID string, d time.Duration) {
	h.StatsMisses.WithLabelValues(metricID).Inc()
	h.StatsCompute.WithLabelValues(metricID).Observe(ms(d))
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.CacheOps.WithLabelValues(keyType, "set").Inc()
	h.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *Hooks) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	h.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.RequestDuration.WithLabelValues(method, route).Observe(ms(d))
}
