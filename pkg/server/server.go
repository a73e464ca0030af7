// Package server exposes a layout manager over HTTP.
//
// Routes:
//
//	GET  /healthz                     liveness
//	GET  /metrics                     Prometheus exposition
//	GET  /v1/graph                    current graph document
//	PUT  /v1/graph                    replace the graph
//	GET  /v1/positions                current positions snapshot
//	POST /v1/positions                request positions for nodes
//	GET  /v1/layout                   algorithm and task status
//	PUT  /v1/layout/active            start or stop the background task
//	PUT  /v1/layout/algorithm         switch the iterative algorithm
//	POST /v1/layout/iterate           run one tick while the task is inactive
//	POST /v1/layout/apply             run a static layout
//	GET  /v1/stats                    registered metric IDs
//	GET  /v1/stats/node/{id}          per-node metric report
//	GET  /v1/stats/global/{id}        graph metric value
//	GET  /v1/stats/subset/{id}?nodes= subset metric value
//
// Errors are returned as {"error": ..., "code": ...} with a status derived
// from the error code.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/livegraph/pkg/cache"
	"github.com/matzehuels/livegraph/pkg/event"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/manager"
	"github.com/matzehuels/livegraph/pkg/metrics"
	"github.com/matzehuels/livegraph/pkg/observability"
)

// Options configures a [Server].
type Options struct {
	Logger   *log.Logger               // Request and error logging (default: discard)
	Metrics  *metrics.Registry[string] // Metrics served under /v1/stats (default: metrics.DefaultRegistry)
	Cache    cache.Cache               // Cache for metric reports (default: none)
	Keyer    cache.Keyer               // Key builder for Cache (default: cache.NewDefaultKeyer)
	Hooks    observability.HTTPHooks   // Request instrumentation (default: observability.HTTP())
	Stats    observability.StatsHooks  // Stats cache instrumentation (default: observability.Stats())
	Gatherer prometheus.Gatherer       // Source for /metrics (default: prometheus.DefaultGatherer)
	Layouts  *layout.Registry[string]  // Algorithms selectable by name (default: layout.DefaultRegistry)
	CacheTTL time.Duration             // Expiry of cached metric reports (default: never)
}

// Server serves one layout manager.
type Server struct {
	mgr     *manager.Manager[string]
	opts    Options
	log     *log.Logger
	handler http.Handler
	sub     event.Subscription

	mu        sync.Mutex
	stats     *metrics.GraphStats[string]
	graphHash string
}

// New creates a server for mgr. Call Close to detach it from the manager.
func New(mgr *manager.Manager[string], opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultRegistry[string]()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.HTTP()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Layouts == nil {
		opts.Layouts = layout.DefaultRegistry[string]()
	}

	s := &Server{mgr: mgr, opts: opts, log: opts.Logger}
	s.sub = mgr.OnGraph(func(event.Change[graph.Graph[string]]) {
		s.mu.Lock()
		s.stats = nil
		s.graphHash = ""
		s.mu.Unlock()
	})
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Close stops tracking graph changes.
func (s *Server) Close() {
	s.sub.Unsubscribe()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.handler}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/graph", s.getGraph)
		r.Put("/graph", s.putGraph)
		r.Get("/positions", s.getPositions)
		r.Post("/positions", s.postPositions)
		r.Get("/layout", s.getLayout)
		r.Put("/layout/active", s.putLayoutActive)
		r.Put("/layout/algorithm", s.putLayoutAlgorithm)
		r.Post("/layout/iterate", s.iterateLayout)
		r.Post("/layout/apply", s.applyLayout)
		r.Get("/stats", s.listStats)
		r.Get("/stats/node/{id}", s.nodeStats)
		r.Get("/stats/global/{id}", s.globalStats)
		r.Get("/stats/subset/{id}", s.subsetStats)
	})
	return r
}

// graphStats returns the stats cache for the current graph, creating it on
// first use after a graph change. The manager's graph is checked directly
// since OnGraph fires only after SetGraph has finished.
func (s *Server) graphStats() (*metrics.GraphStats[string], string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.mgr.Graph()
	if g == nil {
		return nil, "", manager.ErrNoGraph
	}
	if s.stats == nil || !graph.Same(s.stats.Graph(), g) {
		hash, err := cache.GraphHash(g)
		if err != nil {
			return nil, "", err
		}
		s.stats = metrics.NewGraphStats(g, s.opts.Stats)
		s.graphHash = hash
	}
	return s.stats, s.graphHash, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
