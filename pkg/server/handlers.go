package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gonum.org/v1/gonum/spatial/r2"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/manager"
)

// LayoutStatus is the body of GET /v1/layout.
type LayoutStatus struct {
	Algorithm       string   `json:"algorithm,omitempty"`
	Active          bool     `json:"active"`
	TaskState       string   `json:"task_state"`
	TaskError       string   `json:"task_error,omitempty"`
	TotalIterations int      `json:"total_iterations"`
	Cooling         float64  `json:"cooling"`
	Energy          float64  `json:"energy"`
	Nodes           int      `json:"nodes"`
	Static          []string `json:"static"`
	Iterative       []string `json:"iterative"`
}

// ApplyRequest is the body of POST /v1/layout/apply.
type ApplyRequest struct {
	Algorithm string        `json:"algorithm"`
	Initial   bool          `json:"initial"`
	Fixed     []string      `json:"fixed,omitempty"`
	Params    layout.Params `json:"params"`
}

// GET /healthz
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/graph
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g := s.mgr.Graph()
	if g == nil {
		s.writeError(w, r, manager.ErrNoGraph)
		return
	}
	writeJSON(w, http.StatusOK, graph.FromGraph(g))
}

// PUT /v1/graph
func (s *Server) putGraph(w http.ResponseWriter, r *http.Request) {
	g, err := graph.ReadGraph(r.Body)
	if err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInvalidInput, err, "read graph"))
		return
	}
	if err := s.mgr.SetGraph(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"nodes": g.NodeCount(), "edges": g.EdgeCount()})
}

// GET /v1/positions
func (s *Server) getPositions(w http.ResponseWriter, r *http.Request) {
	g := s.mgr.Graph()
	if g == nil {
		s.writeError(w, r, manager.ErrNoGraph)
		return
	}
	snap := layout.NewSnapshot(g.Nodes(), s.mgr.Store().ActiveLocationCopy())
	if alg := s.mgr.LayoutAlgorithm(); alg != nil {
		snap.Algorithm = alg.Name()
	}
	snap.Iteration = s.mgr.TotalIterations()
	snap.Cooling = s.mgr.CoolingParameter()
	writeJSON(w, http.StatusOK, snap)
}

// POST /v1/positions
func (s *Server) postPositions(w http.ResponseWriter, r *http.Request) {
	var snap layout.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	positions := make(map[string]r2.Vec, len(snap.Nodes))
	for _, n := range snap.Nodes {
		positions[n.ID] = r2.Vec{X: n.X, Y: n.Y}
	}
	s.mgr.RequestLocations(positions)
	writeJSON(w, http.StatusAccepted, map[string]int{"requested": len(positions)})
}

// GET /v1/layout
func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	st := LayoutStatus{
		Active:          s.mgr.LayoutTaskActive(),
		TaskState:       s.mgr.TaskState().String(),
		TotalIterations: s.mgr.TotalIterations(),
		Cooling:         s.mgr.CoolingParameter(),
		Energy:          s.mgr.Energy(),
		Static:          s.opts.Layouts.StaticNames(),
		Iterative:       s.opts.Layouts.IterativeNames(),
	}
	if alg := s.mgr.LayoutAlgorithm(); alg != nil {
		st.Algorithm = alg.Name()
	}
	if err := s.mgr.TaskErr(); err != nil {
		st.TaskError = err.Error()
	}
	if g := s.mgr.Graph(); g != nil {
		st.Nodes = g.NodeCount()
	}
	writeJSON(w, http.StatusOK, st)
}

// PUT /v1/layout/active
func (s *Server) putLayoutActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	s.mgr.SetLayoutTaskActive(body.Active)
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.mgr.LayoutTaskActive()})
}

// PUT /v1/layout/algorithm
func (s *Server) putLayoutAlgorithm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	alg, err := s.opts.Layouts.Iterative(body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mgr.SetLayoutAlgorithm(alg)
	writeJSON(w, http.StatusOK, map[string]string{"algorithm": alg.Name()})
}

// POST /v1/layout/iterate
func (s *Server) iterateLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.IterateLayout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_iterations": s.mgr.TotalIterations()})
}

// POST /v1/layout/apply
func (s *Server) applyLayout(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	static, err := s.opts.Layouts.Static(req.Algorithm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.mgr.ApplyLayout(r.Context(), static, req.Initial, req.Fixed, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"applied": static.Name()})
}

// GET /v1/stats
func (s *Server) listStats(w http.ResponseWriter, r *http.Request) {
	reg := s.opts.Metrics
	writeJSON(w, http.StatusOK, map[string][]string{
		"node":   reg.NodeIDs(),
		"global": reg.GlobalIDs(),
		"subset": reg.SubsetIDs(),
	})
}

// GET /v1/stats/node/{id}
func (s *Server) nodeStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, hash, err := s.graphStats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := s.opts.Keyer.StatsKey(hash, "node:"+id, nil)
	s.cached(w, r, key, func() (any, error) {
		return s.opts.Metrics.Node(r.Context(), stats, id)
	})
}

// GET /v1/stats/global/{id}
func (s *Server) globalStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, hash, err := s.graphStats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := s.opts.Keyer.StatsKey(hash, "global:"+id, nil)
	s.cached(w, r, key, func() (any, error) {
		v, err := s.opts.Metrics.Global(r.Context(), stats, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "value": v}, nil
	})
}

// GET /v1/stats/subset/{id}?nodes=a,b,c
func (s *Server) subsetStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	subset := splitNodes(r.URL.Query().Get("nodes"))
	stats, hash, err := s.graphStats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := s.opts.Keyer.StatsKey(hash, "subset:"+id, subset)
	s.cached(w, r, key, func() (any, error) {
		v, err := s.opts.Metrics.Subset(stats, id, subset)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "nodes": subset, "value": v}, nil
	})
}

// cached serves the JSON stored under key, or computes, stores and serves
// it. Cache failures are logged and fall through to computing.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, key string, compute func() (any, error)) {
	ctx := r.Context()
	if data, ok, err := s.opts.Cache.Get(ctx, key); err != nil {
		s.log.Warn("stats cache read failed", "err", err)
	} else if ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	v, err := compute()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, r, lgerrors.Wrap(lgerrors.ErrCodeInternal, err, "encode result"))
		return
	}
	data = append(data, '\n')
	if err := s.opts.Cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.log.Warn("stats cache write failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func splitNodes(raw string) []string {
	var nodes []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch lgerrors.GetCode(err) {
	case lgerrors.ErrCodeInvalidInput, lgerrors.ErrCodeInvalidSubset, lgerrors.ErrCodeInvalidConfig, lgerrors.ErrCodeInvalidID:
		return http.StatusBadRequest
	case lgerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case lgerrors.ErrCodeTaskActive:
		return http.StatusConflict
	case lgerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case lgerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	body := map[string]string{"error": lgerrors.UserMessage(err)}
	if code := lgerrors.GetCode(err); code != "" {
		body["code"] = string(code)
	}
	writeJSON(w, status, body)
}
