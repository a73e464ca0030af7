package layout

import (
	"context"
	"maps"
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

const (
	DefaultSpringK        = 50.0 // Default ideal edge length
	DefaultSpringSubSteps = 4    // Default sub-steps per Iterate call
	DefaultSpringCooling  = 10.0 // Default maximum displacement per sub-step
)

// SpringOptions configures a [Spring] layout.
type SpringOptions struct {
	K        float64 // Ideal edge length (default: 50)
	SubSteps int     // Whole sub-steps per Iterate call (default: 4)
	Cooling  float64 // Initial cooling parameter (default: 10)
}

// WithDefaults returns a copy of SpringOptions with zero values replaced by defaults.
func (o SpringOptions) WithDefaults() SpringOptions {
	if o.K <= 0 {
		o.K = DefaultSpringK
	}
	if o.SubSteps <= 0 {
		o.SubSteps = DefaultSpringSubSteps
	}
	if o.Cooling <= 0 {
		o.Cooling = DefaultSpringCooling
	}
	return o
}

// Spring is a Fruchterman-Reingold force layout. Connected nodes attract with
// d²/k, every pair repels with k²/d, and each node moves at most the cooling
// parameter per sub-step.
//
// Forces are computed on a private copy of the positions with the mutex
// released, so accessors never wait for a whole sub-step.
type Spring[N comparable] struct {
	opts    SpringOptions
	running atomic.Bool

	mu        sync.Mutex
	pos       map[N]r2.Vec
	pending   map[N]r2.Vec
	reset     bool
	locked    map[N]struct{}
	cooling   float64
	iteration int
	energy    float64
}

var _ Iterative[string] = (*Spring[string])(nil)

// NewSpring creates a spring layout with no positions.
func NewSpring[N comparable](opts SpringOptions) *Spring[N] {
	opts = opts.WithDefaults()
	return &Spring[N]{
		opts:    opts,
		pos:     make(map[N]r2.Vec),
		locked:  make(map[N]struct{}),
		cooling: opts.Cooling,
	}
}

// Name returns "spring".
func (s *Spring[N]) Name() string { return "spring" }

// Iterate implements [Iterative].
func (s *Spring[N]) Iterate(ctx context.Context, g graph.Graph[N]) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrConcurrentIterate
	}
	defer s.running.Store(false)

	for i := 0; i < s.opts.SubSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.step(g)
	}

	s.mu.Lock()
	s.iteration++
	s.mu.Unlock()
	return nil
}

func (s *Spring[N]) step(g graph.Graph[N]) {
	s.mu.Lock()
	s.applyPending()
	s.placeMissing(g)
	pos := maps.Clone(s.pos)
	locked := maps.Clone(s.locked)
	t := s.cooling
	s.mu.Unlock()

	moved, energy := forces(g, pos, locked, s.opts.K, t)

	s.mu.Lock()
	for n, p := range moved {
		// A request that arrived during the computation wins.
		if _, requested := s.pending[n]; requested {
			continue
		}
		s.pos[n] = p
	}
	s.energy = energy
	s.mu.Unlock()
}

// applyPending merges requested positions. Caller holds s.mu.
func (s *Spring[N]) applyPending() {
	if s.reset {
		s.pos = make(map[N]r2.Vec, len(s.pending))
		for n := range s.locked {
			if _, ok := s.pending[n]; !ok {
				delete(s.locked, n)
			}
		}
	}
	maps.Copy(s.pos, s.pending)
	s.pending = nil
	s.reset = false
}

// placeMissing gives graph nodes without a position a spot on a spiral around
// the centroid. Caller holds s.mu.
func (s *Spring[N]) placeMissing(g graph.Graph[N]) {
	var centroid r2.Vec
	for _, p := range s.pos {
		centroid = r2.Add(centroid, p)
	}
	if len(s.pos) > 0 {
		centroid = r2.Scale(1/float64(len(s.pos)), centroid)
	}
	i := len(s.pos)
	for _, n := range g.Nodes() {
		if _, ok := s.pos[n]; !ok {
			s.pos[n] = r2.Add(centroid, spiral(i, s.opts.K))
			i++
		}
	}
}

func forces[N comparable](g graph.Graph[N], pos map[N]r2.Vec, locked map[N]struct{}, k, t float64) (map[N]r2.Vec, float64) {
	nodes := make([]N, 0, len(pos))
	for _, n := range g.Nodes() {
		if _, ok := pos[n]; ok {
			nodes = append(nodes, n)
		}
	}
	disp := make([]r2.Vec, len(nodes))
	index := make(map[N]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	const eps = 1e-6
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := r2.Sub(pos[nodes[i]], pos[nodes[j]])
			dist := r2.Norm(d)
			if dist < eps {
				d = spiral(i+j, 0.01)
				dist = r2.Norm(d)
			}
			f := r2.Scale(k*k/(dist*dist), d)
			disp[i] = r2.Add(disp[i], f)
			disp[j] = r2.Sub(disp[j], f)
		}
	}
	for _, e := range g.Edges() {
		if e.IsLoop() {
			continue
		}
		i, ok1 := index[e.From]
		j, ok2 := index[e.To]
		if !ok1 || !ok2 {
			continue
		}
		d := r2.Sub(pos[e.From], pos[e.To])
		dist := r2.Norm(d)
		if dist < eps {
			continue
		}
		f := r2.Scale(dist/k, d)
		disp[i] = r2.Sub(disp[i], f)
		disp[j] = r2.Add(disp[j], f)
	}

	moved := make(map[N]r2.Vec, len(nodes))
	energy := 0.0
	for i, n := range nodes {
		if _, ok := locked[n]; ok {
			continue
		}
		l := r2.Norm(disp[i])
		if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		move := r2.Scale(math.Min(l, t)/l, disp[i])
		moved[n] = r2.Add(pos[n], move)
		energy += move.X*move.X + move.Y*move.Y
	}
	return moved, energy
}

// Iteration returns the number of completed Iterate calls.
func (s *Spring[N]) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Energy returns the summed squared displacement of the last sub-step.
func (s *Spring[N]) Energy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.energy
}

// PositionsCopy returns a copy of the current positions, including requests
// not yet applied by a sub-step.
func (s *Spring[N]) PositionsCopy() map[N]r2.Vec {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out map[N]r2.Vec
	if s.reset {
		out = make(map[N]r2.Vec, len(s.pending))
	} else {
		out = maps.Clone(s.pos)
		if out == nil {
			out = make(map[N]r2.Vec)
		}
	}
	maps.Copy(out, s.pending)
	return out
}

func (s *Spring[N]) CoolingParameter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooling
}

// SetCoolingParameter sets the maximum displacement per sub-step. Values that
// are not strictly positive are ignored.
func (s *Spring[N]) SetCoolingParameter(v float64) {
	if !(v > 0) || math.IsInf(v, 0) {
		return
	}
	s.mu.Lock()
	s.cooling = v
	s.mu.Unlock()
}

func (s *Spring[N]) LockedNodes() []N {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]N, 0, len(s.locked))
	for n := range s.locked {
		out = append(out, n)
	}
	return out
}

func (s *Spring[N]) SetLockedNodes(nodes []N) {
	set := toSet(nodes)
	s.mu.Lock()
	s.locked = set
	s.mu.Unlock()
}

// RequestPositions implements [Iterative].
func (s *Spring[N]) RequestPositions(positions map[N]r2.Vec, resetNodes bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resetNodes {
		s.pending = maps.Clone(positions)
		if s.pending == nil {
			s.pending = make(map[N]r2.Vec)
		}
		s.reset = true
		return
	}
	if s.pending == nil {
		s.pending = make(map[N]r2.Vec, len(positions))
	}
	maps.Copy(s.pending, positions)
}
