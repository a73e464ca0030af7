package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/coords"
	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/event"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/task"
)

// Sentinel errors.
var (
	ErrTaskActive  = lgerrors.New(lgerrors.ErrCodeTaskActive, "layout task is active")
	ErrNoGraph     = lgerrors.New(lgerrors.ErrCodeNotFound, "no graph set")
	ErrNoAlgorithm = lgerrors.New(lgerrors.ErrCodeNotFound, "no layout algorithm set")
	ErrStopTimeout = lgerrors.New(lgerrors.ErrCodeTimeout, "layout task did not stop in time")
)

// Manager owns the coordinate store of one live graph view and drives an
// iterative layout algorithm over it.
//
// Control methods (SetGraph, SetLayoutAlgorithm, SetLayoutTaskActive,
// IterateLayout, ApplyLayout, SetSchedule, Close) are serialized. Accessors
// never wait for a control method that is stopping the background task.
//
// Event handlers registered with OnGraph, OnAlgorithm and OnTaskActive run
// synchronously after the transition, without any manager lock held.
type Manager[N comparable] struct {
	opts  Options[N]
	log   *log.Logger
	store *coords.Store[N]

	ctrl sync.Mutex

	mu       sync.RWMutex
	graph    graph.Graph[N]
	alg      layout.Iterative[N]
	active   bool
	task     *task.Periodic
	delay    time.Duration
	iters    int
	baseline float64

	// pub is held while publishing; gen changes whenever a task is stopped
	// so that a tick outliving its stop timeout cannot publish.
	pub sync.Mutex
	gen uint64

	// lagging is closed when the last task that outlived its stop timeout
	// exits. Until then no other tick may call Iterate.
	lagging <-chan struct{}

	total atomic.Int64

	graphFeed  event.Feed[event.Change[graph.Graph[N]]]
	algFeed    event.Feed[event.Change[layout.Iterative[N]]]
	activeFeed event.Feed[event.Change[bool]]
}

// run is the immutable state one background task works on.
type run[N comparable] struct {
	id       string
	g        graph.Graph[N]
	alg      layout.Iterative[N]
	iters    int
	baseline float64
	gen      uint64
	wait     <-chan struct{}
}

// New creates a manager with an empty store, no graph and no algorithm.
func New[N comparable](opts Options[N]) *Manager[N] {
	opts = opts.WithDefaults()
	return &Manager[N]{
		opts:  opts,
		log:   opts.Logger,
		store: coords.New[N](opts.MaxInactive),
		delay: opts.TickDelay,
		iters: opts.ItersPerTick,
	}
}

// =============================================================================
// Graph
// =============================================================================

// SetGraph replaces the graph. A running task is stopped first and resumed
// afterwards. Positions of nodes that stay are kept, nodes that leave are
// deactivated, and new nodes are placed with the Adding layout, or the
// Initial layout when no graph was set before.
//
// Setting the graph that is already set is a no-op. When the static layout
// fails, the store and graph are left unchanged.
func (m *Manager[N]) SetGraph(ctx context.Context, g graph.Graph[N]) error {
	m.ctrl.Lock()
	m.mu.RLock()
	old := m.graph
	m.mu.RUnlock()
	if graph.Same(old, g) {
		m.ctrl.Unlock()
		return nil
	}
	m.stopTask()

	added, removed, err := m.reconcile(ctx, old, g)
	if err != nil {
		m.resume()
		m.ctrl.Unlock()
		return err
	}

	m.mu.Lock()
	m.graph = g
	alg := m.alg
	m.mu.Unlock()
	if alg != nil {
		m.seed(alg, g)
	}

	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	m.opts.Hooks.OnGraphSwap(ctx, nodes, added, removed)
	m.log.Debug("graph replaced", "nodes", nodes, "added", added, "removed", removed)

	m.resume()
	m.ctrl.Unlock()
	m.graphFeed.Send(event.Change[graph.Graph[N]]{Old: old, New: g})
	return nil
}

func (m *Manager[N]) reconcile(ctx context.Context, old, g graph.Graph[N]) (added, removed int, err error) {
	if g == nil {
		return 0, m.store.Deactivate(m.store.ActiveNodes()...), nil
	}
	nodes := g.Nodes()

	current := make(map[N]r2.Vec, len(nodes))
	var missing []N
	for _, n := range nodes {
		if p, ok := m.store.Get(n); ok {
			current[n] = p
		} else {
			missing = append(missing, n)
		}
	}

	var placed map[N]r2.Vec
	if len(missing) > 0 {
		static := m.opts.Adding
		if old == nil {
			static = m.opts.Initial
		}
		all, err := static.Layout(ctx, g, current, lockedIn(m.LayoutAlgorithm(), g), m.opts.Params)
		if err != nil {
			return 0, 0, fmt.Errorf("%s layout: %w", static.Name(), err)
		}
		placed = make(map[N]r2.Vec, len(missing))
		for _, n := range missing {
			p, ok := all[n]
			if !ok {
				return 0, 0, lgerrors.New(lgerrors.ErrCodeInternal, "%s layout did not place node %v", static.Name(), n)
			}
			placed[n] = p
		}
	}

	// Activate before deactivating so eviction never drops a returning node.
	m.store.Activate(nodes...)
	var stale []N
	for _, n := range m.store.ActiveNodes() {
		if !g.Contains(n) {
			stale = append(stale, n)
		}
	}
	removed = m.store.Deactivate(stale...)
	m.store.PutAll(placed)

	if active := m.store.ActiveLen(); active != len(nodes) {
		m.log.Warn("active node count does not match graph", "active", active, "nodes", len(nodes))
	}
	return len(missing), removed, nil
}

// Graph returns the current graph, or nil.
func (m *Manager[N]) Graph() graph.Graph[N] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph
}

// OnGraph subscribes fn to graph replacements.
func (m *Manager[N]) OnGraph(fn func(event.Change[graph.Graph[N]])) event.Subscription {
	return m.graphFeed.Subscribe(fn)
}

// =============================================================================
// Algorithm
// =============================================================================

// SetLayoutAlgorithm replaces the iterative algorithm. A running task is
// stopped first and resumed with the new algorithm. The algorithm is seeded
// with the stored positions, its cooling parameter becomes the baseline for
// cooling decay, and the cumulative iteration count restarts at zero.
func (m *Manager[N]) SetLayoutAlgorithm(alg layout.Iterative[N]) {
	m.ctrl.Lock()
	m.mu.RLock()
	old, g := m.alg, m.graph
	m.mu.RUnlock()
	m.stopTask()

	var baseline float64
	if alg != nil {
		baseline = alg.CoolingParameter()
		m.seed(alg, g)
	}
	m.total.Store(0)

	m.mu.Lock()
	m.alg = alg
	m.baseline = baseline
	m.mu.Unlock()

	name := "<nil>"
	if alg != nil {
		name = alg.Name()
	}
	m.log.Debug("layout algorithm replaced", "algorithm", name, "cooling", baseline)

	m.resume()
	m.ctrl.Unlock()
	m.algFeed.Send(event.Change[layout.Iterative[N]]{Old: old, New: alg})
}

// LayoutAlgorithm returns the current algorithm, or nil.
func (m *Manager[N]) LayoutAlgorithm() layout.Iterative[N] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alg
}

// OnAlgorithm subscribes fn to algorithm replacements.
func (m *Manager[N]) OnAlgorithm(fn func(event.Change[layout.Iterative[N]])) event.Subscription {
	return m.algFeed.Subscribe(fn)
}

// seed hands the stored positions of g's nodes to alg, replacing its node
// universe, and drops locked nodes that are no longer in g.
func (m *Manager[N]) seed(alg layout.Iterative[N], g graph.Graph[N]) {
	pos := m.store.ActiveLocationCopy()
	if g != nil {
		for n := range pos {
			if !g.Contains(n) {
				delete(pos, n)
			}
		}
		alg.SetLockedNodes(lockedIn(alg, g))
	}
	alg.RequestPositions(pos, true)
}

func lockedIn[N comparable](alg layout.Iterative[N], g graph.Graph[N]) []N {
	if alg == nil {
		return nil
	}
	var out []N
	for _, n := range alg.LockedNodes() {
		if g.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}

// =============================================================================
// Background Task
// =============================================================================

// SetLayoutTaskActive starts or stops background layout. Activation is
// remembered: with no graph or algorithm set, the task starts as soon as
// both are available. Stopping waits at most Options.StopTimeout.
func (m *Manager[N]) SetLayoutTaskActive(active bool) {
	m.ctrl.Lock()
	m.mu.Lock()
	prev := m.active
	m.active = active
	m.mu.Unlock()
	if prev == active {
		m.ctrl.Unlock()
		return
	}
	if active {
		m.resume()
	} else {
		m.stopTask()
	}
	m.ctrl.Unlock()
	m.activeFeed.Send(event.Change[bool]{Old: prev, New: active})
}

// LayoutTaskActive reports whether background layout is requested. It turns
// false when the task fails.
func (m *Manager[N]) LayoutTaskActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// OnTaskActive subscribes fn to changes of LayoutTaskActive.
func (m *Manager[N]) OnTaskActive(fn func(event.Change[bool])) event.Subscription {
	return m.activeFeed.Subscribe(fn)
}

// TaskState returns the state of the most recent background task, or Idle
// if none was started.
func (m *Manager[N]) TaskState() task.State {
	m.mu.RLock()
	p := m.task
	m.mu.RUnlock()
	if p == nil {
		return task.Idle
	}
	return p.State()
}

// TaskErr returns the error of a failed background task, or nil.
func (m *Manager[N]) TaskErr() error {
	m.mu.RLock()
	p := m.task
	m.mu.RUnlock()
	if p == nil {
		return nil
	}
	return p.Err()
}

// SetSchedule changes the tick delay and iterations per tick. A running
// task is restarted with the new settings.
func (m *Manager[N]) SetSchedule(delay time.Duration, iters int) error {
	if err := ValidateSchedule(delay, iters); err != nil {
		return lgerrors.Wrap(lgerrors.ErrCodeInvalidConfig, err, "schedule")
	}
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	m.mu.Lock()
	changed := m.delay != delay || m.iters != iters
	m.delay, m.iters = delay, iters
	running := m.task != nil && !m.task.State().Done()
	m.mu.Unlock()

	if changed && running {
		m.stopTask()
		m.resume()
	}
	return nil
}

// Close stops background layout. It returns ErrStopTimeout if the in-flight
// tick did not finish within Options.StopTimeout.
func (m *Manager[N]) Close() error {
	m.ctrl.Lock()
	m.mu.Lock()
	prev := m.active
	m.active = false
	m.mu.Unlock()
	ok := m.stopTask()
	m.ctrl.Unlock()

	if prev {
		m.activeFeed.Send(event.Change[bool]{Old: true, New: false})
	}
	if !ok {
		return ErrStopTimeout
	}
	return nil
}

// resume starts a task when one is requested and graph and algorithm are
// set. Caller holds m.ctrl.
func (m *Manager[N]) resume() {
	m.mu.RLock()
	ok := m.active && m.graph != nil && m.alg != nil
	m.mu.RUnlock()
	if ok {
		m.startTask()
	}
}

// startTask launches a background task. Caller holds m.ctrl.
func (m *Manager[N]) startTask() {
	m.pub.Lock()
	gen := m.gen
	m.pub.Unlock()

	m.mu.Lock()
	r := run[N]{
		id:       uuid.NewString(),
		g:        m.graph,
		alg:      m.alg,
		iters:    m.iters,
		baseline: m.baseline,
		gen:      gen,
		wait:     m.lagging,
	}
	p := task.NewPeriodic(m.delay, func(ctx context.Context) error { return m.tick(ctx, r) })
	m.task = p
	m.mu.Unlock()

	p.Subscribe(func(c event.Change[task.State]) { m.onTaskState(p, r, c) })
	if err := p.Start(); err != nil {
		m.log.Error("start layout task", "run", r.id, "err", err)
		return
	}
	m.log.Debug("layout task started", "run", r.id, "algorithm", r.alg.Name(), "delay", m.delay, "iters", r.iters)
}

func (m *Manager[N]) onTaskState(p *task.Periodic, r run[N], c event.Change[task.State]) {
	m.opts.Hooks.OnTaskState(context.Background(), c.Old.String(), c.New.String())
	if c.New != task.Failed {
		return
	}
	m.log.Error("layout task failed", "algorithm", r.alg.Name(), "run", r.id, "err", p.Err())

	m.mu.Lock()
	changed := m.task == p && m.active
	if changed {
		m.active = false
	}
	m.mu.Unlock()
	if changed {
		m.activeFeed.Send(event.Change[bool]{Old: true, New: false})
	}
}

// stopTask stops the current task, waiting at most StopTimeout, and fences
// off any late publish from it. Caller holds m.ctrl.
func (m *Manager[N]) stopTask() bool {
	m.mu.RLock()
	p := m.task
	m.mu.RUnlock()

	ok := true
	if p != nil && !p.State().Done() {
		if ok = p.Stop(m.opts.StopTimeout); !ok {
			m.log.Warn("layout task did not stop in time", "timeout", m.opts.StopTimeout)
			m.mu.Lock()
			m.lagging = p.Done()
			m.mu.Unlock()
		}
	}

	m.pub.Lock()
	m.gen++
	m.pub.Unlock()
	return ok
}

// =============================================================================
// Ticks
// =============================================================================

// tick runs r.iters iterations and publishes the result. An interruption
// still publishes whatever the algorithm completed; any other error is
// returned and fails the task.
func (m *Manager[N]) tick(ctx context.Context, r run[N]) error {
	if r.wait != nil {
		select {
		case <-r.wait:
		default:
			// A stopped task is still inside Iterate; try again next tick.
			return nil
		}
	}
	start := time.Now()
	done := 0
	var err error
	for done < r.iters {
		if err = r.alg.Iterate(ctx, r.g); err != nil {
			break
		}
		done++
	}

	interrupted := err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
	if err != nil && !interrupted {
		m.opts.Hooks.OnTick(ctx, r.alg.Name(), done, r.alg.Energy(), time.Since(start), err)
		m.log.Error("layout tick failed", "algorithm", r.alg.Name(), "run", r.id, "err", err)
		return lgerrors.Wrap(lgerrors.ErrCodeTaskFailed, err, "layout %s", r.alg.Name())
	}

	m.publish(r, done)
	m.opts.Hooks.OnTick(ctx, r.alg.Name(), done, r.alg.Energy(), time.Since(start), nil)
	if interrupted {
		m.log.Debug("layout tick interrupted", "algorithm", r.alg.Name(), "run", r.id, "completed", done)
	}
	return err
}

// publish writes the algorithm's positions to the store in one PutAll and
// advances cooling.
func (m *Manager[N]) publish(r run[N], done int) bool {
	pos := r.alg.PositionsCopy()
	for n := range pos {
		if !r.g.Contains(n) {
			delete(pos, n)
		}
	}

	m.pub.Lock()
	defer m.pub.Unlock()
	if r.gen != m.gen {
		m.log.Warn("discarding publish from stopped layout task", "algorithm", r.alg.Name(), "run", r.id)
		return false
	}
	m.store.PutAll(pos)

	total := m.total.Add(int64(done))
	x := math.Max(0, float64(total-int64(m.opts.WarmupIterations)))
	r.alg.SetCoolingParameter(r.baseline * m.opts.Cooling(x))
	return true
}

// IterateLayout runs a single tick on the calling goroutine. It fails with
// ErrTaskActive while background layout is requested.
func (m *Manager[N]) IterateLayout(ctx context.Context) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	m.mu.RLock()
	active, g, alg, lagging := m.active, m.graph, m.alg, m.lagging
	r := run[N]{id: "manual", g: g, alg: alg, iters: m.iters, baseline: m.baseline}
	m.mu.RUnlock()

	switch {
	case active:
		return ErrTaskActive
	case g == nil:
		return ErrNoGraph
	case alg == nil:
		return ErrNoAlgorithm
	}
	if lagging != nil {
		select {
		case <-lagging:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.pub.Lock()
	r.gen = m.gen
	m.pub.Unlock()
	return m.tick(ctx, r)
}

// TotalIterations returns the iterations published since the algorithm was
// set.
func (m *Manager[N]) TotalIterations() int {
	return int(m.total.Load())
}

// CoolingParameter returns the current algorithm's cooling parameter, or 0.
func (m *Manager[N]) CoolingParameter() float64 {
	if alg := m.LayoutAlgorithm(); alg != nil {
		return alg.CoolingParameter()
	}
	return 0
}

// Energy returns the current algorithm's energy, or 0.
func (m *Manager[N]) Energy() float64 {
	if alg := m.LayoutAlgorithm(); alg != nil {
		return alg.Energy()
	}
	return 0
}

// =============================================================================
// Positions
// =============================================================================

// Store returns the coordinate store. Readers may use it freely; positions
// should be changed through RequestLocations or ApplyLayout.
func (m *Manager[N]) Store() *coords.Store[N] { return m.store }

// RequestLocations moves nodes. While a background task runs, the positions
// are merged into the algorithm's next tick so the task does not overwrite
// them; otherwise they are also written to the store directly. Nodes outside
// the current graph are ignored.
func (m *Manager[N]) RequestLocations(positions map[N]r2.Vec) {
	m.mu.RLock()
	g, alg, p := m.graph, m.alg, m.task
	m.mu.RUnlock()

	filtered := make(map[N]r2.Vec, len(positions))
	for n, pos := range positions {
		if g == nil || g.Contains(n) {
			filtered[n] = pos
		}
	}
	if alg != nil {
		alg.RequestPositions(filtered, false)
	}
	if p != nil && !p.State().Done() {
		return
	}
	m.store.PutAll(filtered)
}

// ApplyLayout computes positions with static and routes them through
// RequestLocations. With initial set, existing positions are ignored except
// for fixed nodes, which static receives as locked.
func (m *Manager[N]) ApplyLayout(ctx context.Context, static layout.Static[N], initial bool, fixed []N, params layout.Params) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	g := m.Graph()
	if g == nil {
		return ErrNoGraph
	}
	current := m.store.ActiveLocationCopy()
	if initial {
		kept := make(map[N]r2.Vec, len(fixed))
		for _, n := range fixed {
			if p, ok := current[n]; ok {
				kept[n] = p
			}
		}
		current = kept
	}

	pos, err := static.Layout(ctx, g, current, fixed, params)
	if err != nil {
		return fmt.Errorf("apply %s: %w", static.Name(), err)
	}
	m.log.Debug("static layout applied", "algorithm", static.Name(), "initial", initial, "fixed", len(fixed))
	m.RequestLocations(pos)
	return nil
}
