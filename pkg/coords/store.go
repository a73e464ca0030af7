// Package coords provides the thread-safe node position store shared between
// the background layout task and every reader (renderers, HTTP handlers, UI).
//
// # Active and Inactive Nodes
//
// Every node known to a [Store] is either active (part of the graph currently
// being laid out) or inactive (left over from a previous graph and retained so
// its position can be reused if the node comes back). Inactive entries are
// bounded: once more than MaxInactive of them exist, the ones deactivated
// longest ago are evicted. Active entries are never evicted.
//
// # Consistency
//
// All mutations happen under one lock, so a reader of [Store.ActiveLocationCopy]
// sees either the map before a [Store.PutAll] or the map after it, never a mix.
// Returned maps are copies; mutating them does not affect the store.
//
// # Notifications
//
// Listeners registered with [Store.Subscribe] receive a [Change] after the
// mutation is visible to other readers. They run on the mutating goroutine
// without any store lock held and must not block.
package coords

import (
	"container/list"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/event"
)

// DefaultMaxInactive is the default bound on retained inactive entries.
const DefaultMaxInactive = 10000

// ChangeKind identifies what a mutation did.
type ChangeKind int

const (
	// Moved reports new positions for existing or new nodes.
	Moved ChangeKind = iota
	// Activated reports nodes moved from inactive to active.
	Activated
	// Deactivated reports nodes moved from active to inactive.
	Deactivated
	// Evicted reports inactive nodes dropped by the retention bound.
	Evicted
)

func (k ChangeKind) String() string {
	switch k {
	case Moved:
		return "moved"
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Change describes one store mutation.
type Change[N comparable] struct {
	Kind  ChangeKind
	Nodes []N
}

type entry struct {
	pos  r2.Vec
	elem *list.Element // position in the inactive LRU list; nil while active
}

// Store maps nodes to 2D positions. It is safe for concurrent use.
type Store[N comparable] struct {
	mu          sync.RWMutex
	entries     map[N]*entry
	inactive    *list.List // of N, front is the oldest
	maxInactive int

	feed event.Feed[Change[N]]
}

// New creates an empty store that retains at most maxInactive inactive entries.
// A negative maxInactive disables the bound.
func New[N comparable](maxInactive int) *Store[N] {
	return &Store[N]{
		entries:     make(map[N]*entry),
		inactive:    list.New(),
		maxInactive: maxInactive,
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store[N]) Subscribe(fn func(Change[N])) (cancel func()) {
	sub := s.feed.Subscribe(fn)
	return sub.Unsubscribe
}

// Get returns the stored position of n, active or not.
func (s *Store[N]) Get(n N) (r2.Vec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[n]
	if !ok {
		return r2.Vec{}, false
	}
	return e.pos, true
}

// IsActive reports whether n is stored and active.
func (s *Store[N]) IsActive(n N) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[n]
	return ok && e.elem == nil
}

// Set stores the position of n. A node seen for the first time becomes
// active; an existing node keeps its active or inactive state.
func (s *Store[N]) Set(n N, p r2.Vec) {
	s.mu.Lock()
	s.put(n, p)
	s.mu.Unlock()
	s.notify(Moved, []N{n})
}

// PutAll stores every position in m under a single lock acquisition, so
// readers never observe a partially applied update.
func (s *Store[N]) PutAll(m map[N]r2.Vec) {
	if len(m) == 0 {
		return
	}
	nodes := make([]N, 0, len(m))
	s.mu.Lock()
	for n, p := range m {
		s.put(n, p)
		nodes = append(nodes, n)
	}
	s.mu.Unlock()
	s.notify(Moved, nodes)
}

func (s *Store[N]) put(n N, p r2.Vec) {
	if e, ok := s.entries[n]; ok {
		e.pos = p
		return
	}
	s.entries[n] = &entry{pos: p}
}

// Activate marks stored nodes as active. Nodes without a stored position are
// ignored. It returns the number of nodes that changed state.
func (s *Store[N]) Activate(nodes ...N) int {
	var changed []N
	s.mu.Lock()
	for _, n := range nodes {
		e, ok := s.entries[n]
		if !ok || e.elem == nil {
			continue
		}
		s.inactive.Remove(e.elem)
		e.elem = nil
		changed = append(changed, n)
	}
	s.mu.Unlock()
	s.notify(Activated, changed)
	return len(changed)
}

// Deactivate marks active nodes as inactive and evicts the oldest inactive
// entries beyond the retention bound. It returns the number of nodes that
// changed state.
func (s *Store[N]) Deactivate(nodes ...N) int {
	var changed, evicted []N
	s.mu.Lock()
	for _, n := range nodes {
		e, ok := s.entries[n]
		if !ok || e.elem != nil {
			continue
		}
		e.elem = s.inactive.PushBack(n)
		changed = append(changed, n)
	}
	for s.maxInactive >= 0 && s.inactive.Len() > s.maxInactive {
		front := s.inactive.Front()
		n := s.inactive.Remove(front).(N)
		delete(s.entries, n)
		evicted = append(evicted, n)
	}
	s.mu.Unlock()
	s.notify(Deactivated, changed)
	s.notify(Evicted, evicted)
	return len(changed)
}

// LocatesAll reports whether every node in nodes has a stored position.
func (s *Store[N]) LocatesAll(nodes []N) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range nodes {
		if _, ok := s.entries[n]; !ok {
			return false
		}
	}
	return true
}

// ActiveLocationCopy returns a snapshot of all active positions.
func (s *Store[N]) ActiveLocationCopy() map[N]r2.Vec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[N]r2.Vec, len(s.entries)-s.inactive.Len())
	for n, e := range s.entries {
		if e.elem == nil {
			out[n] = e.pos
		}
	}
	return out
}

// ActiveNodes returns the active nodes in no particular order.
func (s *Store[N]) ActiveNodes() []N {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]N, 0, len(s.entries)-s.inactive.Len())
	for n, e := range s.entries {
		if e.elem == nil {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store[N]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ActiveLen returns the number of active entries.
func (s *Store[N]) ActiveLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) - s.inactive.Len()
}

// InactiveLen returns the number of retained inactive entries.
func (s *Store[N]) InactiveLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inactive.Len()
}

func (s *Store[N]) notify(kind ChangeKind, nodes []N) {
	if len(nodes) == 0 {
		return
	}
	s.feed.Send(Change[N]{Kind: kind, Nodes: nodes})
}
