package layout

import (
	"maps"
	"slices"
	"sync"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
)

// Registry holds the layout algorithms available to a caller. Nothing is
// registered implicitly: callers build a registry and pass it where needed.
type Registry[N comparable] struct {
	mu        sync.RWMutex
	statics   map[string]Static[N]
	iterative map[string]func() Iterative[N]
}

// NewRegistry creates an empty registry.
func NewRegistry[N comparable]() *Registry[N] {
	return &Registry[N]{
		statics:   make(map[string]Static[N]),
		iterative: make(map[string]func() Iterative[N]),
	}
}

// DefaultRegistry returns a registry with the built-in algorithms: circle,
// adding, every graphviz engine and spring.
func DefaultRegistry[N comparable]() *Registry[N] {
	r := NewRegistry[N]()
	r.RegisterStatic(Circle[N]{})
	r.RegisterStatic(Adding[N]{})
	for _, e := range []string{EngineNeato, EngineCirco, EngineFDP, EngineSFDP, EngineTwopi, EngineDot} {
		r.RegisterStatic(Graphviz[N]{Engine: e})
	}
	r.RegisterIterative("spring", func() Iterative[N] { return NewSpring[N](SpringOptions{}) })
	return r
}

// RegisterStatic adds alg under alg.Name(), replacing any previous entry.
func (r *Registry[N]) RegisterStatic(alg Static[N]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statics[alg.Name()] = alg
}

// RegisterIterative adds a constructor for a stateful algorithm. Each call
// to [Registry.Iterative] returns a fresh instance.
func (r *Registry[N]) RegisterIterative(name string, newFn func() Iterative[N]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterative[name] = newFn
}

// Static looks up a static algorithm by name.
func (r *Registry[N]) Static(name string) (Static[N], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, ok := r.statics[name]
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeNotFound, "unknown static layout %q (available: %v)", name, sortedKeys(r.statics))
	}
	return alg, nil
}

// Iterative creates a new instance of the named iterative algorithm.
func (r *Registry[N]) Iterative(name string) (Iterative[N], error) {
	r.mu.RLock()
	newFn, ok := r.iterative[name]
	names := sortedKeys(r.iterative)
	r.mu.RUnlock()
	if !ok {
		return nil, lgerrors.New(lgerrors.ErrCodeNotFound, "unknown iterative layout %q (available: %v)", name, names)
	}
	return newFn(), nil
}

// StaticNames returns the registered static algorithm names, sorted.
func (r *Registry[N]) StaticNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.statics)
}

// IterativeNames returns the registered iterative algorithm names, sorted.
func (r *Registry[N]) IterativeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.iterative)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
