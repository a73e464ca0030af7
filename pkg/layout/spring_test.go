package layout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

func TestSpringIterate(t *testing.T) {
	g := pathGraph("a", "b", "c")
	s := NewSpring[string](SpringOptions{})
	s.RequestPositions(map[string]r2.Vec{"a": {X: 0}, "b": {X: 1}, "c": {X: 2}}, true)
	s.SetLockedNodes([]string{"a"})

	for i := 0; i < 5; i++ {
		if err := s.Iterate(context.Background(), g); err != nil {
			t.Fatalf("Iterate: %v", err)
		}
	}
	if s.Iteration() != 5 {
		t.Errorf("Iteration = %d, want 5", s.Iteration())
	}
	pos := s.PositionsCopy()
	if pos["a"] != (r2.Vec{}) {
		t.Errorf("locked node moved to %v", pos["a"])
	}
	if pos["b"] == (r2.Vec{X: 1}) {
		t.Error("free node did not move")
	}
	if s.Energy() <= 0 {
		t.Errorf("Energy = %v, want > 0", s.Energy())
	}
}

func TestSpringPlacesMissingNodes(t *testing.T) {
	s := NewSpring[string](SpringOptions{})
	if err := s.Iterate(context.Background(), pathGraph("a", "b")); err != nil {
		t.Fatal(err)
	}
	pos := s.PositionsCopy()
	if len(pos) != 2 || pos["a"] == pos["b"] {
		t.Errorf("positions = %v", pos)
	}
}

func TestSpringCancelled(t *testing.T) {
	s := NewSpring[string](SpringOptions{})
	s.RequestPositions(map[string]r2.Vec{"a": {X: 0}, "b": {X: 1}}, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Iterate(ctx, pathGraph("a", "b"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.Iteration() != 0 {
		t.Errorf("Iteration = %d after interrupted call, want 0", s.Iteration())
	}
	if p := s.PositionsCopy()["b"]; p != (r2.Vec{X: 1}) {
		t.Errorf("b moved to %v without a completed sub-step", p)
	}
}

func TestSpringRequestReset(t *testing.T) {
	s := NewSpring[string](SpringOptions{})
	s.RequestPositions(map[string]r2.Vec{"a": {}, "b": {X: 1}, "c": {X: 2}}, true)
	s.SetLockedNodes([]string{"c"})
	s.RequestPositions(map[string]r2.Vec{"a": {X: 5}}, true)

	pos := s.PositionsCopy()
	if len(pos) != 1 || pos["a"] != (r2.Vec{X: 5}) {
		t.Fatalf("PositionsCopy = %v, want only a", pos)
	}

	s.RequestPositions(map[string]r2.Vec{"b": {X: 9}}, false)
	if err := s.Iterate(context.Background(), pathGraph("a", "b")); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.PositionsCopy()["c"]; ok {
		t.Error("reset did not drop c")
	}
	if len(s.LockedNodes()) != 0 {
		t.Errorf("LockedNodes = %v, want empty after reset dropped c", s.LockedNodes())
	}
}

func TestSpringCooling(t *testing.T) {
	s := NewSpring[string](SpringOptions{Cooling: 3})
	if s.CoolingParameter() != 3 {
		t.Errorf("CoolingParameter = %v", s.CoolingParameter())
	}
	s.SetCoolingParameter(0)
	s.SetCoolingParameter(-1)
	if s.CoolingParameter() != 3 {
		t.Errorf("non-positive cooling accepted: %v", s.CoolingParameter())
	}
	s.SetCoolingParameter(0.5)
	if s.CoolingParameter() != 0.5 {
		t.Errorf("CoolingParameter = %v, want 0.5", s.CoolingParameter())
	}
}

// gatedGraph blocks the first Nodes call until gate is closed.
type gatedGraph struct {
	graph.Graph[string]
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedGraph) Nodes() []string {
	g.once.Do(func() {
		close(g.entered)
		<-g.gate
	})
	return g.Graph.Nodes()
}

func TestSpringRejectsConcurrentIterate(t *testing.T) {
	g := &gatedGraph{Graph: pathGraph("a", "b"), entered: make(chan struct{}), gate: make(chan struct{})}
	s := NewSpring[string](SpringOptions{})

	done := make(chan error, 1)
	go func() { done <- s.Iterate(context.Background(), g) }()
	<-g.entered

	if err := s.Iterate(context.Background(), g); !errors.Is(err, ErrConcurrentIterate) {
		t.Errorf("second Iterate err = %v, want ErrConcurrentIterate", err)
	}
	close(g.gate)
	if err := <-done; err != nil {
		t.Errorf("first Iterate: %v", err)
	}
	if s.Iteration() != 1 {
		t.Errorf("Iteration = %d, want 1", s.Iteration())
	}
}

func TestSpringAccessorsDuringIterate(t *testing.T) {
	g := pathGraph("a", "b", "c", "d", "e")
	s := NewSpring[string](SpringOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_ = s.Iterate(ctx, g)
		}
	}()

	for i := 0; i < 200; i++ {
		_ = s.PositionsCopy()
		_ = s.Energy()
		s.SetCoolingParameter(float64(i + 1))
		s.SetLockedNodes([]string{"a"})
		s.RequestPositions(map[string]r2.Vec{"b": {X: float64(i)}}, i%50 == 0)
	}
	cancel()
	wg.Wait()
}
