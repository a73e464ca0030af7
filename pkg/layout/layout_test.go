package layout

import (
	"bytes"
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

func pathGraph(nodes ...string) *graph.Simple[string] {
	b := graph.NewBuilder[string](false)
	for i, n := range nodes {
		b.AddNode(n)
		if i > 0 {
			b.AddEdge(nodes[i-1], n)
		}
	}
	return b.Build()
}

func TestCircle(t *testing.T) {
	g := pathGraph("a", "b", "c", "d")
	locked := r2.Vec{X: 7, Y: 7}

	got, err := Circle[string]{}.Layout(context.Background(), g, map[string]r2.Vec{"b": locked}, []string{"b", "zz"}, Params{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d positions, want 4", len(got))
	}
	if got["b"] != locked {
		t.Errorf("locked node moved to %v", got["b"])
	}
	if _, ok := got["zz"]; ok {
		t.Error("locked node outside the graph was placed")
	}
	want := 0.4 * DefaultHeight
	if r := r2.Norm(got["a"]); math.Abs(r-want) > 1e-9 {
		t.Errorf("radius = %v, want %v", r, want)
	}
}

func TestCircleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Circle[string]{}).Layout(ctx, pathGraph("a"), nil, nil, Params{}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAddingKeepsExisting(t *testing.T) {
	b := graph.NewBuilder[string](false)
	b.AddEdge("a", "b").AddEdge("b", "c")
	b.AddEdge("c", "d").AddEdge("a", "e")
	b.AddNode("f").AddNode("g")
	g := b.Build()

	current := map[string]r2.Vec{
		"a": {X: 0, Y: 0},
		"b": {X: 100, Y: 0},
		"c": {X: 100, Y: 100},
		"x": {X: 5, Y: 5}, // stale entry outside the graph
	}
	got, err := Adding[string]{}.Layout(context.Background(), g, current, nil, Params{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(got) != g.NodeCount() {
		t.Fatalf("got %d positions, want %d", len(got), g.NodeCount())
	}
	for _, n := range []string{"a", "b", "c"} {
		if got[n] != current[n] {
			t.Errorf("existing node %s moved: %v -> %v", n, current[n], got[n])
		}
	}
	if _, ok := got["x"]; ok {
		t.Error("node outside the graph was returned")
	}

	added := []string{"d", "e", "f", "g"}
	for _, n := range added {
		if !finite(got[n]) {
			t.Errorf("%s has non-finite position %v", n, got[n])
		}
	}
	for i, n := range g.Nodes() {
		for _, m := range g.Nodes()[i+1:] {
			if got[n] == got[m] {
				t.Errorf("%s and %s share position %v", n, m, got[n])
			}
		}
	}
}

func TestAddingEmptyFallsBackToCircle(t *testing.T) {
	g := pathGraph("a", "b", "c")
	got, err := Adding[string]{}.Layout(context.Background(), g, nil, nil, Params{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	want, _ := Circle[string]{}.Layout(context.Background(), g, nil, nil, Params{})
	for n, p := range want {
		if got[n] != p {
			t.Errorf("%s = %v, want %v", n, got[n], p)
		}
	}
}

func TestParsePositions(t *testing.T) {
	out := []byte(`graph G {
	graph [bb="0,0,126,90", overlap=false];
	node [label="\N", shape=point];
	n0	[height=0.05, pos="27,18", width=0.05];
	n1	[height=0.05,
		pos="-12.5,72.25",
		width=0.05];
	n0 -- n1	[pos="27,18 50,40 80,60 99,72"];
	n2	[pos="1e+02,3!"];
	n9	[pos="0,0"];
}
`)
	got, err := parsePositions(out, 3)
	if err != nil {
		t.Fatalf("parsePositions: %v", err)
	}
	want := map[int]r2.Vec{0: {X: 27, Y: 18}, 1: {X: -12.5, Y: 72.25}, 2: {X: 100, Y: 3}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("n%d = %v, want %v", i, got[i], p)
		}
	}
}

func TestToDOTPinsLocked(t *testing.T) {
	b := graph.NewBuilder[string](true)
	b.AddEdge("a", "b")
	dot, ids := toDOT[string](b.Build(), map[string]r2.Vec{"a": {X: 1, Y: 2}}, toSet([]string{"a"}))

	if ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v", ids)
	}
	for _, want := range []string{"digraph G {", `n0 [pos="1,2!"];`, "n1;", "n0 -> n1;"} {
		if !bytes.Contains([]byte(dot), []byte(want)) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestGraphvizLayout(t *testing.T) {
	g := pathGraph("a", "b", "c", "d")
	got, err := Graphviz[string]{}.Layout(context.Background(), g, nil, nil, Params{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d positions, want 4", len(got))
	}
	for n, p := range got {
		if !finite(p) {
			t.Errorf("%s has non-finite position %v", n, p)
		}
	}
}

func TestGraphvizFitsFrame(t *testing.T) {
	g := pathGraph("a", "b", "c", "d", "e")
	p := Params{Width: 100, Height: 50}
	got, err := Graphviz[string]{}.Layout(context.Background(), g, nil, nil, p)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	lo, hi := bounds(got)
	const eps = 1e-6
	if lo.X < -40-eps || hi.X > 40+eps || lo.Y < -20-eps || hi.Y > 20+eps {
		t.Errorf("bounds %v..%v exceed 80%% of a 100x50 frame", lo, hi)
	}
	w, h := hi.X-lo.X, hi.Y-lo.Y
	if math.Abs(w-80) > eps && math.Abs(h-40) > eps {
		t.Errorf("extent %gx%g fills neither axis of the frame", w, h)
	}
	if c := r2.Scale(0.5, r2.Add(lo, hi)); r2.Norm(c) > eps {
		t.Errorf("drawing centred at %v, want origin", c)
	}
}

func TestFitScale(t *testing.T) {
	p := Params{Width: 100, Height: 50}
	tests := []struct {
		extent r2.Vec
		want   float64
	}{
		{r2.Vec{X: 200, Y: 10}, 0.4},
		{r2.Vec{X: 10, Y: 200}, 0.2},
		{r2.Vec{X: 0, Y: 20}, 2},
		{r2.Vec{}, 1},
	}
	for _, tt := range tests {
		if got := fitScale(tt.extent, p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("fitScale(%v) = %g, want %g", tt.extent, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry[string]()

	for _, name := range []string{"circle", "adding", "graphviz-neato", "graphviz-dot"} {
		alg, err := r.Static(name)
		if err != nil {
			t.Errorf("Static(%q): %v", name, err)
			continue
		}
		if alg.Name() != name {
			t.Errorf("Static(%q).Name() = %q", name, alg.Name())
		}
	}
	if _, err := r.Static("nope"); err == nil {
		t.Error("expected error for unknown static layout")
	}

	a, err := r.Iterative("spring")
	if err != nil {
		t.Fatalf("Iterative: %v", err)
	}
	b, _ := r.Iterative("spring")
	if a == b {
		t.Error("Iterative returned a shared instance")
	}
	if names := r.IterativeNames(); len(names) != 1 || names[0] != "spring" {
		t.Errorf("IterativeNames = %v", names)
	}
}

func TestSnapshot(t *testing.T) {
	pos := map[string]r2.Vec{"b": {X: 1, Y: 2}, "a": {X: 3, Y: 4}}
	s := NewSnapshot([]string{"a", "b", "missing"}, pos)
	s.Algorithm = "spring"

	var buf bytes.Buffer
	if err := WriteSnapshot(s, &buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	back, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(back.Nodes) != 2 || back.Nodes[0].ID != "a" || back.Nodes[1].ID != "b" {
		t.Errorf("nodes = %+v", back.Nodes)
	}
	if back.Positions()["b"] != pos["b"] {
		t.Errorf("b = %v", back.Positions()["b"])
	}
}
