package graph

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func chain() *Simple[string] {
	return NewBuilder[string](true).
		AddEdge("A", "B").
		AddEdge("B", "C").
		Build()
}

func TestDirectedDegrees(t *testing.T) {
	g := chain()

	tests := []struct {
		node         string
		in, out, deg int
	}{
		{"A", 0, 1, 1},
		{"B", 1, 1, 2},
		{"C", 1, 0, 1},
	}
	for _, tt := range tests {
		if got := g.InDegree(tt.node); got != tt.in {
			t.Errorf("InDegree(%s) = %d, want %d", tt.node, got, tt.in)
		}
		if got := g.OutDegree(tt.node); got != tt.out {
			t.Errorf("OutDegree(%s) = %d, want %d", tt.node, got, tt.out)
		}
		if got := g.Degree(tt.node); got != tt.deg {
			t.Errorf("Degree(%s) = %d, want %d", tt.node, got, tt.deg)
		}
	}

	if got := g.OutNeighbors("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("OutNeighbors(A) = %v, want [B]", got)
	}
	if got := g.InNeighbors("C"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("InNeighbors(C) = %v, want [B]", got)
	}
	if got := g.Neighbors("B"); len(got) != 2 {
		t.Errorf("Neighbors(B) = %v, want 2 nodes", got)
	}
}

func TestDegreeInvariant(t *testing.T) {
	edges := []Edge[int]{{1, 2}, {2, 3}, {3, 1}, {3, 3}, {4, 1}, {1, 4}}
	for _, directed := range []bool{true, false} {
		g := FromEdges(directed, []int{5}, edges)
		for _, x := range g.Nodes() {
			in, out, deg := g.InDegree(x), g.OutDegree(x), g.Degree(x)
			if directed && deg != in+out {
				t.Errorf("directed: Degree(%d) = %d, want %d+%d", x, deg, in, out)
			}
			if !directed && (deg != in || deg != out) {
				t.Errorf("undirected: Degree(%d)=%d OutDegree=%d InDegree=%d", x, deg, out, in)
			}
		}
	}
}

func TestAbsentNode(t *testing.T) {
	for _, directed := range []bool{true, false} {
		g := FromEdges(directed, nil, []Edge[string]{{"a", "b"}})
		if g.Contains("zz") {
			t.Error("Contains(zz) = true")
		}
		if g.Degree("zz") != 0 || g.InDegree("zz") != 0 || g.OutDegree("zz") != 0 {
			t.Error("degrees of absent node should be zero")
		}
		if len(g.Neighbors("zz")) != 0 || len(g.EdgesAdjacentTo("zz")) != 0 {
			t.Error("absent node should have no neighbors or edges")
		}
		if g.Adjacent("zz", "a") {
			t.Error("Adjacent(zz, a) = true")
		}
	}
}

func TestSelfLoop(t *testing.T) {
	t.Run("Undirected", func(t *testing.T) {
		g := FromEdges(false, nil, []Edge[string]{{"x", "x"}, {"x", "y"}})
		if !slices.Contains(g.Neighbors("x"), "x") {
			t.Error("Neighbors(x) should contain x when a loop exists")
		}
		if slices.Contains(g.Neighbors("y"), "y") {
			t.Error("Neighbors(y) should not contain y")
		}
		if got := g.Degree("x"); got != 2 {
			t.Errorf("Degree(x) = %d, want 2 (loop counted once)", got)
		}
		if got := len(g.EdgesAdjacentTo("x")); got != 2 {
			t.Errorf("EdgesAdjacentTo(x) = %d edges, want 2", got)
		}
	})

	t.Run("Directed", func(t *testing.T) {
		g := FromEdges(true, nil, []Edge[string]{{"x", "x"}})
		if g.OutDegree("x") != 1 || g.InDegree("x") != 1 || g.Degree("x") != 2 {
			t.Errorf("loop degrees = out %d in %d total %d", g.OutDegree("x"), g.InDegree("x"), g.Degree("x"))
		}
		if got := g.Neighbors("x"); !slices.Equal(got, []string{"x"}) {
			t.Errorf("Neighbors(x) = %v, want [x]", got)
		}
	})
}

func TestParallelEdgesCollapsed(t *testing.T) {
	g := FromEdges(false, nil, []Edge[string]{{"a", "b"}, {"b", "a"}, {"a", "b"}})
	if got := g.EdgeCount(); got != 1 {
		t.Errorf("EdgeCount = %d, want 1", got)
	}
	d := FromEdges(true, nil, []Edge[string]{{"a", "b"}, {"b", "a"}})
	if got := d.EdgeCount(); got != 2 {
		t.Errorf("directed EdgeCount = %d, want 2", got)
	}
}

func TestBuilderStartsOver(t *testing.T) {
	b := NewBuilder[string](true)
	g1 := b.AddEdge("a", "b").Build()
	b.AddEdge("c", "d")
	if g1.Contains("c") {
		t.Error("built graph was mutated by a later AddEdge")
	}
}

func TestEdgeEqual(t *testing.T) {
	e := Edge[string]{"a", "b"}
	r := Edge[string]{"b", "a"}
	if e.Equal(r, true) {
		t.Error("directed edges a→b and b→a should differ")
	}
	if !e.Equal(r, false) {
		t.Error("undirected edges a-b and b-a should be equal")
	}
	if e.Other("a") != "b" || e.Other("b") != "a" {
		t.Error("Other returned the wrong endpoint")
	}
}

// sliceGraph is a non-comparable Graph implementation.
type sliceGraph []string

func (sliceGraph) Nodes() []string                       { return nil }
func (sliceGraph) Edges() []Edge[string]                 { return nil }
func (sliceGraph) NodeCount() int                        { return 0 }
func (sliceGraph) EdgeCount() int                        { return 0 }
func (sliceGraph) Directed() bool                        { return false }
func (sliceGraph) Contains(string) bool                  { return false }
func (sliceGraph) Adjacent(string, string) bool          { return false }
func (sliceGraph) Degree(string) int                     { return 0 }
func (sliceGraph) OutDegree(string) int                  { return 0 }
func (sliceGraph) InDegree(string) int                   { return 0 }
func (sliceGraph) Neighbors(string) []string             { return nil }
func (sliceGraph) OutNeighbors(string) []string          { return nil }
func (sliceGraph) InNeighbors(string) []string           { return nil }
func (sliceGraph) EdgesAdjacentTo(string) []Edge[string] { return nil }

func TestSame(t *testing.T) {
	a, b := chain(), chain()
	s := sliceGraph{"x"}

	tests := []struct {
		name string
		x, y Graph[string]
		want bool
	}{
		{"same pointer", a, a, true},
		{"equal content", a, b, false},
		{"both nil", nil, nil, true},
		{"one nil", a, nil, false},
		{"non-comparable", s, s, false},
	}
	for _, tt := range tests {
		if got := Same(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: Same = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{
			name: "Valid",
			input: `{
				"directed": true,
				"nodes": [{"id": "A"}, {"id": "B"}],
				"edges": [{"from": "A", "to": "B"}]
			}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:      "ImplicitNodes",
			input:     `{"edges": [{"from": "A", "to": "B"}, {"from": "B", "to": "C"}]}`,
			wantNodes: 3,
			wantEdges: 2,
		},
		{
			name:    "EmptyID",
			input:   `{"nodes": [{"id": ""}]}`,
			wantErr: true,
		},
		{
			name:    "Invalid",
			input:   `{invalid json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if got := g.NodeCount(); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := g.EdgeCount(); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestReadGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	data, err := MarshalGraph(chain())
	if err != nil {
		t.Fatalf("MarshalGraph: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if !g.Directed() || g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Errorf("round trip lost structure: directed=%v nodes=%d edges=%d", g.Directed(), g.NodeCount(), g.EdgeCount())
	}

	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
