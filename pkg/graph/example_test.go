package graph_test

import (
	"fmt"

	"github.com/matzehuels/livegraph/pkg/graph"
)

func ExampleBuilder() {
	g := graph.NewBuilder[string](true).
		AddEdge("A", "B").
		AddEdge("B", "C").
		Build()

	fmt.Println("Degree(B):", g.Degree("B"))
	fmt.Println("OutNeighbors(A):", g.OutNeighbors("A"))
	fmt.Println("InNeighbors(C):", g.InNeighbors("C"))
	fmt.Println("Degree(Z):", g.Degree("Z"))
	// Output:
	// Degree(B): 2
	// OutNeighbors(A): [B]
	// InNeighbors(C): [B]
	// Degree(Z): 0
}
