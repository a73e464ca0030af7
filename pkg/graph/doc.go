// Package graph provides the read-only graph model consumed by layout and
// metrics code, plus the node-link JSON format used to import graphs.
//
// # Core Types
//
//   - [Graph]: query interface over an immutable snapshot, generic over the node type
//   - [Edge]: endpoint pair, ordered only for directed graphs
//   - [Simple]: adjacency-list implementation built with [Builder]
//
// # Building Graphs
//
//	g := graph.NewBuilder[string](true).
//	    AddEdge("a", "b").
//	    AddEdge("b", "c").
//	    Build()
//
//	g.Degree("b")       // 2
//	g.OutNeighbors("a") // [b]
//
// # Serialization
//
// Graphs use a simple node-link JSON format:
//
//	{
//	  "directed": true,
//	  "nodes": [{"id": "a"}, {"id": "b"}],
//	  "edges": [{"from": "a", "to": "b"}]
//	}
//
// Use [ReadGraphFile] or [ReadGraph] to import one.
//
// # Concurrency
//
// A built [Simple] graph is never mutated again and is safe for concurrent reads.
// [Builder] is not safe for concurrent use.
package graph
