package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Node-Link Serialization
// =============================================================================

// Document is the node-link JSON format accepted by [ReadGraph].
//
//	{
//	  "directed": true,
//	  "nodes": [{"id": "a"}, {"id": "b"}],
//	  "edges": [{"from": "a", "to": "b"}]
//	}
type Document struct {
	Directed bool       `json:"directed"`
	Nodes    []NodeJSON `json:"nodes"`
	Edges    []EdgeJSON `json:"edges"`
}

// NodeJSON is a serialized node.
type NodeJSON struct {
	ID string `json:"id"`
}

// EdgeJSON is a serialized edge.
type EdgeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReadGraphFile reads a JSON file and returns the decoded graph.
func ReadGraphFile(path string) (*Simple[string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes a node-link JSON document.
// Edges may reference nodes that are not listed; they are added implicitly.
func ReadGraph(r io.Reader) (*Simple[string], error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc.Build()
}

// Build converts the document into a graph.
func (d Document) Build() (*Simple[string], error) {
	b := NewBuilder[string](d.Directed)
	for _, n := range d.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node ID must not be empty")
		}
		b.AddNode(n.ID)
	}
	for _, e := range d.Edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("edge %q→%q: empty endpoint", e.From, e.To)
		}
		b.AddEdge(e.From, e.To)
	}
	return b.Build(), nil
}

// FromGraph converts a string-keyed graph to its serialized form.
func FromGraph(g Graph[string]) Document {
	doc := Document{Directed: g.Directed()}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeJSON{ID: n})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeJSON{From: e.From, To: e.To})
	}
	return doc
}

// MarshalGraph encodes a graph as indented JSON. The encoding doubles as the
// content used for cache keys, so it must stay deterministic.
func MarshalGraph(g Graph[string]) ([]byte, error) {
	data, err := json.MarshalIndent(FromGraph(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}
