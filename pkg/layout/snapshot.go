package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r2"
)

// Snapshot is the JSON form of a set of node positions.
//
//	{"algorithm":"spring","iteration":120,"nodes":[{"id":"a","x":1,"y":2}]}
type Snapshot struct {
	Algorithm string         `json:"algorithm,omitempty"`
	Iteration int            `json:"iteration,omitempty"`
	Cooling   float64        `json:"cooling,omitempty"`
	Nodes     []NodePosition `json:"nodes"`
}

// NodePosition is one entry of a [Snapshot].
type NodePosition struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// NewSnapshot builds a snapshot listing positions in the given node order.
// Nodes without a position are skipped. IDs are formatted with fmt.Sprint.
func NewSnapshot[N comparable](order []N, positions map[N]r2.Vec) Snapshot {
	s := Snapshot{Nodes: make([]NodePosition, 0, len(order))}
	for _, n := range order {
		p, ok := positions[n]
		if !ok {
			continue
		}
		s.Nodes = append(s.Nodes, NodePosition{ID: fmt.Sprint(n), X: p.X, Y: p.Y})
	}
	return s
}

// Positions returns the snapshot as a map keyed by node ID.
func (s Snapshot) Positions() map[string]r2.Vec {
	out := make(map[string]r2.Vec, len(s.Nodes))
	for _, n := range s.Nodes {
		out[n.ID] = r2.Vec{X: n.X, Y: n.Y}
	}
	return out
}

// WriteSnapshot encodes s as indented JSON.
func WriteSnapshot(s Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportSnapshot writes s to a JSON file at path.
func ExportSnapshot(s Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteSnapshot(s, f)
}

// ReadSnapshot decodes a snapshot from r.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}

// ImportSnapshot reads a snapshot from a JSON file at path.
func ImportSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
