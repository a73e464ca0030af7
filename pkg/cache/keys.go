package cache

import (
	"slices"
)

// Key prefixes.
const (
	PrefixLayout = "layout"
	PrefixStats  = "stats"
)

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey addresses the positions computed for a graph with opts.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// StatsKey addresses a metric report for a graph. subset is empty for
	// node and global metrics.
	StatsKey(graphHash, metricID string, subset []string) string
}

// LayoutKeyOpts lists every option that changes a computed layout.
type LayoutKeyOpts struct {
	Algorithm    string  `json:"algorithm"`
	Initial      string  `json:"initial"`
	Iterations   int     `json:"iterations"`
	ItersPerTick int     `json:"iters_per_tick"`
	Warmup       int     `json:"warmup"`
	HalfLife     float64 `json:"half_life"`
	SpringK      float64 `json:"spring_k"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Seed         uint64  `json:"seed"`
}

// DefaultKeyer hashes the key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey(PrefixLayout, graphHash, opts)
}

// StatsKey returns "stats:<hash>". The subset is order-insensitive.
func (DefaultKeyer) StatsKey(graphHash, metricID string, subset []string) string {
	sorted := slices.Clone(subset)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return hashKey(PrefixStats, graphHash, metricID, sorted)
}
