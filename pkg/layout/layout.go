package layout

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/livegraph/pkg/graph"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultWidth is the default width of the placement frame.
	DefaultWidth = 800.0

	// DefaultHeight is the default height of the placement frame.
	DefaultHeight = 600.0

	// DefaultSeed is the default seed for deterministic jitter.
	DefaultSeed = uint64(42)
)

// ErrConcurrentIterate is returned by [Iterative.Iterate] when another
// Iterate call on the same instance is still in flight.
var ErrConcurrentIterate = errors.New("iterate called concurrently")

// =============================================================================
// Params
// =============================================================================

// Params configures static placement.
type Params struct {
	Width  float64 `json:"width,omitempty" toml:"width" yaml:"width"`
	Height float64 `json:"height,omitempty" toml:"height" yaml:"height"`
	Seed   uint64  `json:"seed,omitempty" toml:"seed" yaml:"seed"`
}

// WithDefaults returns p with zero fields replaced by defaults.
func (p Params) WithDefaults() Params {
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}
	return p
}

// spacing is the preferred distance between neighbouring nodes when n nodes
// share the frame.
func (p Params) spacing(n int) float64 {
	if n < 1 {
		n = 1
	}
	return math.Sqrt(p.Width*p.Height/float64(n)) / 2
}

// =============================================================================
// Algorithms
// =============================================================================

// Static is a one-shot placement function.
//
// Layout returns a position for every node of g. current holds positions
// known before the call (it may be nil) and is never modified. Nodes listed in
// locked that have a current position keep it.
type Static[N comparable] interface {
	Name() string
	Layout(ctx context.Context, g graph.Graph[N], current map[N]r2.Vec, locked []N, p Params) (map[N]r2.Vec, error)
}

// Iterative is a stateful refinement algorithm.
//
// Iterate advances the layout by one iteration made of several whole
// sub-steps and must not be called concurrently with itself. When ctx is
// cancelled between sub-steps, Iterate keeps the sub-steps already completed
// and returns ctx.Err(); the iteration counter only advances for complete
// calls.
//
// Every other method is safe to call at any time, including while Iterate is
// running on another goroutine.
type Iterative[N comparable] interface {
	Name() string
	Iterate(ctx context.Context, g graph.Graph[N]) error

	Iteration() int
	Energy() float64
	PositionsCopy() map[N]r2.Vec

	CoolingParameter() float64
	SetCoolingParameter(v float64)

	LockedNodes() []N
	SetLockedNodes(nodes []N)

	// RequestPositions merges position overrides into the next sub-step.
	// When resetNodes is true the managed node universe is replaced by the
	// keys of positions, dropping every other node.
	RequestPositions(positions map[N]r2.Vec, resetNodes bool)
}

// =============================================================================
// Helpers
// =============================================================================

func toSet[N comparable](nodes []N) map[N]struct{} {
	set := make(map[N]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return set
}

// keepLocked copies the current position of every locked node into out.
func keepLocked[N comparable](out, current map[N]r2.Vec, locked []N) {
	for _, n := range locked {
		if p, ok := current[n]; ok {
			if _, inGraph := out[n]; inGraph {
				out[n] = p
			}
		}
	}
}

// golden is the golden angle in radians, used to spread points evenly.
var golden = math.Pi * (3 - math.Sqrt(5))

// spiral returns the i-th point of a golden-angle spiral of the given step.
func spiral(i int, step float64) r2.Vec {
	r := step * math.Sqrt(float64(i+1))
	a := float64(i) * golden
	return r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
