package manager

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/coords"
	"github.com/matzehuels/livegraph/pkg/layout"
	"github.com/matzehuels/livegraph/pkg/observability"
)

const (
	DefaultTickDelay        = 10 * time.Millisecond // Default pause between ticks
	DefaultItersPerTick     = 2                     // Default Iterate calls per tick
	DefaultStopTimeout      = time.Second           // Default bounded wait when stopping
	DefaultWarmupIterations = 100                   // Iterations before cooling starts
	DefaultHalfLife         = 200.0                 // Iterations for cooling to halve
)

// CoolingCurve maps the number of iterations past warmup to a factor applied
// to the baseline cooling parameter. It must return a value in (0, 1] and be
// non-increasing.
type CoolingCurve func(x float64) float64

// HyperbolicCooling returns f(x) = 1 / (1 + x/halfLife), which halves after
// halfLife iterations and never reaches zero.
func HyperbolicCooling(halfLife float64) CoolingCurve {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return func(x float64) float64 {
		return 1 / (1 + math.Max(0, x)/halfLife)
	}
}

// Options configures a [Manager].
type Options[N comparable] struct {
	Logger *log.Logger // Logger (default: discard)

	TickDelay    time.Duration // Pause between the end of a tick and the next (default: 10ms)
	ItersPerTick int           // Iterate calls per tick (default: 2)
	StopTimeout  time.Duration // Bounded wait for an in-flight tick (default: 1s)

	// MaxInactive bounds retained positions of removed nodes
	// (default: coords.DefaultMaxInactive, negative: unbounded).
	MaxInactive int

	Initial layout.Static[N] // Placement for the first graph (default: circle)
	Adding  layout.Static[N] // Placement of new nodes on later graphs (default: adding)
	Params  layout.Params    // Parameters for both static layouts

	Cooling          CoolingCurve // Cooling decay (default: HyperbolicCooling(200))
	WarmupIterations int          // Iterations before cooling applies (default: 100)

	Hooks observability.LayoutHooks // Instrumentation (default: observability.Layout())
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options[N]) WithDefaults() Options[N] {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.TickDelay <= 0 {
		o.TickDelay = DefaultTickDelay
	}
	if o.ItersPerTick <= 0 {
		o.ItersPerTick = DefaultItersPerTick
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.MaxInactive == 0 {
		o.MaxInactive = coords.DefaultMaxInactive
	}
	if o.Initial == nil {
		o.Initial = layout.Circle[N]{}
	}
	if o.Adding == nil {
		o.Adding = layout.Adding[N]{}
	}
	o.Params = o.Params.WithDefaults()
	if o.Cooling == nil {
		o.Cooling = HyperbolicCooling(DefaultHalfLife)
	}
	if o.WarmupIterations <= 0 {
		o.WarmupIterations = DefaultWarmupIterations
	}
	if o.Hooks == nil {
		o.Hooks = observability.Layout()
	}
	return o
}

// ValidateSchedule checks tick settings supplied at runtime.
func ValidateSchedule(delay time.Duration, iters int) error {
	if delay < 0 {
		return fmt.Errorf("tick delay must not be negative, got %s", delay)
	}
	if iters < 1 {
		return fmt.Errorf("iterations per tick must be at least 1, got %d", iters)
	}
	return nil
}
