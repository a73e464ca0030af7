// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about layout ticks, stats computation, cache operations,
// and served HTTP requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Components that accept hooks explicitly (such as the layout manager's
// Options.Hooks) fall back to the registered hooks when none are given.
// The [prom] subpackage provides a Prometheus implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetLayoutHooks(h)
//	    observability.SetStatsHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnTick(ctx, "spring", 2, energy, elapsed, err)
//
// [prom]: github.com/matzehuels/livegraph/pkg/observability/prom
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout manager.
type LayoutHooks interface {
	// OnTick records one background or manual layout tick. iterations is the
	// number of whole iterations completed and published.
	OnTick(ctx context.Context, algorithm string, iterations int, energy float64, duration time.Duration, err error)

	// OnTaskState records a background task state transition.
	OnTaskState(ctx context.Context, from, to string)

	// OnGraphSwap records a graph replacement and the store reconciliation.
	OnGraphSwap(ctx context.Context, nodes, added, removed int)
}

// =============================================================================
// Stats Hooks
// =============================================================================

// StatsHooks receives events from the metric stats cache.
type StatsHooks interface {
	// OnStatsHit records a cached metric result being returned.
	OnStatsHit(ctx context.Context, metricID string)

	// OnStatsMiss records a metric being computed.
	OnStatsMiss(ctx context.Context, metricID string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records a served request.
	OnRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnTick(context.Context, string, int, float64, time.Duration, error) {}
func (NoopLayoutHooks) OnTaskState(context.Context, string, string)                        {}
func (NoopLayoutHooks) OnGraphSwap(context.Context, int, int, int)                         {}

// NoopStatsHooks is a no-op implementation of StatsHooks.
type NoopStatsHooks struct{}

func (NoopStatsHooks) OnStatsHit(context.Context, string)                 {}
func (NoopStatsHooks) OnStatsMiss(context.Context, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// slot holds one registered hook implementation.
type slot[H any] struct {
	mu   sync.RWMutex
	h    H
	noop H
}

func (s *slot[H]) set(h H) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *slot[H]) get() H {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

func (s *slot[H]) reset() {
	s.mu.Lock()
	s.h = s.noop
	s.mu.Unlock()
}

var (
	layoutSlot = &slot[LayoutHooks]{h: NoopLayoutHooks{}, noop: NoopLayoutHooks{}}
	statsSlot  = &slot[StatsHooks]{h: NoopStatsHooks{}, noop: NoopStatsHooks{}}
	cacheSlot  = &slot[CacheHooks]{h: NoopCacheHooks{}, noop: NoopCacheHooks{}}
	httpSlot   = &slot[HTTPHooks]{h: NoopHTTPHooks{}, noop: NoopHTTPHooks{}}
)

// SetLayoutHooks registers layout hooks. Call it before creating managers:
// a manager captures the hooks registered at construction. A nil h is ignored.
func SetLayoutHooks(h LayoutHooks) { layoutSlot.set(h) }

// SetStatsHooks registers stats hooks. A nil h is ignored.
func SetStatsHooks(h StatsHooks) { statsSlot.set(h) }

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h) }

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// Layout returns the registered layout hooks.
func Layout() LayoutHooks { return layoutSlot.get() }

// Stats returns the registered stats hooks.
func Stats() StatsHooks { return statsSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Reset restores the no-op hooks. Tests that register hooks call it in
// cleanup.
func Reset() {
	layoutSlot.reset()
	statsSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
