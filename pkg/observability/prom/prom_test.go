package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHooksRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg)
	ctx := context.Background()

	h.OnTick(ctx, "spring", 2, 3.5, time.Millisecond, nil)
	h.OnTick(ctx, "spring", 1, 1.0, time.Millisecond, errors.New("boom"))
	h.OnGraphSwap(ctx, 10, 4, 1)
	h.OnStatsHit(ctx, "degree")
	h.OnStatsMiss(ctx, "degree", time.Millisecond)
	h.OnCacheSet(ctx, "layout", 128)
	h.OnRequest(ctx, "GET", "/positions", 200, time.Millisecond)

	if got := testutil.ToFloat64(h.Ticks.WithLabelValues("spring", "ok")); got != 1 {
		t.Errorf("ok ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.TickIterations.WithLabelValues("spring")); got != 3 {
		t.Errorf("iterations = %v, want 3", got)
	}
	if got := testutil.ToFloat64(h.Energy.WithLabelValues("spring")); got != 1.0 {
		t.Errorf("energy = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.GraphNodes); got != 10 {
		t.Errorf("graph nodes = %v, want 10", got)
	}
	if got := testutil.ToFloat64(h.CacheBytes.WithLabelValues("layout")); got != 128 {
		t.Errorf("cache bytes = %v, want 128", got)
	}
	if got := testutil.ToFloat64(h.Requests.WithLabelValues("GET", "/positions", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	New(reg)
}
