package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "layout:k", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if data, hit, err := c.Get(ctx, "layout:k"); err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want a miss", data, hit, err)
	}
	if err := c.Delete(ctx, "layout:k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// LayoutKey should include options in hash
	lk1 := k.LayoutKey("hash123", LayoutKeyOpts{Algorithm: "spring", Iterations: 100})
	lk2 := k.LayoutKey("hash123", LayoutKeyOpts{Algorithm: "spring", Iterations: 200})
	if lk1 == lk2 {
		t.Error("Different LayoutKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(lk1, "layout:") {
		t.Errorf("LayoutKey unexpected: %s", lk1)
	}

	// StatsKey ignores subset order and duplicates
	sk1 := k.StatsKey("hash123", "additive(count)", []string{"b", "a"})
	sk2 := k.StatsKey("hash123", "additive(count)", []string{"a", "b", "a"})
	if sk1 != sk2 {
		t.Error("StatsKey should not depend on subset order")
	}
	if sk1 == k.StatsKey("hash123", "additive(degree)", []string{"a", "b"}) {
		t.Error("Different metrics should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "user:123:")

	// All keys should be prefixed
	layoutKey := scoped.LayoutKey("hash", LayoutKeyOpts{})
	if layoutKey != "user:123:"+inner.LayoutKey("hash", LayoutKeyOpts{}) {
		t.Errorf("ScopedKeyer LayoutKey unexpected: %s", layoutKey)
	}

	statsKey := scoped.StatsKey("hash", "degree", nil)
	if len(statsKey) < 15 || statsKey[:9] != "user:123:" {
		t.Errorf("ScopedKeyer StatsKey should be prefixed: %s", statsKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.StatsKey("h", "degree", nil)
	if key != "prefix:"+NewDefaultKeyer().StatsKey("h", "degree", nil) {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestGraphHash(t *testing.T) {
	g1 := graph.NewBuilder[string](false).AddEdge("a", "b").Build()
	g2 := graph.NewBuilder[string](false).AddEdge("a", "b").Build()
	g3 := graph.NewBuilder[string](true).AddEdge("a", "b").Build()

	h1, err := GraphHash(g1)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := GraphHash(g2)
	h3, _ := GraphHash(g3)
	if h1 != h2 {
		t.Error("equal graphs should hash equally")
	}
	if h1 == h3 {
		t.Error("directedness should change the hash")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "layout:x"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "layout:x", []byte("positions"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "layout:x")
	if err != nil || !hit || string(data) != "positions" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}

	// Expired entries are misses
	if err := c.Set(ctx, "layout:old", []byte("stale"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "layout:old"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "stats:y", []byte("report"), 0); err != nil {
		t.Fatal(err)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d entries, want 2", n)
	}
	if _, hit, _ := c.Get(ctx, "stats:y"); hit {
		t.Error("entry survived Clear")
	}
	if err := c.Delete(ctx, "stats:y"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

type countingHooks struct {
	hits, misses, sets map[string]int
}

var _ observability.CacheHooks = (*countingHooks)(nil)

func (h *countingHooks) OnCacheHit(_ context.Context, kt string)        { h.hits[kt]++ }
func (h *countingHooks) OnCacheMiss(_ context.Context, kt string)       { h.misses[kt]++ }
func (h *countingHooks) OnCacheSet(_ context.Context, kt string, _ int) { h.sets[kt]++ }

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hooks := &countingHooks{hits: map[string]int{}, misses: map[string]int{}, sets: map[string]int{}}
	c := Instrument(fc, hooks)
	keyer := NewScopedKeyer(nil, "tenant:")
	key := keyer.LayoutKey("g", LayoutKeyOpts{})

	_, _, _ = c.Get(ctx, key)
	_ = c.Set(ctx, key, []byte("x"), 0)
	_, _, _ = c.Get(ctx, key)

	if hooks.misses["layout"] != 1 || hooks.sets["layout"] != 1 || hooks.hits["layout"] != 1 {
		t.Errorf("hooks saw hits=%v misses=%v sets=%v", hooks.hits, hooks.misses, hooks.sets)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("Retryable(ErrNetwork) = %v, should be retryable and wrap ErrNetwork", err)
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("message = %q, want %q", err.Error(), ErrNetwork.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("unmarked error should not be retryable")
	}
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Initial: time.Millisecond}
	errFatal := errors.New("fatal")

	tests := []struct {
		name      string
		failures  int   // calls that fail before success
		failWith  error // error returned on failure
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"retry then succeed", 2, Retryable(ErrNetwork), 3, nil},
		{"non-retryable stops", 5, errFatal, 1, errFatal},
		{"attempts exhausted", 5, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fast.Do(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil || tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := DefaultBackoff.Do(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("stats:z")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "stats:z"); err != nil || hit {
		t.Fatalf("Get = hit %v, err %v; want a miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}
