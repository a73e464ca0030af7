package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "livegraph.toml", `
[layout]
algorithm = "spring"
tick_delay = "25ms"
iters_per_tick = 4

[layout.params]
width = 1000

[cache]
backend = "none"
prefix = "staging:"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.TickDelay != 25*time.Millisecond {
		t.Errorf("TickDelay = %v, want 25ms", cfg.Layout.TickDelay)
	}
	if cfg.Layout.ItersPerTick != 4 {
		t.Errorf("ItersPerTick = %d, want 4", cfg.Layout.ItersPerTick)
	}
	if cfg.Layout.Params.Width != 1000 {
		t.Errorf("Width = %v, want 1000", cfg.Layout.Params.Width)
	}
	// Unset fields keep their defaults.
	if cfg.Layout.Params.Height != Default().Layout.Params.Height {
		t.Errorf("Height = %v, want default", cfg.Layout.Params.Height)
	}
	if cfg.Layout.StopTimeout != time.Second {
		t.Errorf("StopTimeout = %v, want 1s", cfg.Layout.StopTimeout)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.Prefix != "staging:" {
		t.Errorf("Prefix = %q, want staging:", cfg.Cache.Prefix)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "livegraph.yml", `
layout:
  algorithm: spring
  tick_delay: 5ms
  half_life: 50
server:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.TickDelay != 5*time.Millisecond {
		t.Errorf("TickDelay = %v, want 5ms", cfg.Layout.TickDelay)
	}
	if cfg.Layout.HalfLife != 50 {
		t.Errorf("HalfLife = %v, want 50", cfg.Layout.HalfLife)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Layout.ItersPerTick != 2 {
		t.Errorf("ItersPerTick = %d, want default 2", cfg.Layout.ItersPerTick)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown extension", "config.ini", "x=1", "unsupported"},
		{"bad toml", "bad.toml", "[layout\n", "parse config"},
		{"bad yaml", "bad.yaml", "layout: [", "parse config"},
		{"invalid values", "invalid.toml", "[layout]\niters_per_tick = -1\n", "iters_per_tick"},
		{"redis without addr", "redis.yaml", "cache:\n  backend: redis\n", "redis_addr"},
		{"prefix with space", "prefix.toml", "[cache]\nprefix = \"a b\"\n", "cache.prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !lgerrors.Is(err, lgerrors.ErrCodeInvalidConfig) {
				t.Errorf("code = %v, want INVALID_CONFIG", lgerrors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Layout.TickDelay = 0
	cfg.Layout.HalfLife = -1
	cfg.Cache.Backend = "s3"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"tick_delay", "half_life", "cache.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := map[string]string{
		"a.toml":     "toml",
		"a.TOML":     "toml",
		"dir/a.yaml": "yaml",
		"a.yml":      "yaml",
		"a.json":     "",
	}
	for path, want := range tests {
		if got := Format(path); got != want {
			t.Errorf("Format(%q) = %q, want %q", path, got, want)
		}
	}
}
