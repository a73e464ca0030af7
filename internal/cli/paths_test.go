package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, output, want string
	}{
		{"graph.json", "", "graph.layout.json"},
		{"dir/g.json", "", "dir/g.layout.json"},
		{"noext", "", "noext.layout.json"},
		{"graph.json", "out.json", "out.json"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.output, "layout.json"); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.input, tt.output, got, tt.want)
		}
	}
}

func TestParseSubset(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a, b ,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := parseSubset(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseSubset(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
