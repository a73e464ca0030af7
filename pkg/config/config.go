// Package config loads livegraph settings from TOML or YAML files.
//
// The format is chosen by file extension (.toml, .yaml or .yml). Missing
// fields keep the values from [Default], so a file only needs the settings it
// changes:
//
//	[layout]
//	algorithm = "spring"
//	tick_delay = "20ms"
//	iters_per_tick = 4
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// A [Loader] keeps the current configuration and can watch the file for
// changes, notifying registered callbacks after each successful reload.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	lgerrors "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/layout"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full livegraph configuration.
type Config struct {
	Layout LayoutConfig `toml:"layout" yaml:"layout"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Server ServerConfig `toml:"server" yaml:"server"`
}

// LayoutConfig configures the layout manager and its algorithms.
type LayoutConfig struct {
	Algorithm string `toml:"algorithm" yaml:"algorithm"` // Iterative algorithm name
	Initial   string `toml:"initial" yaml:"initial"`     // Static layout for the first graph
	Adding    string `toml:"adding" yaml:"adding"`       // Static layout for new nodes

	TickDelay    time.Duration `toml:"tick_delay" yaml:"tick_delay"`
	ItersPerTick int           `toml:"iters_per_tick" yaml:"iters_per_tick"`
	StopTimeout  time.Duration `toml:"stop_timeout" yaml:"stop_timeout"`
	MaxInactive  int           `toml:"max_inactive" yaml:"max_inactive"`

	Warmup   int     `toml:"warmup" yaml:"warmup"`
	HalfLife float64 `toml:"half_life" yaml:"half_life"`

	SpringK float64 `toml:"spring_k" yaml:"spring_k"`

	Params layout.Params `toml:"params" yaml:"params"`
}

// CacheConfig selects where layout snapshots are cached.
type CacheConfig struct {
	Backend   string        `toml:"backend" yaml:"backend"`       // file, redis or none
	Dir       string        `toml:"dir" yaml:"dir"`               // file backend directory (default: user cache dir)
	RedisAddr string        `toml:"redis_addr" yaml:"redis_addr"` // redis backend address
	Prefix    string        `toml:"prefix" yaml:"prefix"`         // prepended to every key, for shared caches
	TTL       time.Duration `toml:"ttl" yaml:"ttl"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Algorithm:    "spring",
			Initial:      "circle",
			Adding:       "adding",
			TickDelay:    10 * time.Millisecond,
			ItersPerTick: 2,
			StopTimeout:  time.Second,
			Warmup:       100,
			HalfLife:     200,
			SpringK:      layout.DefaultSpringK,
			Params:       layout.Params{}.WithDefaults(),
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     24 * time.Hour,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate reports every invalid setting in one error with code
// INVALID_CONFIG.
func (c Config) Validate() error {
	var errs []string
	l := c.Layout
	if l.Algorithm == "" {
		errs = append(errs, "layout.algorithm is required")
	}
	if l.TickDelay <= 0 {
		errs = append(errs, fmt.Sprintf("layout.tick_delay must be positive, got %s", l.TickDelay))
	}
	if l.ItersPerTick < 1 {
		errs = append(errs, fmt.Sprintf("layout.iters_per_tick must be at least 1, got %d", l.ItersPerTick))
	}
	if l.StopTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("layout.stop_timeout must be positive, got %s", l.StopTimeout))
	}
	if l.Warmup < 0 {
		errs = append(errs, fmt.Sprintf("layout.warmup must not be negative, got %d", l.Warmup))
	}
	if l.HalfLife <= 0 {
		errs = append(errs, fmt.Sprintf("layout.half_life must be positive, got %g", l.HalfLife))
	}
	if l.Params.Width < 0 || l.Params.Height < 0 {
		errs = append(errs, "layout.params width and height must not be negative")
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		errs = append(errs, fmt.Sprintf("cache.backend must be one of file, redis, none, got %q", c.Cache.Backend))
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		errs = append(errs, "cache.redis_addr is required for the redis backend")
	}
	if p := c.Cache.Prefix; p != "" {
		if err := lgerrors.ValidateIdentifier("cache.prefix", p); err != nil {
			errs = append(errs, lgerrors.UserMessage(err))
		}
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Sprintf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}

	if len(errs) > 0 {
		return lgerrors.New(lgerrors.ErrCodeInvalidConfig, "config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Load reads and validates the file at path on top of [Default].
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, lgerrors.Wrap(lgerrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	cfg, err := Parse(data, Format(path))
	if err != nil {
		return Config{}, lgerrors.Wrap(lgerrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Format returns "toml" or "yaml" for path's extension, "" otherwise.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

// Parse decodes data in the given format on top of [Default]. It does not
// validate the result.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch format {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return Config{}, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, lgerrors.New(lgerrors.ErrCodeUnsupported, "unsupported config format %q", format)
	}
	return cfg, nil
}
