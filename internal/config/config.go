// Package config loads the gridstack settings file and applies
// GRIDSTACK_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/monitoring"
	"github.com/banshee-data/gridstack/internal/temporal"
	"github.com/banshee-data/gridstack/internal/timeutil"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/gridstack.defaults.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRIDSTACK_"

// Config holds the process settings. Nil fields fall back to the values
// returned by the Get* accessors.
type Config struct {
	// Zone. Timezone and TimezoneOffsetMinutes are mutually exclusive.
	Timezone              *string `json:"timezone,omitempty" env:"TIMEZONE"`
	TimezoneOffsetMinutes *int    `json:"timezone_offset_minutes,omitempty" env:"TIMEZONE_OFFSET_MINUTES"`

	// Serialization
	FileVersion   *int  `json:"file_version,omitempty" env:"FILE_VERSION"`
	VerboseFloats *bool `json:"verbose_floats,omitempty" env:"VERBOSE_FLOATS"`

	// Store and locking
	StorePath       *string `json:"store_path,omitempty" env:"STORE_PATH"`
	LockWaitWarning *string `json:"lock_wait_warning,omitempty" env:"LOCK_WAIT_WARNING"` // duration string like "5s"

	// Burn-condition defaults for new daily entries
	MinRH     *float64 `json:"min_rh,omitempty" env:"MIN_RH"`
	MaxWS     *float64 `json:"max_ws,omitempty" env:"MAX_WS"`
	MinFWI    *float64 `json:"min_fwi,omitempty" env:"MIN_FWI"`
	MinISI    *float64 `json:"min_isi,omitempty" env:"MIN_ISI"`
	BurnStart *string  `json:"burn_start,omitempty" env:"BURN_START"`
	BurnEnd   *string  `json:"burn_end,omitempty" env:"BURN_END"`

	// Seasonal default
	CuringDegree *float64 `json:"curing_degree,omitempty" env:"CURING_DEGREE"`
}

// LoadConfig reads a JSON settings file, applies environment overrides
// and validates the result. Omitted fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	monitoring.Logf("[config] loaded %s", cleanPath)
	return cfg, nil
}

// ApplyEnv overlays GRIDSTACK_* variables on c. A nil environ reads the
// process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks every set field.
func (c *Config) Validate() error {
	if c.Timezone != nil && c.TimezoneOffsetMinutes != nil {
		return fmt.Errorf("timezone and timezone_offset_minutes are mutually exclusive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.FileVersion != nil && (*c.FileVersion < 1 || *c.FileVersion > 3) {
		return fmt.Errorf("file_version must be 1, 2 or 3, got %d", *c.FileVersion)
	}
	if c.StorePath != nil && *c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.LockWaitWarning != nil {
		d, err := time.ParseDuration(*c.LockWaitWarning)
		if err != nil {
			return fmt.Errorf("invalid lock_wait_warning '%s': %w", *c.LockWaitWarning, err)
		}
		if d < 0 {
			return fmt.Errorf("lock_wait_warning must be non-negative, got %v", d)
		}
	}

	ranges := []struct {
		name   string
		v      *float64
		lo, hi float64
	}{
		{"min_rh", c.MinRH, 0, 1},
		{"max_ws", c.MaxWS, 0, 200},
		{"min_fwi", c.MinFWI, 0, -1},
		{"min_isi", c.MinISI, 0, -1},
		{"curing_degree", c.CuringDegree, 0, 100},
	}
	for _, r := range ranges {
		if r.v == nil {
			continue
		}
		if *r.v < r.lo || (r.hi >= 0 && *r.v > r.hi) {
			return fmt.Errorf("%w: %s %v", grid.ErrOutOfRange, r.name, *r.v)
		}
	}

	spans := []struct {
		name  string
		v     *string
		upper time.Duration
	}{
		{"burn_start", c.BurnStart, 24 * time.Hour},
		{"burn_end", c.BurnEnd, 36 * time.Hour},
	}
	for _, s := range spans {
		if s.v == nil {
			continue
		}
		d, err := time.ParseDuration(*s.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", s.name, *s.v, err)
		}
		if d < 0 || d >= s.upper {
			return fmt.Errorf("%w: %s %v", grid.ErrOutOfRange, s.name, d)
		}
	}
	return nil
}

// Location resolves the configured zone. With neither field set it is UTC.
func (c *Config) Location() (*time.Location, error) {
	switch {
	case c.Timezone != nil:
		return timeutil.LoadZone(*c.Timezone)
	case c.TimezoneOffsetMinutes != nil:
		return timeutil.FixedZone(*c.TimezoneOffsetMinutes)
	}
	return time.UTC, nil
}

// TimeManager returns a manager for the configured zone.
func (c *Config) TimeManager() (*timeutil.Manager, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return timeutil.NewManager(loc), nil
}

// BurnDefaults returns the values new filter entries start with.
func (c *Config) BurnDefaults() temporal.Defaults {
	return temporal.Defaults{
		MinRH:  c.GetMinRH(),
		MaxWS:  c.GetMaxWS(),
		MinFWI: c.GetMinFWI(),
		MinISI: c.GetMinISI(),
		Start:  c.GetBurnStart(),
		End:    c.GetBurnEnd(),
		Curing: c.GetCuringDegree(),
	}
}

// FilterOptions assembles temporal filter options bound to reg.
func (c *Config) FilterOptions(reg *grid.Registry, clock timeutil.Clock) (temporal.Options, error) {
	tm, err := c.TimeManager()
	if err != nil {
		return temporal.Options{}, err
	}
	d := c.BurnDefaults()
	return temporal.Options{
		Registry:      reg,
		Time:          tm,
		Defaults:      &d,
		Clock:         clock,
		LockWarnAfter: c.GetLockWaitWarning(),
	}, nil
}

// SerializeOptions returns the configured output format.
func (c *Config) SerializeOptions() temporal.SerializeOptions {
	return temporal.SerializeOptions{
		Version:       int32(c.GetFileVersion()),
		VerboseFloats: c.GetVerboseFloats(),
	}
}

// GetFileVersion returns the file_version value or the default.
func (c *Config) GetFileVersion() int {
	if c.FileVersion == nil {
		return 3
	}
	return *c.FileVersion
}

// GetVerboseFloats returns the verbose_floats value or the default.
func (c *Config) GetVerboseFloats() bool {
	if c.VerboseFloats == nil {
		return false
	}
	return *c.VerboseFloats
}

// GetStorePath returns the store_path value or the default.
func (c *Config) GetStorePath() string {
	if c.StorePath == nil {
		return "gridstack.db"
	}
	return *c.StorePath
}

// GetLockWaitWarning parses the lock_wait_warning value. Zero disables the
// watchdog.
func (c *Config) GetLockWaitWarning() time.Duration {
	return parseDuration(c.LockWaitWarning, 5*time.Second)
}

func (c *Config) GetMinRH() float64 {
	if c.MinRH == nil {
		return temporal.BuiltinDefaults().MinRH
	}
	return *c.MinRH
}

func (c *Config) GetMaxWS() float64 {
	if c.MaxWS == nil {
		return temporal.BuiltinDefaults().MaxWS
	}
	return *c.MaxWS
}

func (c *Config) GetMinFWI() float64 {
	if c.MinFWI == nil {
		return temporal.BuiltinDefaults().MinFWI
	}
	return *c.MinFWI
}

func (c *Config) GetMinISI() float64 {
	if c.MinISI == nil {
		return temporal.BuiltinDefaults().MinISI
	}
	return *c.MinISI
}

func (c *Config) GetBurnStart() time.Duration {
	return parseDuration(c.BurnStart, temporal.BuiltinDefaults().Start)
}

func (c *Config) GetBurnEnd() time.Duration {
	return parseDuration(c.BurnEnd, temporal.BuiltinDefaults().End)
}

// GetCuringDegree returns the curing_degree value or the default.
func (c *Config) GetCuringDegree() float64 {
	if c.CuringDegree == nil {
		return temporal.BuiltinDefaults().Curing
	}
	return *c.CuringDegree
}

func parseDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}
