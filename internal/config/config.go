package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceNone   = "none"
	SourceICS    = "ics"
	SourceCalDAV = "caldav"
)

// SourceConfig selects the live event source.
type SourceConfig struct {
	// Kind is one of "none", "ics" or "caldav".
	Kind string `yaml:"kind" json:"kind"`
	// URL is the ICS feed (may contain "{year}") or the CalDAV endpoint.
	URL string `yaml:"url" json:"url"`
	// CacheDir holds the ICS HTTP cache. Empty disables it.
	CacheDir     string `yaml:"cache_dir" json:"cache_dir"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"-"`
	CalendarPath string `yaml:"calendar_path" json:"calendar_path"`
	// TimeoutSec bounds a single year fetch.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DayWindow is the visible hour range of the day and week views.
type DayWindow struct {
	StartHour int `yaml:"start_hour" json:"start_hour"`
	EndHour   int `yaml:"end_hour" json:"end_hour"`
}

// CaptureConfig sizes the headless browser snapshot.
type CaptureConfig struct {
	Width      int `yaml:"width" json:"width"`
	Height     int `yaml:"height" json:"height"`
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone events are displayed in. Empty means the
	// host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	DayWindow DayWindow `yaml:"day_window" json:"day_window"`

	// MinEventHeight is the smallest block height in percent of the window.
	MinEventHeight float64 `yaml:"min_event_height" json:"min_event_height"`
	MonthCellCap   int     `yaml:"month_cell_cap" json:"month_cell_cap"`
	YearNotableCap int     `yaml:"year_notable_cap" json:"year_notable_cap"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// RetryCron schedules re-fetching of years that failed to load.
	RetryCron string `yaml:"retry_cron" json:"retry_cron"`

	// SeedSamples adds a handful of sample events to a fresh session.
	SeedSamples bool `yaml:"seed_samples" json:"seed_samples"`

	Source  SourceConfig  `yaml:"source" json:"source"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{SeedSamples: true}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "sunday" {
		c.WeekStart = "monday"
	}

	w := &c.DayWindow
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour <= w.StartHour || w.EndHour > 24 {
		w.StartHour, w.EndHour = 7, 20
	}
	if c.MinEventHeight <= 0 || c.MinEventHeight > 100 {
		c.MinEventHeight = 5
	}
	if c.MonthCellCap <= 0 {
		c.MonthCellCap = 3
	}
	if c.YearNotableCap <= 0 {
		c.YearNotableCap = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RetryCron == "" {
		c.RetryCron = "*/5 * * * *"
	}

	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case SourceICS, SourceCalDAV:
	default:
		c.Source.Kind = SourceNone
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 20
	}

	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 960
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = 30
	}
}

// FirstWeekday maps WeekStart onto time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Location resolves Timezone, falling back to time.Local when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FetchTimeout is Source.TimeoutSec as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSec) * time.Second
}

// Load loads configuration from the given YAML path. A missing file is
// created with the defaults (0600) and those defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) when needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".campuscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
