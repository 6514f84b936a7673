package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Roon     RoonConfig     `toml:"roon"`
	Discogs  DiscogsConfig  `toml:"discogs"`
	Database DatabaseConfig `toml:"database"`
	Sync     SyncConfig     `toml:"sync"`
	Files    FilesConfig    `toml:"files"`
}

// RoonConfig contains settings for the Roon bridge extension.
type RoonConfig struct {
	BridgeURL string `toml:"bridge_url"`
	Token     string `toml:"token"`
	// PhysicalTags are the tag names (matched case-insensitively) whose
	// members are flagged as physically-owned duplicates.
	PhysicalTags []string `toml:"physical_tags"`
}

// DiscogsConfig contains Discogs API credentials and pacing knobs.
type DiscogsConfig struct {
	Username string `toml:"username"`
	Token    string `toml:"token"`
	PerPage  int    `toml:"per_page"`
	// PacingSeconds is the minimum spacing between consecutive requests.
	PacingSeconds int `toml:"pacing_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains scheduling settings for the sync engine.
type SyncConfig struct {
	// SkipDays is the minimum number of days between unforced syncs of
	// time-gated (API) sources.
	SkipDays int `toml:"skip_days"`
}

// FilesConfig points at the two library export files.
type FilesConfig struct {
	RoonTracks      string `toml:"roon_tracks"`
	RoonPlayHistory string `toml:"roon_play_history"`
}

// LoadConfig reads and parses a TOML configuration file from the specified
// path, then applies environment overrides (see [Config.applyEnv]).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the
// embedded example config, with environment overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overrides secrets and scheduling knobs from the environment so
// tokens can stay out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SHELFSYNC_DISCOGS_TOKEN"); v != "" {
		c.Discogs.Token = v
	}
	if v := os.Getenv("SHELFSYNC_ROON_TOKEN"); v != "" {
		c.Roon.Token = v
	}
	if v := os.Getenv("SHELFSYNC_ROON_BRIDGE_URL"); v != "" {
		c.Roon.BridgeURL = v
	}
	if v := os.Getenv("SHELFSYNC_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SHELFSYNC_SKIP_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			c.Sync.SkipDays = days
		}
	}
}

// SkipThreshold returns the skip window as a duration, defaulting to 7 days
// when unset.
func (c *Config) SkipThreshold() time.Duration {
	days := c.Sync.SkipDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// DiscogsPacing returns the spacing between Discogs requests, defaulting to
// one second.
func (c *Config) DiscogsPacing() time.Duration {
	if c.Discogs.PacingSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.Discogs.PacingSeconds) * time.Second
}

// DiscogsPerPage returns the page size for Discogs listing requests,
// defaulting to 100 (the API maximum).
func (c *Config) DiscogsPerPage() int {
	if c.Discogs.PerPage <= 0 || c.Discogs.PerPage > 100 {
		return 100
	}
	return c.Discogs.PerPage
}
