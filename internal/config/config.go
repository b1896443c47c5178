// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all postdeck configuration.
type Config struct {
	API   API   `yaml:"api"`
	Posts Posts `yaml:"posts"`
	Cache Cache `yaml:"cache"`
	UI    UI    `yaml:"ui"`
	Log   Log   `yaml:"log"`
}

// API holds remote collection settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Posts holds defaults applied to new posts.
type Posts struct {
	DefaultOwnerID int `yaml:"default_owner_id"` // Used when a draft leaves the owner unset.
}

// Cache holds snapshot freshness settings.
type Cache struct {
	StaleAfter time.Duration `yaml:"stale_after"` // 0 disables reuse; every open reloads.
}

// UI holds terminal UI settings.
type UI struct {
	CloseDelay time.Duration `yaml:"close_delay"` // Modal closing phase length.
}

// Log holds diagnostic logging settings.
type Log struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	File  string `yaml:"file"`  // Log file used while the TUI owns the terminal; empty disables.
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "https://jsonplaceholder.typicode.com",
			Timeout: 10 * time.Second,
		},
		Posts: Posts{
			DefaultOwnerID: 1,
		},
		Cache: Cache{
			StaleAfter: 5 * time.Minute,
		},
		UI: UI{
			CloseDelay: 200 * time.Millisecond,
		},
		Log: Log{
			Level: "warn",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("config: api.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Posts.DefaultOwnerID < 1 {
		return fmt.Errorf("config: posts.default_owner_id must be positive, got %d", c.Posts.DefaultOwnerID)
	}
	if c.Cache.StaleAfter < 0 {
		return fmt.Errorf("config: cache.stale_after must be non-negative, got %v", c.Cache.StaleAfter)
	}
	if c.UI.CloseDelay < 0 {
		return fmt.Errorf("config: ui.close_delay must be non-negative, got %v", c.UI.CloseDelay)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps Log.Level to a slog.Level. An empty level means warn.
func (l Log) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", l.Level)
	}
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: POSTDECK_BASE_URL, POSTDECK_TIMEOUT, POSTDECK_OWNER_ID,
// POSTDECK_LOG_LEVEL, POSTDECK_LOG_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("POSTDECK_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("POSTDECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid POSTDECK_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("POSTDECK_OWNER_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid POSTDECK_OWNER_ID %q: %w", v, err)
		}
		c.Posts.DefaultOwnerID = n
	}
	if v := os.Getenv("POSTDECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("POSTDECK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API   *rawAPI   `yaml:"api"`
	Posts *rawPosts `yaml:"posts"`
	Cache *rawCache `yaml:"cache"`
	UI    *rawUI    `yaml:"ui"`
	Log   *rawLog   `yaml:"log"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawPosts struct {
	DefaultOwnerID *int `yaml:"default_owner_id"`
}

type rawCache struct {
	StaleAfter *time.Duration `yaml:"stale_after"`
}

type rawUI struct {
	CloseDelay *time.Duration `yaml:"close_delay"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.API != nil {
		if layer.API.BaseURL != nil {
			c.API.BaseURL = *layer.API.BaseURL
		}
		if layer.API.Timeout != nil {
			c.API.Timeout = *layer.API.Timeout
		}
	}
	if layer.Posts != nil && layer.Posts.DefaultOwnerID != nil {
		c.Posts.DefaultOwnerID = *layer.Posts.DefaultOwnerID
	}
	if layer.Cache != nil && layer.Cache.StaleAfter != nil {
		c.Cache.StaleAfter = *layer.Cache.StaleAfter
	}
	if layer.UI != nil && layer.UI.CloseDelay != nil {
		c.UI.CloseDelay = *layer.UI.CloseDelay
	}
	if layer.Log != nil {
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
	}
}
