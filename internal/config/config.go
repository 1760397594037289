// Package config manages application configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"ytscrape/internal/retry"
	"ytscrape/internal/storage"
)

// ErrMissingAPIKey indicates no Data API key was configured.
var ErrMissingAPIKey = errors.New("config: api key required (set API_KEY or [youtube] api_key)")

// Config file locations tried when no explicit path is given.
const (
	LocalFile = "ytscrape.toml"
	UserFile  = "~/.config/ytscrape/config.toml"
	EnvFile   = ".env"
)

// Config holds all application configuration.
type Config struct {
	YouTube YouTubeConfig `toml:"youtube"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`

	// Source is the config file that was read, empty when none was found.
	Source string `toml:"-"`
}

// YouTubeConfig holds Data API client settings.
type YouTubeConfig struct {
	// APIKey is the Data API developer key.
	APIKey string `toml:"api_key"`
	// RequestsPerSecond throttles API calls (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// PageSize is the number of playlist items per page (1-50).
	PageSize int64 `toml:"page_size"`
	// MaxPages caps playlist enumeration.
	MaxPages int `toml:"max_pages"`
	// Workers is the number of concurrent video detail fetches.
	Workers int `toml:"workers"`
	// MaxRetries applies to channel, playlist and video calls.
	MaxRetries       int `toml:"max_retries"`
	InitialBackoffMS int `toml:"initial_backoff_ms"`
	MaxBackoffMS     int `toml:"max_backoff_ms"`
	// BreakerThreshold is the number of consecutive API faults after which
	// remaining calls fail fast (0 = never).
	BreakerThreshold  int `toml:"breaker_threshold"`
	BreakerCooldownMS int `toml:"breaker_cooldown_ms"`
}

// StorageConfig selects and locates the datasets.
type StorageConfig struct {
	// Backend is "csv" or "sqlite".
	Backend       string `toml:"backend"`
	ChannelPath   string `toml:"channel_path"`
	VideoPath     string `toml:"video_path"`
	SQLitePath    string `toml:"sqlite_path"`
	LockTimeoutMS int    `toml:"lock_timeout_ms"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		YouTube: YouTubeConfig{
			RequestsPerSecond: 5,
			PageSize:          50,
			MaxPages:          1000,
			Workers:           1,
			MaxRetries:        2,
			InitialBackoffMS:  500,
			MaxBackoffMS:      10000,
			BreakerThreshold:  0,
			BreakerCooldownMS: 30000,
		},
		Storage: StorageConfig{
			Backend:       storage.BackendCSV,
			ChannelPath:   "data/raw_channel_data.csv",
			VideoPath:     "data/raw_video_data.csv",
			SQLitePath:    "data/catalog.db",
			LockTimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, in increasing priority, and validates the result.
// An empty path searches LocalFile then UserFile; a missing file there is not
// an error. A non-empty path must exist. Variables from .env are loaded first
// without overriding the real environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	cfg := DefaultConfig()
	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("expand %s: %w", path, err)
		}
		return c.decodeFile(expanded)
	}

	for _, candidate := range []string{LocalFile, UserFile} {
		expanded, err := homedir.Expand(candidate)
		if err != nil {
			continue
		}
		err = c.decodeFile(expanded)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return err
	}
	return nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.Source = path
	return nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("YTSCRAPE_API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("YTSCRAPE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("YTSCRAPE_CHANNEL_PATH"); v != "" {
		c.Storage.ChannelPath = v
	}
	if v := os.Getenv("YTSCRAPE_VIDEO_PATH"); v != "" {
		c.Storage.VideoPath = v
	}
	if v := os.Getenv("YTSCRAPE_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("YTSCRAPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("YTSCRAPE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"YTSCRAPE_WORKERS", &c.YouTube.Workers},
		{"YTSCRAPE_MAX_PAGES", &c.YouTube.MaxPages},
		{"YTSCRAPE_MAX_RETRIES", &c.YouTube.MaxRetries},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("YTSCRAPE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("YTSCRAPE_RPS: %w", err)
		}
		c.YouTube.RequestsPerSecond = f
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.YouTube.PageSize < 1 || c.YouTube.PageSize > 50 {
		return fmt.Errorf("page_size must be between 1 and 50, got %d", c.YouTube.PageSize)
	}
	if c.YouTube.MaxPages < 1 {
		return fmt.Errorf("max_pages must be positive")
	}
	if c.YouTube.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.YouTube.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.YouTube.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.YouTube.InitialBackoffMS <= 0 {
		return fmt.Errorf("initial_backoff_ms must be positive")
	}
	if c.YouTube.MaxBackoffMS < c.YouTube.InitialBackoffMS {
		return fmt.Errorf("max_backoff_ms must be >= initial_backoff_ms")
	}
	if c.YouTube.BreakerThreshold < 0 {
		return fmt.Errorf("breaker_threshold must be non-negative")
	}

	switch c.Storage.Backend {
	case storage.BackendCSV:
		if c.Storage.ChannelPath == "" || c.Storage.VideoPath == "" {
			return fmt.Errorf("channel_path and video_path are required for the csv backend")
		}
	case storage.BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Storage.Backend)
	}
	if c.Storage.LockTimeoutMS < 0 {
		return fmt.Errorf("lock_timeout_ms must be non-negative")
	}
	return nil
}

// Retry returns the retry policy for Data API calls.
func (c *Config) Retry() retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = c.YouTube.MaxRetries
	rc.InitialBackoff = time.Duration(c.YouTube.InitialBackoffMS) * time.Millisecond
	rc.MaxBackoff = time.Duration(c.YouTube.MaxBackoffMS) * time.Millisecond
	return rc
}

// BreakerCooldown returns how long an open breaker waits before probing.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.YouTube.BreakerCooldownMS) * time.Millisecond
}

// StoreOptions returns the options for storage.Open.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		SQLitePath:  c.Storage.SQLitePath,
		LockTimeout: time.Duration(c.Storage.LockTimeoutMS) * time.Millisecond,
	}
}
