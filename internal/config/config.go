// Package config loads the forge-miner configuration.
//
// Values are layered: built-in defaults, an optional YAML file, a .env file,
// FORGE_MINER_* environment variables and finally command-line flags.
// GITHUB_TOKEN is honoured when no FORGE_MINER_GITHUB_TOKEN is set.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/logging"
)

// EnvPrefix prefixes every environment variable, e.g. FORGE_MINER_LOG_LEVEL.
const EnvPrefix = "FORGE_MINER"

// Config is the complete application configuration.
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Store   StoreConfig   `mapstructure:"store"`
	Backoff BackoffConfig `mapstructure:"backoff"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// GitHubConfig configures the GitHub client. RESTURL is derived from URL
// when empty.
type GitHubConfig struct {
	Token    string        `mapstructure:"token"`
	URL      string        `mapstructure:"url"`
	RESTURL  string        `mapstructure:"rest_url"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the shared Redis connection. An empty Addr runs
// without Redis: no page cache, no stored reports, an in-process quota
// summary.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig configures the page cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StoreConfig configures report persistence.
type StoreConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// BackoffConfig configures quota waits.
type BackoffConfig struct {
	// Margin is added to every advised wait.
	Margin time.Duration `mapstructure:"margin"`

	// Retries is the number of wait-and-retry rounds per call site.
	Retries int `mapstructure:"retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig configures the metrics endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ErrMissingToken is returned by Validate when no GitHub token is configured.
var ErrMissingToken = errors.New("github token is required (set FORGE_MINER_GITHUB_TOKEN or GITHUB_TOKEN)")

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.GitHub.PageSize < 1 || c.GitHub.PageSize > 100 {
		return fmt.Errorf("github.page_size must be between 1 and 100 (got %d)", c.GitHub.PageSize)
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("github.timeout must be positive (got %s)", c.GitHub.Timeout)
	}
	if c.Backoff.Margin < 0 {
		return fmt.Errorf("backoff.margin must not be negative (got %s)", c.Backoff.Margin)
	}
	if c.Backoff.Retries < 0 {
		return fmt.Errorf("backoff.retries must not be negative (got %d)", c.Backoff.Retries)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled (got %s)", c.Cache.TTL)
	}
	if c.Store.Enabled && c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive when the store is enabled (got %s)", c.Store.TTL)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// RequireToken returns ErrMissingToken when no GitHub token is set. Commands
// that only read stored reports do not need one.
func (c *Config) RequireToken() error {
	if c.GitHub.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
