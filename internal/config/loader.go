package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. Empty searches for
	// forge-miner.yaml in the working directory and ./config.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the environment before reading
	// variables. A missing file is ignored.
	EnvFile string

	// Flags are bound over every other source.
	Flags *pflag.FlagSet
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"token":          "github.token",
	"graphql-url":    "github.url",
	"rest-url":       "github.rest_url",
	"page-size":      "github.page_size",
	"redis-addr":     "redis.addr",
	"cache":          "cache.enabled",
	"store":          "store.enabled",
	"retries":        "backoff.retries",
	"backoff-margin": "backoff.margin",
	"log-level":      "log.level",
	"pretty":         "log.pretty",
	"metrics-addr":   "metrics.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.url", "https://api.github.com/graphql")
	v.SetDefault("github.rest_url", "")
	v.SetDefault("github.page_size", 50)
	v.SetDefault("github.timeout", "60s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.ttl", "168h")

	v.SetDefault("backoff.margin", "3s")
	v.SetDefault("backoff.retries", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.addr", "")
}

// Load reads and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("forge-miner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
