package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FLIGHTSCOUT_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if FLIGHTSCOUT_CONFIG is set
//  3. env (prefix FLIGHTSCOUT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FLIGHTSCOUT_CACHE_TTL -> cache_ttl (flat keys, matching koanf tags).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.ProviderNames()) == 0:
		return fmt.Errorf("%w: at least one provider is required", ErrInvalidConfig)
	case c.ProviderTimeout <= 0:
		return fmt.Errorf("%w: provider_timeout must be positive", ErrInvalidConfig)
	case c.ProviderRetries < 0:
		return fmt.Errorf("%w: provider_retries must not be negative", ErrInvalidConfig)
	case c.LookupDebounce < 0:
		return fmt.Errorf("%w: lookup_debounce must not be negative", ErrInvalidConfig)
	case c.LookupMinLength < 1:
		return fmt.Errorf("%w: lookup_min_length must be at least 1", ErrInvalidConfig)
	case c.HistoryLimit < 1:
		return fmt.Errorf("%w: history_limit must be at least 1", ErrInvalidConfig)
	}

	for _, p := range c.ProviderNames() {
		if p != "demo" && p != "skyscrapper" {
			return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, p)
		}
		if p == "skyscrapper" && c.RapidAPIKey == "" {
			return fmt.Errorf("%w: rapidapi_key is required for skyscrapper", ErrInvalidConfig)
		}
	}

	if _, err := c.RateOverrides(); err != nil {
		return err
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
