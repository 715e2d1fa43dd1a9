// Package config defines service configuration and its loader.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Providers is a comma separated, ordered list of flight providers
	// (demo, skyscrapper). Merge order follows this list.
	Providers string `koanf:"providers"`

	RapidAPIBaseURL string `koanf:"rapidapi_base_url"`
	RapidAPIKey     string `koanf:"rapidapi_key"`
	RapidAPIHost    string `koanf:"rapidapi_host"`

	Market      string `koanf:"market"`
	Currency    string `koanf:"currency"`
	CountryCode string `koanf:"country_code"`

	ProviderTimeout time.Duration `koanf:"provider_timeout"`
	ProviderRetries int           `koanf:"provider_retries"`
	RetryBaseDelay  time.Duration `koanf:"retry_base_delay"`
	ProviderRPS     float64       `koanf:"provider_rps"`
	ProviderBurst   int           `koanf:"provider_burst"`
	// ProviderLimits overrides the rate per provider as
	// "name=rps:burst" pairs, e.g. "skyscrapper=1:2,demo=0:0".
	ProviderLimits string `koanf:"provider_limits"`

	CacheEnabled  bool          `koanf:"cache_enabled"`
	RedisHost     string        `koanf:"redis_host"`
	RedisPort     string        `koanf:"redis_port"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`

	// StoreDriver selects persistence: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	DatabaseURL string `koanf:"database_url"`

	// JWTSecret enables bearer token identity. Empty trusts X-User-ID.
	JWTSecret string `koanf:"jwt_secret"`

	LookupDebounce  time.Duration `koanf:"lookup_debounce"`
	LookupMinLength int           `koanf:"lookup_min_length"`
	HistoryLimit    int           `koanf:"history_limit"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		Providers:       "demo",
		RapidAPIBaseURL: "https://sky-scrapper.p.rapidapi.com/api",
		RapidAPIHost:    "sky-scrapper.p.rapidapi.com",
		Market:          "en-US",
		Currency:        "USD",
		CountryCode:     "US",
		ProviderTimeout: 2 * time.Second,
		ProviderRetries: 3,
		RetryBaseDelay:  100 * time.Millisecond,
		ProviderRPS:     10,
		ProviderBurst:   20,
		CacheEnabled:    false,
		RedisHost:       "localhost",
		RedisPort:       "6379",
		CacheTTL:        5 * time.Minute,
		StoreDriver:     DriverSQLite,
		SQLitePath:      "flightscout.db",
		LookupDebounce:  300 * time.Millisecond,
		LookupMinLength: 2,
		HistoryLimit:    10,
	}
}

// ProviderNames splits Providers into trimmed, non-empty names.
func (c *Config) ProviderNames() []string {
	var names []string
	for _, p := range strings.Split(c.Providers, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// RetryDelays returns one growing delay per retry, doubling from RetryBaseDelay.
func (c *Config) RetryDelays() []time.Duration {
	delays := make([]time.Duration, 0, c.ProviderRetries)
	d := c.RetryBaseDelay
	for i := 0; i < c.ProviderRetries; i++ {
		delays = append(delays, d)
		d *= 2
	}
	return delays
}

// RateOverride is one provider's entry in ProviderLimits.
type RateOverride struct {
	RequestsPerSecond float64
	Burst             int
}

// RateOverrides parses ProviderLimits. A non-positive rate means unlimited.
func (c *Config) RateOverrides() (map[string]RateOverride, error) {
	overrides := make(map[string]RateOverride)
	for _, pair := range strings.Split(c.ProviderLimits, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, spec, ok := strings.Cut(pair, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: provider_limits entry %q must be name=rps:burst", ErrInvalidConfig, pair)
		}
		rps, burst, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok {
			return nil, fmt.Errorf("%w: provider_limits entry %q must be name=rps:burst", ErrInvalidConfig, pair)
		}
		r, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: provider_limits rate for %s: %w", ErrInvalidConfig, name, err)
		}
		b, err := strconv.Atoi(burst)
		if err != nil || b < 0 {
			return nil, fmt.Errorf("%w: provider_limits burst for %s must be a non-negative integer", ErrInvalidConfig, name)
		}
		overrides[name] = RateOverride{RequestsPerSecond: r, Burst: b}
	}
	return overrides, nil
}
