// Package cache stores provider responses keyed by their canonical request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

// Cache holds flight and airport responses. Misses and decode failures both
// report ok=false; callers fall through to the provider.
type Cache interface {
	GetFlights(ctx context.Context, params criteria.RequestParams) ([]models.Flight, bool)
	SetFlights(ctx context.Context, params criteria.RequestParams, flights []models.Flight) error
	GetAirports(ctx context.Context, query string) ([]models.Airport, bool)
	SetAirports(ctx context.Context, query string, airports []models.Airport) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		TTL:  5 * time.Minute,
	}
}

// NewRedisCache connects and pings within a bounded timeout.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRedisConfig().TTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) GetFlights(ctx context.Context, params criteria.RequestParams) ([]models.Flight, bool) {
	var flights []models.Flight
	ok := c.get(ctx, FlightKey(params), &flights)
	metrics.RecordCacheLookup("flights", ok)
	return flights, ok
}

func (c *RedisCache) SetFlights(ctx context.Context, params criteria.RequestParams, flights []models.Flight) error {
	return c.set(ctx, FlightKey(params), flights)
}

func (c *RedisCache) GetAirports(ctx context.Context, query string) ([]models.Airport, bool) {
	var airports []models.Airport
	ok := c.get(ctx, AirportKey(query), &airports)
	metrics.RecordCacheLookup("airports", ok)
	return airports, ok
}

func (c *RedisCache) SetAirports(ctx context.Context, query string, airports []models.Airport) error {
	return c.set(ctx, AirportKey(query), airports)
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoOpCache never hits.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (NoOpCache) GetFlights(context.Context, criteria.RequestParams) ([]models.Flight, bool) {
	return nil, false
}

func (NoOpCache) SetFlights(context.Context, criteria.RequestParams, []models.Flight) error {
	return nil
}

func (NoOpCache) GetAirports(context.Context, string) ([]models.Airport, bool) {
	return nil, false
}

func (NoOpCache) SetAirports(context.Context, string, []models.Airport) error {
	return nil
}

func (NoOpCache) Close() error {
	return nil
}

// FlightKey hashes the canonical encoding, so equal criteria share an entry
// regardless of how the client spelled them.
func FlightKey(params criteria.RequestParams) string {
	return "flight:" + digest(params.Encode())
}

// AirportKey is case and whitespace insensitive.
func AirportKey(query string) string {
	return "airport:" + digest(strings.ToLower(strings.TrimSpace(query)))
}

func digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
