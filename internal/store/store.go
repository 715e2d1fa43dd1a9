// Package store selects and opens the configured persistence backend.
package store

import (
	"context"
	"fmt"

	"github.com/dharmasatrya/flightscout/internal/config"
	"github.com/dharmasatrya/flightscout/internal/history"
	"github.com/dharmasatrya/flightscout/internal/store/memory"
	"github.com/dharmasatrya/flightscout/internal/store/postgres"
	"github.com/dharmasatrya/flightscout/internal/store/sqlite"
	"github.com/dharmasatrya/flightscout/internal/userdata"
)

// Store is the union every backend implements.
type Store interface {
	history.Store
	userdata.FavoriteStore
	userdata.AlertStore
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store            = (*memory.Store)(nil)
	_ Store            = (*sqlite.Store)(nil)
	_ Store            = (*postgres.Store)(nil)
	_ history.Upserter = (*sqlite.Store)(nil)
	_ history.Upserter = (*postgres.Store)(nil)
)

// Open returns the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
