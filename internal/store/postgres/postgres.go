// Package postgres persists search history, favorites and alerts in
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharmasatrya/flightscout/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and ensures the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
            id TEXT PRIMARY KEY,
            seq BIGINT GENERATED ALWAYS AS IDENTITY,
            user_id TEXT NOT NULL,
            origin_sky_id TEXT NOT NULL,
            origin_entity_id TEXT NOT NULL,
            origin_name TEXT NOT NULL DEFAULT '',
            origin_code TEXT NOT NULL DEFAULT '',
            destination_sky_id TEXT NOT NULL,
            destination_entity_id TEXT NOT NULL,
            destination_name TEXT NOT NULL DEFAULT '',
            destination_code TEXT NOT NULL DEFAULT '',
            departure_date TEXT NOT NULL,
            return_date TEXT NOT NULL DEFAULT '',
            adults INTEGER NOT NULL,
            cabin_class TEXT NOT NULL,
            search_count INTEGER NOT NULL DEFAULT 1,
            last_searched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, origin_sky_id, destination_sky_id, departure_date, return_date, adults, cabin_class)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_recent ON search_history (user_id, last_searched_at DESC)`,
		`CREATE TABLE IF NOT EXISTS favorite_routes (
            id TEXT PRIMARY KEY,
            seq BIGINT GENERATED ALWAYS AS IDENTITY,
            user_id TEXT NOT NULL,
            origin_sky_id TEXT NOT NULL,
            origin_entity_id TEXT NOT NULL,
            origin_name TEXT NOT NULL DEFAULT '',
            origin_code TEXT NOT NULL DEFAULT '',
            destination_sky_id TEXT NOT NULL,
            destination_entity_id TEXT NOT NULL,
            destination_name TEXT NOT NULL DEFAULT '',
            destination_code TEXT NOT NULL DEFAULT '',
            route_name TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_favorite_routes_user ON favorite_routes (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
            id TEXT PRIMARY KEY,
            seq BIGINT GENERATED ALWAYS AS IDENTITY,
            user_id TEXT NOT NULL,
            origin_sky_id TEXT NOT NULL,
            origin_entity_id TEXT NOT NULL,
            origin_name TEXT NOT NULL DEFAULT '',
            origin_code TEXT NOT NULL DEFAULT '',
            destination_sky_id TEXT NOT NULL,
            destination_entity_id TEXT NOT NULL,
            destination_name TEXT NOT NULL DEFAULT '',
            destination_code TEXT NOT NULL DEFAULT '',
            departure_date TEXT NOT NULL DEFAULT '',
            return_date TEXT NOT NULL DEFAULT '',
            adults INTEGER NOT NULL DEFAULT 1,
            cabin_class TEXT NOT NULL DEFAULT 'economy',
            target_price DOUBLE PRECISION NOT NULL,
            currency TEXT NOT NULL DEFAULT 'USD',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_price_alerts_user ON price_alerts (user_id, is_active, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const historyColumns = `id, user_id,
    origin_sky_id, origin_entity_id, origin_name, origin_code,
    destination_sky_id, destination_entity_id, destination_name, destination_code,
    departure_date, return_date, adults, cabin_class, search_count, last_searched_at`

const historyValues = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16`

func scanHistory(row pgx.Row) (models.SearchHistoryEntry, error) {
	var (
		e          models.SearchHistoryEntry
		returnDate string
		cabin      string
	)
	err := row.Scan(&e.ID, &e.UserID,
		&e.Origin.SkyID, &e.Origin.EntityID, &e.Origin.DisplayName, &e.Origin.Code,
		&e.Destination.SkyID, &e.Destination.EntityID, &e.Destination.DisplayName, &e.Destination.Code,
		&e.DepartureDate, &returnDate, &e.Adults, &cabin, &e.SearchCount, &e.LastSearchedAt)
	if err != nil {
		return e, err
	}
	e.CabinClass = models.CabinClass(cabin)
	e.ReturnDate = optional(returnDate)
	e.LastSearchedAt = e.LastSearchedAt.UTC()
	return e, nil
}

func historyArgs(e models.SearchHistoryEntry) []any {
	return []any{e.ID, e.UserID,
		e.Origin.SkyID, e.Origin.EntityID, e.Origin.DisplayName, e.Origin.Code,
		e.Destination.SkyID, e.Destination.EntityID, e.Destination.DisplayName, e.Destination.Code,
		e.DepartureDate, deref(e.ReturnDate), e.Adults, string(e.CabinClass), e.SearchCount, e.LastSearchedAt}
}

func (s *Store) FindHistory(ctx context.Context, key models.HistoryKey) (models.SearchHistoryEntry, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+historyColumns+` FROM search_history
        WHERE user_id = $1 AND origin_sky_id = $2 AND destination_sky_id = $3
          AND departure_date = $4 AND return_date = $5 AND adults = $6 AND cabin_class = $7`,
		key.UserID, key.OriginSkyID, key.DestinationSkyID,
		key.DepartureDate, key.ReturnDate, key.Adults, string(key.CabinClass))
	e, err := scanHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SearchHistoryEntry{}, false, nil
	}
	if err != nil {
		return models.SearchHistoryEntry{}, false, err
	}
	return e, true, nil
}

func (s *Store) InsertHistory(ctx context.Context, e models.SearchHistoryEntry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO search_history (`+historyColumns+`) VALUES (`+historyValues+`)`, historyArgs(e)...)
	return err
}

func (s *Store) UpdateHistory(ctx context.Context, e models.SearchHistoryEntry) error {
	tag, err := s.pool.Exec(ctx, `UPDATE search_history
        SET search_count = $1, last_searched_at = $2
        WHERE id = $3 AND user_id = $4`,
		e.SearchCount, e.LastSearchedAt, e.ID, e.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpsertHistory inserts e or increments the existing row with the same
// identity key in one statement.
func (s *Store) UpsertHistory(ctx context.Context, e models.SearchHistoryEntry) (models.Operation, error) {
	var count int
	err := s.pool.QueryRow(ctx, `INSERT INTO search_history (`+historyColumns+`) VALUES (`+historyValues+`)
         ON CONFLICT (user_id, origin_sky_id, destination_sky_id, departure_date, return_date, adults, cabin_class)
         DO UPDATE SET search_count = search_history.search_count + 1,
                       last_searched_at = EXCLUDED.last_searched_at
         RETURNING search_count`, historyArgs(e)...).Scan(&count)
	if err != nil {
		return "", err
	}
	if count == 1 {
		return models.OperationInsert, nil
	}
	return models.OperationIncrement, nil
}

func (s *Store) RecentHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+historyColumns+` FROM search_history
        WHERE user_id = $1
        ORDER BY last_searched_at DESC, seq DESC
        LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SearchHistoryEntry, 0)
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertFavorite(ctx context.Context, f models.FavoriteRoute) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO favorite_routes (id, user_id,
        origin_sky_id, origin_entity_id, origin_name, origin_code,
        destination_sky_id, destination_entity_id, destination_name, destination_code,
        route_name, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		f.ID, f.UserID,
		f.Origin.SkyID, f.Origin.EntityID, f.Origin.DisplayName, f.Origin.Code,
		f.Destination.SkyID, f.Destination.EntityID, f.Destination.DisplayName, f.Destination.Code,
		f.RouteName, f.CreatedAt)
	return err
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteRoute, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id,
        origin_sky_id, origin_entity_id, origin_name, origin_code,
        destination_sky_id, destination_entity_id, destination_name, destination_code,
        route_name, created_at
        FROM favorite_routes WHERE user_id = $1
        ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.FavoriteRoute, 0)
	for rows.Next() {
		var f models.FavoriteRoute
		if err := rows.Scan(&f.ID, &f.UserID,
			&f.Origin.SkyID, &f.Origin.EntityID, &f.Origin.DisplayName, &f.Origin.Code,
			&f.Destination.SkyID, &f.Destination.EntityID, &f.Destination.DisplayName, &f.Destination.Code,
			&f.RouteName, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFavorite(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM favorite_routes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) InsertAlert(ctx context.Context, a models.PriceAlert) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO price_alerts (id, user_id,
        origin_sky_id, origin_entity_id, origin_name, origin_code,
        destination_sky_id, destination_entity_id, destination_name, destination_code,
        departure_date, return_date, adults, cabin_class, target_price, currency, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		a.ID, a.UserID,
		a.Origin.SkyID, a.Origin.EntityID, a.Origin.DisplayName, a.Origin.Code,
		a.Destination.SkyID, a.Destination.EntityID, a.Destination.DisplayName, a.Destination.Code,
		a.DepartureDate, deref(a.ReturnDate), a.Adults, string(a.CabinClass), a.TargetPrice, a.Currency,
		a.IsActive, a.CreatedAt)
	return err
}

func (s *Store) ListAlerts(ctx context.Context, userID string, activeOnly bool) ([]models.PriceAlert, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id,
        origin_sky_id, origin_entity_id, origin_name, origin_code,
        destination_sky_id, destination_entity_id, destination_name, destination_code,
        departure_date, return_date, adults, cabin_class, target_price, currency, is_active, created_at
        FROM price_alerts
        WHERE user_id = $1 AND (NOT $2 OR is_active)
        ORDER BY created_at DESC, seq DESC`, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PriceAlert, 0)
	for rows.Next() {
		var (
			a          models.PriceAlert
			returnDate string
			cabin      string
			created    time.Time
		)
		if err := rows.Scan(&a.ID, &a.UserID,
			&a.Origin.SkyID, &a.Origin.EntityID, &a.Origin.DisplayName, &a.Origin.Code,
			&a.Destination.SkyID, &a.Destination.EntityID, &a.Destination.DisplayName, &a.Destination.Code,
			&a.DepartureDate, &returnDate, &a.Adults, &cabin, &a.TargetPrice, &a.Currency,
			&a.IsActive, &created); err != nil {
			return nil, err
		}
		a.CabinClass = models.CabinClass(cabin)
		a.ReturnDate = optional(returnDate)
		a.CreatedAt = created.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SetAlertActive(ctx context.Context, userID, id string, active bool) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE price_alerts SET is_active = $1 WHERE id = $2 AND user_id = $3`, active, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
