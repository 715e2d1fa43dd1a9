// Package sqlite persists search history, favorites and alerts in SQLite
// through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dharmasatrya/flightscout/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	origin_sky_id           TEXT NOT NULL,
	origin_entity_id        TEXT NOT NULL,
	origin_name             TEXT NOT NULL DEFAULT '',
	origin_code             TEXT NOT NULL DEFAULT '',
	destination_sky_id      TEXT NOT NULL,
	destination_entity_id   TEXT NOT NULL,
	destination_name        TEXT NOT NULL DEFAULT '',
	destination_code        TEXT NOT NULL DEFAULT '',
	departure_date          TEXT NOT NULL,
	return_date             TEXT NOT NULL DEFAULT '',
	adults                  INTEGER NOT NULL,
	cabin_class             TEXT NOT NULL,
	search_count            INTEGER NOT NULL DEFAULT 1,
	last_searched_at        INTEGER NOT NULL,
	UNIQUE (user_id, origin_sky_id, destination_sky_id, departure_date, return_date, adults, cabin_class)
);
CREATE INDEX IF NOT EXISTS idx_search_history_recent ON search_history (user_id, last_searched_at DESC);

CREATE TABLE IF NOT EXISTS favorite_routes (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	origin_sky_id           TEXT NOT NULL,
	origin_entity_id        TEXT NOT NULL,
	origin_name             TEXT NOT NULL DEFAULT '',
	origin_code             TEXT NOT NULL DEFAULT '',
	destination_sky_id      TEXT NOT NULL,
	destination_entity_id   TEXT NOT NULL,
	destination_name        TEXT NOT NULL DEFAULT '',
	destination_code        TEXT NOT NULL DEFAULT '',
	route_name              TEXT,
	created_at              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_favorite_routes_user ON favorite_routes (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS price_alerts (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	origin_sky_id           TEXT NOT NULL,
	origin_entity_id        TEXT NOT NULL,
	origin_name             TEXT NOT NULL DEFAULT '',
	origin_code             TEXT NOT NULL DEFAULT '',
	destination_sky_id      TEXT NOT NULL,
	destination_entity_id   TEXT NOT NULL,
	destination_name        TEXT NOT NULL DEFAULT '',
	destination_code        TEXT NOT NULL DEFAULT '',
	departure_date          TEXT NOT NULL DEFAULT '',
	return_date             TEXT NOT NULL DEFAULT '',
	adults                  INTEGER NOT NULL DEFAULT 1,
	cabin_class             TEXT NOT NULL DEFAULT 'economy',
	target_price            REAL NOT NULL,
	currency                TEXT NOT NULL DEFAULT 'USD',
	is_active               INTEGER NOT NULL DEFAULT 1,
	created_at              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_alerts_user ON price_alerts (user_id, is_active, created_at DESC);
`

type Store struct {
	db *sql.DB
}

// Open opens path (":memory:" for a private in-memory database) and
// ensures the schema. A single connection is used so that writes never
// contend for the database lock.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

const historyColumns = `id, user_id,
	origin_sky_id, origin_entity_id, origin_name, origin_code,
	destination_sky_id, destination_entity_id, destination_name, destination_code,
	departure_date, return_date, adults, cabin_class, search_count, last_searched_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(row scanner) (models.SearchHistoryEntry, error) {
	var (
		e          models.SearchHistoryEntry
		returnDate string
		lastNanos  int64
	)
	err := row.Scan(&e.ID, &e.UserID,
		&e.Origin.SkyID, &e.Origin.EntityID, &e.Origin.DisplayName, &e.Origin.Code,
		&e.Destination.SkyID, &e.Destination.EntityID, &e.Destination.DisplayName, &e.Destination.Code,
		&e.DepartureDate, &returnDate, &e.Adults, &e.CabinClass, &e.SearchCount, &lastNanos)
	if err != nil {
		return e, err
	}
	e.ReturnDate = optional(returnDate)
	e.LastSearchedAt = time.Unix(0, lastNanos).UTC()
	return e, nil
}

func (s *Store) FindHistory(ctx context.Context, key models.HistoryKey) (models.SearchHistoryEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM search_history
		WHERE user_id = ? AND origin_sky_id = ? AND destination_sky_id = ?
		  AND departure_date = ? AND return_date = ? AND adults = ? AND cabin_class = ?`,
		key.UserID, key.OriginSkyID, key.DestinationSkyID,
		key.DepartureDate, key.ReturnDate, key.Adults, string(key.CabinClass))
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SearchHistoryEntry{}, false, nil
	}
	if err != nil {
		return models.SearchHistoryEntry{}, false, err
	}
	return e, true, nil
}

func historyArgs(e models.SearchHistoryEntry) []any {
	return []any{e.ID, e.UserID,
		e.Origin.SkyID, e.Origin.EntityID, e.Origin.DisplayName, e.Origin.Code,
		e.Destination.SkyID, e.Destination.EntityID, e.Destination.DisplayName, e.Destination.Code,
		e.DepartureDate, deref(e.ReturnDate), e.Adults, string(e.CabinClass), e.SearchCount, e.LastSearchedAt.UnixNano()}
}

func (s *Store) InsertHistory(ctx context.Context, e models.SearchHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO search_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, historyArgs(e)...)
	return err
}

func (s *Store) UpdateHistory(ctx context.Context, e models.SearchHistoryEntry) error {
	res, err := s.db.ExecContext(ctx, `UPDATE search_history
		SET search_count = ?, last_searched_at = ?
		WHERE id = ? AND user_id = ?`,
		e.SearchCount, e.LastSearchedAt.UnixNano(), e.ID, e.UserID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertHistory inserts e or increments the existing row with the same
// identity key in one statement.
func (s *Store) UpsertHistory(ctx context.Context, e models.SearchHistoryEntry) (models.Operation, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `INSERT INTO search_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, origin_sky_id, destination_sky_id, departure_date, return_date, adults, cabin_class)
		DO UPDATE SET search_count = search_history.search_count + 1,
		              last_searched_at = excluded.last_searched_at
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
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM search_history
		WHERE user_id = ?
		ORDER BY last_searched_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
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
	_, err := s.db.ExecContext(ctx, `INSERT INTO favorite_routes (id, user_id,
		origin_sky_id, origin_entity_id, origin_name, origin_code,
		destination_sky_id, destination_entity_id, destination_name, destination_code,
		route_name, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID,
		f.Origin.SkyID, f.Origin.EntityID, f.Origin.DisplayName, f.Origin.Code,
		f.Destination.SkyID, f.Destination.EntityID, f.Destination.DisplayName, f.Destination.Code,
		f.RouteName, f.CreatedAt.UnixNano())
	return err
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteRoute, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id,
		origin_sky_id, origin_entity_id, origin_name, origin_code,
		destination_sky_id, destination_entity_id, destination_name, destination_code,
		route_name, created_at
		FROM favorite_routes WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.FavoriteRoute, 0)
	for rows.Next() {
		var (
			f         models.FavoriteRoute
			routeName sql.NullString
			created   int64
		)
		if err := rows.Scan(&f.ID, &f.UserID,
			&f.Origin.SkyID, &f.Origin.EntityID, &f.Origin.DisplayName, &f.Origin.Code,
			&f.Destination.SkyID, &f.Destination.EntityID, &f.Destination.DisplayName, &f.Destination.Code,
			&routeName, &created); err != nil {
			return nil, err
		}
		if routeName.Valid {
			f.RouteName = &routeName.String
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFavorite(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorite_routes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) InsertAlert(ctx context.Context, a models.PriceAlert) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO price_alerts (id, user_id,
		origin_sky_id, origin_entity_id, origin_name, origin_code,
		destination_sky_id, destination_entity_id, destination_name, destination_code,
		departure_date, return_date, adults, cabin_class, target_price, currency, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID,
		a.Origin.SkyID, a.Origin.EntityID, a.Origin.DisplayName, a.Origin.Code,
		a.Destination.SkyID, a.Destination.EntityID, a.Destination.DisplayName, a.Destination.Code,
		a.DepartureDate, deref(a.ReturnDate), a.Adults, string(a.CabinClass), a.TargetPrice, a.Currency,
		boolInt(a.IsActive), a.CreatedAt.UnixNano())
	return err
}

func (s *Store) ListAlerts(ctx context.Context, userID string, activeOnly bool) ([]models.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id,
		origin_sky_id, origin_entity_id, origin_name, origin_code,
		destination_sky_id, destination_entity_id, destination_name, destination_code,
		departure_date, return_date, adults, cabin_class, target_price, currency, is_active, created_at
		FROM price_alerts
		WHERE user_id = ? AND (? = 0 OR is_active = 1)
		ORDER BY created_at DESC, rowid DESC`, userID, boolInt(activeOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PriceAlert, 0)
	for rows.Next() {
		var (
			a          models.PriceAlert
			returnDate string
			created    int64
		)
		if err := rows.Scan(&a.ID, &a.UserID,
			&a.Origin.SkyID, &a.Origin.EntityID, &a.Origin.DisplayName, &a.Origin.Code,
			&a.Destination.SkyID, &a.Destination.EntityID, &a.Destination.DisplayName, &a.Destination.Code,
			&a.DepartureDate, &returnDate, &a.Adults, &a.CabinClass, &a.TargetPrice, &a.Currency,
			&a.IsActive, &created); err != nil {
			return nil, err
		}
		a.ReturnDate = optional(returnDate)
		a.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SetAlertActive(ctx context.Context, userID, id string, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE price_alerts SET is_active = ? WHERE id = ? AND user_id = ?`, boolInt(active), id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
