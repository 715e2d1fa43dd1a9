// Package memory is an in-process store. It offers only the
// lookup-then-branch history primitives, so history writers serialize
// through the engine's keyed lock.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dharmasatrya/flightscout/internal/models"
)

// ErrDuplicateKey mirrors the unique constraint a durable store enforces on
// the history identity key.
var ErrDuplicateKey = errors.New("duplicate search history key")

type historyRow struct {
	entry models.SearchHistoryEntry
	seq   uint64
}

type favoriteRow struct {
	fav models.FavoriteRoute
	seq uint64
}

type alertRow struct {
	alert models.PriceAlert
	seq   uint64
}

type Store struct {
	mu        sync.RWMutex
	seq       uint64
	history   map[models.HistoryKey]*historyRow
	favorites map[string]*favoriteRow
	alerts    map[string]*alertRow
}

func New() *Store {
	return &Store{
		history:   make(map[models.HistoryKey]*historyRow),
		favorites: make(map[string]*favoriteRow),
		alerts:    make(map[string]*alertRow),
	}
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) FindHistory(_ context.Context, key models.HistoryKey) (models.SearchHistoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.history[key]
	if !ok {
		return models.SearchHistoryEntry{}, false, nil
	}
	return row.entry, true, nil
}

func (s *Store) InsertHistory(_ context.Context, entry models.SearchHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entry.Key()
	if _, exists := s.history[key]; exists {
		return ErrDuplicateKey
	}
	s.history[key] = &historyRow{entry: entry, seq: s.next()}
	return nil
}

func (s *Store) UpdateHistory(_ context.Context, entry models.SearchHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.history[entry.Key()]
	if !ok || row.entry.ID != entry.ID {
		return models.ErrNotFound
	}
	row.entry = entry
	row.seq = s.next()
	return nil
}

// RecentHistory orders by last search, newest first.
func (s *Store) RecentHistory(_ context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	s.mu.RLock()
	rows := make([]*historyRow, 0)
	for _, row := range s.history {
		if row.entry.UserID == userID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.entry.LastSearchedAt.Equal(b.entry.LastSearchedAt) {
			return a.entry.LastSearchedAt.After(b.entry.LastSearchedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]models.SearchHistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = row.entry
	}
	return out, nil
}

func (s *Store) InsertFavorite(_ context.Context, fav models.FavoriteRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites[fav.ID] = &favoriteRow{fav: fav, seq: s.next()}
	return nil
}

func (s *Store) ListFavorites(_ context.Context, userID string) ([]models.FavoriteRoute, error) {
	s.mu.RLock()
	rows := make([]*favoriteRow, 0)
	for _, row := range s.favorites {
		if row.fav.UserID == userID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.fav.CreatedAt.Equal(b.fav.CreatedAt) {
			return a.fav.CreatedAt.After(b.fav.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.FavoriteRoute, len(rows))
	for i, row := range rows {
		out[i] = row.fav
	}
	return out, nil
}

func (s *Store) DeleteFavorite(_ context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.favorites[id]
	if !ok || row.fav.UserID != userID {
		return false, nil
	}
	delete(s.favorites, id)
	return true, nil
}

func (s *Store) InsertAlert(_ context.Context, alert models.PriceAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = &alertRow{alert: alert, seq: s.next()}
	return nil
}

func (s *Store) ListAlerts(_ context.Context, userID string, activeOnly bool) ([]models.PriceAlert, error) {
	s.mu.RLock()
	rows := make([]*alertRow, 0)
	for _, row := range s.alerts {
		if row.alert.UserID != userID || (activeOnly && !row.alert.IsActive) {
			continue
		}
		rows = append(rows, row)
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.alert.CreatedAt.Equal(b.alert.CreatedAt) {
			return a.alert.CreatedAt.After(b.alert.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.PriceAlert, len(rows))
	for i, row := range rows {
		out[i] = row.alert
	}
	return out, nil
}

func (s *Store) SetAlertActive(_ context.Context, userID, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.alerts[id]
	if !ok || row.alert.UserID != userID {
		return false, nil
	}
	row.alert.IsActive = active
	return true, nil
}
