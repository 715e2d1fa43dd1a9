package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

const DefaultLimit = 10

// Store is the lookup-then-branch surface every backend provides.
type Store interface {
	FindHistory(ctx context.Context, key models.HistoryKey) (models.SearchHistoryEntry, bool, error)
	InsertHistory(ctx context.Context, entry models.SearchHistoryEntry) error
	UpdateHistory(ctx context.Context, entry models.SearchHistoryEntry) error
	RecentHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error)
}

// Upserter is implemented by backends with a native insert-or-increment on
// the identity key. entry is the count-1 row to insert when none exists.
type Upserter interface {
	UpsertHistory(ctx context.Context, entry models.SearchHistoryEntry) (models.Operation, error)
}

type Option func(*Engine)

// WithLimit sets how many entries Recent returns.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

type Engine struct {
	store Store
	limit int
	now   func() time.Time
	locks keyedMutex
	log   logger.Logger
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		limit: DefaultLimit,
		now:   func() time.Time { return time.Now().UTC() },
		locks: keyedMutex{locks: make(map[models.HistoryKey]*keyLock)},
		log:   logger.Named("history"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record applies one observed search for userID and returns the fresh
// recent list read back from the store.
func (e *Engine) Record(ctx context.Context, userID string, s models.HistorySearch) (models.HistoryResult, error) {
	if userID == "" {
		return models.HistoryResult{}, models.ErrUnauthenticated
	}
	if s.Origin.SkyID == "" {
		return models.HistoryResult{}, models.ErrMissingOrigin
	}
	if s.Destination.SkyID == "" {
		return models.HistoryResult{}, models.ErrMissingDestination
	}
	if s.DepartureDate == "" {
		return models.HistoryResult{}, models.ErrMissingDepartureDate
	}

	op, err := e.apply(ctx, userID, s)
	if err != nil {
		return models.HistoryResult{}, e.persistenceError(ctx, "record", err)
	}
	metrics.RecordHistoryOperation(string(op))

	recent, err := e.store.RecentHistory(ctx, userID, e.limit)
	if err != nil {
		return models.HistoryResult{Operation: op}, e.persistenceError(ctx, "re-read", err)
	}
	return models.HistoryResult{Operation: op, Recent: recent}, nil
}

func (e *Engine) apply(ctx context.Context, userID string, s models.HistorySearch) (models.Operation, error) {
	now := e.now()

	if up, ok := e.store.(Upserter); ok {
		entries, _ := RecordSearch(nil, userID, s, now)
		entry := entries[0]
		entry.ID = uuid.NewString()
		return up.UpsertHistory(ctx, entry)
	}

	key := s.Key(userID)
	unlock := e.locks.Lock(key)
	defer unlock()

	var existing []models.SearchHistoryEntry
	found, ok, err := e.store.FindHistory(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		existing = append(existing, found)
	}

	entries, op := RecordSearch(existing, userID, s, now)
	if op == models.OperationIncrement {
		return op, e.store.UpdateHistory(ctx, entries[0])
	}
	entry := entries[len(entries)-1]
	entry.ID = uuid.NewString()
	return op, e.store.InsertHistory(ctx, entry)
}

// Recent returns the newest entries for userID, newest first.
func (e *Engine) Recent(ctx context.Context, userID string) ([]models.SearchHistoryEntry, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	recent, err := e.store.RecentHistory(ctx, userID, e.limit)
	if err != nil {
		return nil, e.persistenceError(ctx, "read", err)
	}
	return recent, nil
}

func (e *Engine) persistenceError(ctx context.Context, stage string, err error) error {
	metrics.RecordPersistenceError("search_history")
	e.log.Error(ctx, "search history "+stage+" failed", logger.Error(err))
	return fmt.Errorf("%w: search history %s: %w", models.ErrPersistenceFailed, stage, err)
}

// keyedMutex serializes writers per identity key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[models.HistoryKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key models.HistoryKey) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
