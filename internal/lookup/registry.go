package lookup

import (
	"sync"
	"time"

	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

type sessionKey struct {
	session string
	field   string
}

type entry struct {
	debouncer *Debouncer
	lastUsed  time.Time
}

// Registry holds one Debouncer per session and field.
type Registry struct {
	lookup LookupFunc
	opts   []Option
	now    func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*entry
	closed   bool
}

// NewRegistry creates debouncers on demand with lookup and opts.
func NewRegistry(lookup LookupFunc, opts ...Option) *Registry {
	return &Registry{
		lookup:   lookup,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[sessionKey]*entry),
	}
}

// Get returns the debouncer for session and field, creating it on first use.
// It returns nil once the registry is closed.
func (r *Registry) Get(session, field string) *Debouncer {
	key := sessionKey{session: session, field: field}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	e, ok := r.sessions[key]
	if !ok {
		e = &entry{debouncer: New(r.lookup, r.opts...)}
		r.sessions[key] = e
		metrics.SetLookupSessions(len(r.sessions))
	}
	e.lastUsed = r.now()
	return e.debouncer
}

// Peek returns an existing debouncer without creating one.
func (r *Registry) Peek(session, field string) (*Debouncer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionKey{session: session, field: field}]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.debouncer, true
}

// Drop closes and removes one debouncer. It reports whether one existed.
func (r *Registry) Drop(session, field string) bool {
	key := sessionKey{session: session, field: field}

	r.mu.Lock()
	e, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
		metrics.SetLookupSessions(len(r.sessions))
	}
	r.mu.Unlock()

	if ok {
		e.debouncer.Close()
	}
	return ok
}

// Prune closes debouncers unused for longer than idle and returns how many
// were removed.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Debouncer
	for key, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.debouncer)
			delete(r.sessions, key)
		}
	}
	metrics.SetLookupSessions(len(r.sessions))
	r.mu.Unlock()

	for _, d := range stale {
		d.Close()
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close shuts every debouncer down. Get returns nil afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Debouncer, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e.debouncer)
	}
	r.sessions = make(map[sessionKey]*entry)
	metrics.SetLookupSessions(0)
	r.mu.Unlock()

	for _, d := range all {
		d.Close()
	}
}
