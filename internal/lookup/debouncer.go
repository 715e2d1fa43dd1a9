// Package lookup debounces per-field location lookups. Each field owns a
// Debouncer that waits for input to settle, issues one lookup, and applies a
// response only while it is still the newest response for the newest input.
package lookup

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dharmasatrya/flightscout/internal/models"
	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

const (
	DefaultWait      = 300 * time.Millisecond
	DefaultMinLength = 2
)

// LookupFunc performs one location lookup. It must honour ctx cancellation.
type LookupFunc func(ctx context.Context, query string) ([]models.Airport, error)

type State int

const (
	Idle State = iota
	Pending
	InFlight
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Timer is the subset of *time.Timer the debouncer uses.
type Timer interface {
	Stop() bool
}

// Clock schedules the settling timer.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type EventKind string

const (
	EventFired     EventKind = "fired"
	EventApplied   EventKind = "applied"
	EventDiscarded EventKind = "discarded"
	EventFailed    EventKind = "failed"
	EventCleared   EventKind = "cleared"
)

// Event reports a transition. ID is the request id involved, zero for
// EventCleared.
type Event struct {
	Kind  EventKind
	ID    uint64
	Query string
	Err   error
}

type Observer func(Event)

// Snapshot is a point-in-time copy of a debouncer's visible state.
type Snapshot struct {
	State   State            `json:"state"`
	Query   string           `json:"query"`
	Results []models.Airport `json:"results"`
	Open    bool             `json:"open"`
	Error   string           `json:"error,omitempty"`
	Seq     uint64           `json:"seq"`
}

type Option func(*Debouncer)

func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		if c != nil {
			d.clock = c
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Debouncer) { d.observer = o }
}

func WithWait(wait time.Duration) Option {
	return func(d *Debouncer) {
		if wait >= 0 {
			d.wait = wait
		}
	}
}

// WithMinLength sets the minimum number of runes, after trimming, that
// triggers a lookup.
func WithMinLength(n int) Option {
	return func(d *Debouncer) {
		if n > 0 {
			d.minLength = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(d *Debouncer) {
		if l != nil {
			d.log = l
		}
	}
}

type Debouncer struct {
	lookup    LookupFunc
	clock     Clock
	wait      time.Duration
	minLength int
	observer  Observer
	log       logger.Logger

	mu       sync.Mutex
	state    State
	query    string
	results  []models.Airport
	open     bool
	lastErr  string
	seq      uint64 // latest issued request id
	inflight uint64 // id of the call allowed to settle, zero if none
	timer    Timer
	timerGen uint64
	cancel   context.CancelFunc
	closed   bool
	running  sync.WaitGroup
}

func New(lookup LookupFunc, opts ...Option) *Debouncer {
	d := &Debouncer{
		lookup:    lookup,
		clock:     realClock{},
		wait:      DefaultWait,
		minLength: DefaultMinLength,
		log:       logger.Named("lookup"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input records the latest text of the field. Short input clears the field
// and abandons any pending or in-flight lookup; anything else restarts the
// settling timer.
func (d *Debouncer) Input(query string) {
	q := strings.TrimSpace(query)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.query = q

	if utf8.RuneCountInString(q) < d.minLength {
		d.stopTimerLocked()
		d.cancelInFlightLocked()
		d.results = nil
		d.lastErr = ""
		d.state = Idle
		d.mu.Unlock()
		d.emit(Event{Kind: EventCleared, Query: q})
		return
	}

	d.stopTimerLocked()
	gen := d.timerGen
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen) })
	d.state = Pending
	d.mu.Unlock()
}

// Focus opens the result list.
func (d *Debouncer) Focus() {
	d.setOpen(true)
}

// Blur closes the result list. In-flight work is left running and its
// results are kept for the next Focus.
func (d *Debouncer) Blur() {
	d.setOpen(false)
}

// Dismiss closes the result list, as after an outside click or a selection.
func (d *Debouncer) Dismiss() {
	d.setOpen(false)
}

func (d *Debouncer) setOpen(open bool) {
	d.mu.Lock()
	d.open = open
	d.mu.Unlock()
}

func (d *Debouncer) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]models.Airport, len(d.results))
	copy(results, d.results)
	return Snapshot{
		State:   d.state,
		Query:   d.query,
		Results: results,
		Open:    d.open,
		Error:   d.lastErr,
		Seq:     d.seq,
	}
}

// Close stops the timer, cancels in-flight work and waits for it to return.
// Later calls to Input are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.stopTimerLocked()
	d.cancelInFlightLocked()
	d.mu.Unlock()

	d.running.Wait()
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// A timer that already fired may be waiting on mu; the generation bump
	// makes it a no-op.
	d.timerGen++
}

func (d *Debouncer) cancelInFlightLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.inflight = 0
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.timerGen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.cancelInFlightLocked()

	d.seq++
	id, q := d.seq, d.query
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.inflight = id
	d.state = InFlight
	d.running.Add(1)
	d.mu.Unlock()

	d.emit(Event{Kind: EventFired, ID: id, Query: q})
	go d.run(ctx, id, q)
}

func (d *Debouncer) run(ctx context.Context, id uint64, q string) {
	defer d.running.Done()
	results, err := d.lookup(ctx, q)
	d.settle(id, q, results, err)
}

func (d *Debouncer) settle(id uint64, q string, results []models.Airport, err error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if id != d.seq || id != d.inflight || q != d.query {
		d.mu.Unlock()
		d.emit(Event{Kind: EventDiscarded, ID: id, Query: q})
		return
	}

	d.cancelInFlightLocked()
	if d.timer == nil {
		d.state = Settled
	}
	if err != nil {
		d.results = nil
		d.lastErr = models.ErrLookupFailed.Error()
	} else {
		d.results = results
		d.lastErr = ""
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn(context.Background(), "LookupFailed",
			logger.String("query", q),
			logger.Uint64("id", id),
			logger.Error(err),
		)
		d.emit(Event{Kind: EventFailed, ID: id, Query: q, Err: err})
		return
	}
	d.emit(Event{Kind: EventApplied, ID: id, Query: q})
}

func (d *Debouncer) emit(e Event) {
	metrics.RecordLookupEvent(string(e.Kind))
	if d.observer != nil {
		d.observer(e)
	}
}
