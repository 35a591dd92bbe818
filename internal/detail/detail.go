// Package detail loads single events by id, separately from the list.
package detail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
)

// DefaultStaleTime is how long a loaded event is served without refetching
const DefaultStaleTime = 5 * time.Minute

// Fetcher loads one event. A nil event with a nil error means no such event.
type Fetcher interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// State is what a detail screen shows. Exactly one applies.
type State int

const (
	Loading State = iota
	Error
	NotFound
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Error:
		return "error"
	case NotFound:
		return "not_found"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is the resolved detail for one id
type View struct {
	ID        string
	State     State
	Event     *domain.Event
	Err       error
	FetchedAt time.Time
}

// Resolve picks the state in priority order: loading, error, not found, ready
func Resolve(id string, loading bool, err error, event *domain.Event) View {
	switch {
	case loading:
		return View{ID: id, State: Loading}
	case err != nil:
		return View{ID: id, State: Error, Err: err}
	case event == nil:
		return View{ID: id, State: NotFound}
	default:
		return View{ID: id, State: Ready, Event: event}
	}
}

type entry struct {
	event     *domain.Event
	err       error
	fetchedAt time.Time
	loading   bool
}

// Option configures a Loader
type Option func(*Loader)

// WithStaleTime sets how long results are served from cache
func WithStaleTime(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.staleTime = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// Loader fetches and caches events by id
type Loader struct {
	fetcher   Fetcher
	staleTime time.Duration
	now       func() time.Time
	log       *logger.Logger
	group     singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

// NewLoader creates a Loader
func NewLoader(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		staleTime: DefaultStaleTime,
		now:       time.Now,
		log:       logger.Get(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("detail")
	return l
}

// Load returns the event for id, fetching it unless a fresh successful
// result is cached. Concurrent loads of one id share a request.
func (l *Loader) Load(ctx context.Context, id string) View {
	l.mu.Lock()
	if e, ok := l.entries[id]; ok && !e.loading && e.err == nil && l.now().Sub(e.fetchedAt) < l.staleTime {
		v := l.viewLocked(id, e)
		l.mu.Unlock()
		return v
	}
	e, ok := l.entries[id]
	if !ok {
		e = &entry{}
		l.entries[id] = e
	}
	e.loading = true
	l.mu.Unlock()

	ch := l.group.DoChan(id, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		event, err := l.fetcher.GetEvent(fetchCtx, id)

		l.mu.Lock()
		cur, ok := l.entries[id]
		if !ok {
			// Invalidated while in flight.
			cur = &entry{}
			l.entries[id] = cur
		}
		cur.loading = false
		cur.event, cur.err, cur.fetchedAt = event, err, l.now()
		l.mu.Unlock()

		if err != nil {
			l.log.Warn("event fetch failed", zap.String("id", id), zap.Error(err))
		}
		return event, err
	})

	select {
	case <-ctx.Done():
		return Resolve(id, false, ctx.Err(), nil)
	case r := <-ch:
		event, _ := r.Val.(*domain.Event)
		v := Resolve(id, false, r.Err, event)
		v.FetchedAt = l.now()
		return v
	}
}

// View returns the cached state for id without fetching. An id never
// loaded reports Loading.
func (l *Loader) View(id string) View {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return Resolve(id, true, nil, nil)
	}
	return l.viewLocked(id, e)
}

// Invalidate drops the cached result for id
func (l *Loader) Invalidate(id string) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()
}

// InvalidateAll drops every cached result
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	l.entries = make(map[string]*entry)
	l.mu.Unlock()
}

func (l *Loader) viewLocked(id string, e *entry) View {
	v := Resolve(id, e.loading, e.err, e.event)
	v.FetchedAt = e.fetchedAt
	return v
}

// ErrNotLoaded is returned by EventOrError for loading and not-found views
var ErrNotLoaded = errors.New("event not loaded")

// EventOrError returns the loaded event or an error describing the state
func (v View) EventOrError() (*domain.Event, error) {
	switch v.State {
	case Ready:
		return v.Event, nil
	case Error:
		return nil, v.Err
	default:
		return nil, fmt.Errorf("%s: %w", v.State, ErrNotLoaded)
	}
}
