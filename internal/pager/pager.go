// Package pager accumulates pages of the event list for one filter key.
package pager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
	"github.com/prohmpiriya/nejat-client/internal/filter"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
)

// DefaultPageSize is the number of events requested per page
const DefaultPageSize = 12

// ErrSuperseded is returned to a caller whose response arrived after a key
// change or refresh. The response is discarded.
var ErrSuperseded = errors.New("response superseded")

// Lister fetches one page of events
type Lister interface {
	ListEvents(ctx context.Context, params *dto.ListEventsParams) (*dto.EventPage, error)
}

// Status is the state of the result set
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Snapshot is a copy of the query state for rendering
type Snapshot struct {
	Key          filter.Key
	Status       Status
	Pages        []dto.EventPage
	CurrentPage  int
	TotalPages   int
	Total        int
	HasMore      bool
	FetchingNext bool
	// Err is the first-page failure in StatusError, or the last next-page
	// failure in StatusReady
	Err error
}

// Events returns the accumulated events in server order
func (s Snapshot) Events() []domain.Event {
	var out []domain.Event
	for _, p := range s.Pages {
		out = append(out, p.Data...)
	}
	return out
}

// Len returns the number of accumulated events
func (s Snapshot) Len() int {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Data)
	}
	return n
}

// Exhausted reports that every page has been loaded
func (s Snapshot) Exhausted() bool {
	return s.Status == StatusReady && !s.HasMore
}

// Listener receives snapshots after state changes, oldest first. Listeners
// may call back into the Query.
type Listener func(Snapshot)

// Option configures a Query
type Option func(*Query)

// WithPageSize sets the page size
func WithPageSize(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.limit = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(q *Query) { q.log = l }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(q *Query) { q.metrics = m }
}

// Query is the paginated event list for the current filter key
type Query struct {
	lister  Lister
	limit   int
	log     *logger.Logger
	metrics *metrics.Recorder
	group   singleflight.Group

	mu           sync.Mutex
	key          filter.Key
	gen          uint64
	genCtx       context.Context
	genCancel    context.CancelFunc
	status       Status
	pages        []dto.EventPage
	fetchingNext bool
	err          error
	listeners    map[int]Listener
	nextID       int
	seq          uint64

	notifyMu   sync.Mutex
	pending    *Snapshot
	pendingSeq uint64
	delivered  uint64
	delivering bool
}

// New creates an idle query for filter.DefaultKey
func New(lister Lister, opts ...Option) *Query {
	q := &Query{
		lister:    lister,
		limit:     DefaultPageSize,
		log:       logger.Get(),
		key:       filter.DefaultKey,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.Named("pager")
	q.genCtx, q.genCancel = context.WithCancel(context.Background())
	return q
}

// Bind follows the store's key. The returned func stops following.
func (q *Query) Bind(store *filter.Store) func() {
	q.SetKey(store.Key())
	return store.Subscribe(func(k filter.Key) {
		q.SetKey(k)
	})
}

// SetKey switches to key. A different key cancels in-flight requests and
// empties the result set before returning. It reports whether the key changed.
func (q *Query) SetKey(key filter.Key) bool {
	q.mu.Lock()
	if key == q.key {
		q.mu.Unlock()
		return false
	}
	q.key = key
	q.resetLocked(StatusIdle)
	snap, seq := q.stampLocked()
	q.mu.Unlock()

	q.log.Debug("filter key changed", zap.Stringer("key", key))
	q.notify(snap, seq)
	return true
}

// Load fetches the first page when idle (or after a failed first page),
// joins the in-flight first page when loading and does nothing when ready.
func (q *Query) Load(ctx context.Context) error {
	q.mu.Lock()
	switch q.status {
	case StatusReady:
		q.mu.Unlock()
		return nil
	case StatusIdle, StatusError:
		q.status = StatusLoading
		q.err = nil
	}
	key, gen, genCtx := q.key, q.gen, q.genCtx
	snap, seq := q.stampLocked()
	q.mu.Unlock()

	q.notify(snap, seq)
	return q.fetch(ctx, key, gen, genCtx, 1)
}

// FetchMore requests the page after the latest one. It reports false without
// a request unless the set is ready, has more pages and no next page is
// already in flight.
func (q *Query) FetchMore(ctx context.Context) (bool, error) {
	q.mu.Lock()
	if q.status != StatusReady || q.fetchingNext || !q.hasMoreLocked() {
		q.mu.Unlock()
		return false, nil
	}
	q.fetchingNext = true
	next := q.pages[len(q.pages)-1].Meta.Page + 1
	key, gen, genCtx := q.key, q.gen, q.genCtx
	snap, seq := q.stampLocked()
	q.mu.Unlock()

	q.notify(snap, seq)
	return true, q.fetch(ctx, key, gen, genCtx, next)
}

// Refresh cancels in-flight requests, drops every page and reloads page one
func (q *Query) Refresh(ctx context.Context) error {
	q.mu.Lock()
	q.resetLocked(StatusLoading)
	key, gen, genCtx := q.key, q.gen, q.genCtx
	snap, seq := q.stampLocked()
	q.mu.Unlock()

	q.log.Debug("refresh", zap.Stringer("key", key))
	q.notify(snap, seq)
	return q.fetch(ctx, key, gen, genCtx, 1)
}

// Snapshot returns the current state
func (q *Query) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe registers fn for state changes and returns its unsubscribe func
func (q *Query) Subscribe(fn Listener) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

// Close cancels in-flight requests
func (q *Query) Close() {
	q.mu.Lock()
	q.genCancel()
	q.mu.Unlock()
}

// fetch requests one page, sharing the request with concurrent callers for
// the same key, generation and page. The result is applied once, inside the
// shared call.
func (q *Query) fetch(ctx context.Context, key filter.Key, gen uint64, genCtx context.Context, page int) error {
	flightKey := fmt.Sprintf("%s|%d|%d", key, gen, page)

	ch := q.group.DoChan(flightKey, func() (any, error) {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(genCtx, cancel)
		defer stop()

		res, err := q.lister.ListEvents(fetchCtx, key.Params(page, q.limit))
		return nil, q.apply(gen, page, res, err)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		return r.Err
	}
}

// apply stores a page result unless its generation is stale
func (q *Query) apply(gen uint64, page int, res *dto.EventPage, err error) error {
	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		q.metrics.TrackPage("superseded")
		q.log.Debug("dropping superseded page", zap.Int("page", page), zap.Uint64("generation", gen))
		return ErrSuperseded
	}

	if page == 1 && q.status != StatusLoading {
		// A first page for this generation was already applied.
		q.mu.Unlock()
		return err
	}

	if err != nil {
		if page == 1 {
			q.status = StatusError
			q.pages = nil
		} else {
			q.fetchingNext = false
		}
		q.err = err
		snap, seq := q.stampLocked()
		q.mu.Unlock()

		q.metrics.TrackPage("error")
		q.log.Warn("page fetch failed", zap.Int("page", page), zap.Error(err))
		q.notify(snap, seq)
		return err
	}

	if page == 1 {
		q.pages = []dto.EventPage{*res}
		q.status = StatusReady
	} else {
		q.pages = append(q.pages, *res)
		q.fetchingNext = false
	}
	q.err = nil
	snap, seq := q.stampLocked()
	q.mu.Unlock()

	q.metrics.TrackPage("ok")
	q.notify(snap, seq)
	return nil
}

// resetLocked starts a new generation, cancelling the previous one
func (q *Query) resetLocked(status Status) {
	q.genCancel()
	q.genCtx, q.genCancel = context.WithCancel(context.Background())
	q.gen++
	q.pages = nil
	q.fetchingNext = false
	q.err = nil
	q.status = status
}

// hasMoreLocked uses only the latest page's metadata
func (q *Query) hasMoreLocked() bool {
	if len(q.pages) == 0 {
		return false
	}
	return q.pages[len(q.pages)-1].Meta.HasMore()
}

func (q *Query) snapshotLocked() Snapshot {
	s := Snapshot{
		Key:          q.key,
		Status:       q.status,
		FetchingNext: q.fetchingNext,
		Err:          q.err,
		HasMore:      q.hasMoreLocked(),
	}
	if len(q.pages) > 0 {
		s.Pages = make([]dto.EventPage, len(q.pages))
		copy(s.Pages, q.pages)
		last := q.pages[len(q.pages)-1].Meta
		s.CurrentPage = last.Page
		s.TotalPages = last.TotalPages
		s.Total = last.Total
	}
	return s
}

// stampLocked numbers a snapshot for ordered delivery
func (q *Query) stampLocked() (Snapshot, uint64) {
	q.seq++
	return q.snapshotLocked(), q.seq
}

// notify hands snap to the listeners unless a newer snapshot was already
// handed out. One caller delivers at a time; snapshots arriving meanwhile
// are coalesced to the newest, so listeners see states in order but may
// skip intermediate ones.
func (q *Query) notify(snap Snapshot, seq uint64) {
	q.notifyMu.Lock()
	if seq <= q.delivered || (q.pending != nil && seq <= q.pendingSeq) {
		q.notifyMu.Unlock()
		return
	}
	q.pending, q.pendingSeq = &snap, seq
	if q.delivering {
		q.notifyMu.Unlock()
		return
	}
	q.delivering = true
	for q.pending != nil {
		next := *q.pending
		q.delivered = q.pendingSeq
		q.pending = nil
		q.notifyMu.Unlock()

		for _, fn := range q.listenersSorted() {
			fn(next)
		}

		q.notifyMu.Lock()
	}
	q.delivering = false
	q.notifyMu.Unlock()
}

func (q *Query) listenersSorted() []Listener {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int, 0, len(q.listeners))
	for id := range q.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, q.listeners[id])
	}
	return listeners
}
