// Package filter holds the search, city and date range the event list is
// scoped by.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

// State is a snapshot of the filter inputs. Nil dates mean unbounded.
type State struct {
	Search string
	City   domain.City
	Start  *time.Time
	End    *time.Time
}

// Key identifies one result set. It is comparable and safe to use as a map key.
// Zero times mean unbounded.
type Key struct {
	Search string
	City   domain.City
	Start  time.Time
	End    time.Time
}

// DefaultKey is the key of a freshly reset store
var DefaultKey = Key{City: domain.CityAll}

// Params builds list request params for one page of this key
func (k Key) Params(page, limit int) *dto.ListEventsParams {
	p := &dto.ListEventsParams{
		Search: k.Search,
		City:   k.City,
		Page:   page,
		Limit:  limit,
	}
	if !k.Start.IsZero() {
		start := k.Start
		p.StartDate = &start
	}
	if !k.End.IsZero() {
		end := k.End
		p.EndDate = &end
	}
	p.SetDefaults()
	return p
}

// IsDefault reports whether no filter is applied
func (k Key) IsDefault() bool {
	return k == DefaultKey
}

func (k Key) String() string {
	parts := []string{fmt.Sprintf("search=%q", k.Search), "city=" + string(k.City)}
	if !k.Start.IsZero() {
		parts = append(parts, "start="+dto.FormatTime(k.Start))
	}
	if !k.End.IsZero() {
		parts = append(parts, "end="+dto.FormatTime(k.End))
	}
	return strings.Join(parts, " ")
}

// Listener is notified with the new key after a change
type Listener func(Key)

// Store holds the filter state
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store in its reset state
func NewStore() *Store {
	return &Store{
		state:     State{City: domain.CityAll},
		listeners: make(map[int]Listener),
	}
}

// SetSearch sets the search text. Surrounding whitespace is ignored and an
// empty string disables the text filter.
func (s *Store) SetSearch(text string) {
	text = strings.TrimSpace(text)
	s.update(func(st *State) {
		st.Search = text
	})
}

// SetCity sets the city filter. domain.CityAll clears it.
func (s *Store) SetCity(city domain.City) error {
	if !city.IsFilter() {
		return fmt.Errorf("set city %q: %w", city, domain.ErrInvalidCity)
	}
	s.update(func(st *State) {
		st.City = city
	})
	return nil
}

// SetDateRange sets both ends of the range. Either may be nil. An end before
// the start is kept as given and simply matches nothing.
func (s *Store) SetDateRange(start, end *time.Time) {
	s.update(func(st *State) {
		st.Start = copyTime(start)
		st.End = copyTime(end)
	})
}

// SetStart sets the start of the range, keeping the end
func (s *Store) SetStart(start *time.Time) {
	s.update(func(st *State) {
		st.Start = copyTime(start)
	})
}

// SetEnd sets the end of the range, keeping the start
func (s *Store) SetEnd(end *time.Time) {
	s.update(func(st *State) {
		st.End = copyTime(end)
	})
}

// Reset returns to empty search, all cities and no date range
func (s *Store) Reset() {
	s.update(func(st *State) {
		*st = State{City: domain.CityAll}
	})
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Start = copyTime(st.Start)
	st.End = copyTime(st.End)
	return st
}

// Key returns the key of the current state
func (s *Store) Key() Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keyOf(s.state)
}

// Subscribe registers fn for key changes and returns its unsubscribe func
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update applies fn and notifies listeners outside the lock when the key changed
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	before := keyOf(s.state)
	fn(&s.state)
	after := keyOf(s.state)

	var listeners []Listener
	if after != before {
		ids := make([]int, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			listeners = append(listeners, s.listeners[id])
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(after)
	}
}

func keyOf(st State) Key {
	k := Key{Search: st.Search, City: st.City}
	if st.Start != nil {
		k.Start = normalize(*st.Start)
	}
	if st.End != nil {
		k.End = normalize(*st.End)
	}
	return k
}

// normalize strips location and monotonic reading so equal instants compare equal
func normalize(t time.Time) time.Time {
	return t.UTC().Round(0)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
