// Package devserver is an in-memory stand-in for the Nejat API used in
// development and tests.
package devserver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

// Repository errors
var (
	ErrPerformerNotFound = errors.New("performer not found")
	ErrVenueNotFound     = errors.New("venue not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// EventRepository is the data behind the API routes
type EventRepository interface {
	List(ctx context.Context, params *dto.ListEventsParams) ([]domain.Event, int, error)
	// GetByID returns nil without error for an unknown id
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListPerformers(ctx context.Context) ([]domain.Performer, error)
	ListTicketEvents(ctx context.Context) ([]domain.TicketEvent, error)
	VotePerformer(ctx context.Context, id string) (int, error)
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) error
	CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (string, error)
}

// Ticket is a stored support ticket
type Ticket struct {
	ID          string
	Request     dto.CreateTicketRequest
	ImageMIME   string
	ImageLength int
}

// MemoryRepository keeps everything in process memory
type MemoryRepository struct {
	mu          sync.RWMutex
	events      []domain.Event
	performers  map[string]*domain.Performer
	votes       map[string]int
	venues      map[string]bool
	subscribers map[string]bool
	tickets     []Ticket
}

// NewMemoryRepository creates a repository holding data, ordered by event date
func NewMemoryRepository(data *SeedData) *MemoryRepository {
	r := &MemoryRepository{
		performers:  make(map[string]*domain.Performer),
		votes:       make(map[string]int),
		venues:      make(map[string]bool),
		subscribers: make(map[string]bool),
	}
	if data == nil {
		return r
	}

	for _, v := range data.Venues {
		r.venues[v.ID] = true
	}
	for i := range data.Performers {
		p := data.Performers[i]
		r.performers[p.ID] = &p
	}
	r.events = append(r.events, data.Events...)
	sort.SliceStable(r.events, func(i, j int) bool {
		if !r.events[i].EventDate.Equal(r.events[j].EventDate) {
			return r.events[i].EventDate.Before(r.events[j].EventDate)
		}
		return r.events[i].ID < r.events[j].ID
	})
	return r
}

// List returns one page of matching events and the total match count
func (r *MemoryRepository) List(ctx context.Context, params *dto.ListEventsParams) ([]domain.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(params.Search))
	var matched []domain.Event
	for _, e := range r.events {
		if params.City != "" && params.City != domain.CityAll && e.Venue.City != params.City {
			continue
		}
		if params.StartDate != nil && e.EventDate.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && e.EventDate.After(*params.EndDate) {
			continue
		}
		if search != "" && !matches(&e, search) {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if params.Page-1 >= (total+params.Limit-1)/params.Limit {
		return []domain.Event{}, total, nil
	}
	start := (params.Page - 1) * params.Limit
	end := start + params.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matches(e *domain.Event, search string) bool {
	fields := []string{e.Description, e.Venue.Name}
	if e.Name != nil {
		fields = append(fields, *e.Name)
	}
	for _, p := range e.Performers {
		fields = append(fields, p.Nickname, p.FullName())
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// GetByID returns the event or nil
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.events {
		if r.events[i].ID == id {
			e := r.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

// ListPerformers returns performers ordered by votes, then name
func (r *MemoryRepository) ListPerformers(ctx context.Context) ([]domain.Performer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Performer, 0, len(r.performers))
	for _, p := range r.performers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := r.votes[out[i].ID], r.votes[out[j].ID]
		if vi != vj {
			return vi > vj
		}
		return out[i].DisplayName() < out[j].DisplayName()
	})
	return out, nil
}

// ListTicketEvents returns every event as a ticket target
func (r *MemoryRepository) ListTicketEvents(ctx context.Context) ([]domain.TicketEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TicketEvent, len(r.events))
	for i, e := range r.events {
		out[i].ID = e.ID
		out[i].Venue.Name = e.Venue.Name
	}
	return out, nil
}

// VotePerformer adds a vote and returns the new count
func (r *MemoryRepository) VotePerformer(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.performers[id]; !ok {
		return 0, ErrPerformerNotFound
	}
	r.votes[id]++
	return r.votes[id], nil
}

// Votes returns the vote count of a performer
func (r *MemoryRepository) Votes(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.votes[id]
}

// CreateSubscription records an email for a venue
func (r *MemoryRepository) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.venues[req.VenueID] {
		return ErrVenueNotFound
	}
	key := req.VenueID + "|" + strings.ToLower(req.Email)
	if r.subscribers[key] {
		return ErrAlreadySubscribed
	}
	r.subscribers[key] = true
	return nil
}

// CreateTicket stores a ticket and returns its id
func (r *MemoryRepository) CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.EventID != nil {
		found := false
		for i := range r.events {
			if r.events[i].ID == *req.EventID {
				found = true
				break
			}
		}
		if !found {
			return "", ErrEventNotFound
		}
	}

	t := Ticket{ID: uuid.NewString(), Request: *req}
	if req.Base64Data != nil {
		if img, err := decodeDataURI(req.Base64Data.Base64); err == nil {
			t.ImageMIME, t.ImageLength = img.mime, len(img.data)
		}
		// The stored copy keeps metadata only.
		t.Request.Base64Data = nil
	}
	r.tickets = append(r.tickets, t)
	return t.ID, nil
}

// Tickets returns the stored tickets
func (r *MemoryRepository) Tickets() []Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Ticket, len(r.tickets))
	copy(out, r.tickets)
	return out
}
