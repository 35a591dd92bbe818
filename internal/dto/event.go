package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prohmpiriya/nejat-client/internal/domain"
)

// ISOMillis is the date layout the API expects, always in UTC
const ISOMillis = "2006-01-02T15:04:05.000Z"

// Page size limits for list requests
const (
	DefaultLimit = 12
	MaxLimit     = 100
)

// ListEventsParams represents query parameters for listing events
type ListEventsParams struct {
	Search    string      `validate:"max=200"`
	City      domain.City `validate:"omitempty,cityfilter"`
	StartDate *time.Time
	EndDate   *time.Time
	Page      int `validate:"gte=1"`
	Limit     int `validate:"gte=1,lte=100"`
}

// SetDefaults sets default values for pagination
func (p *ListEventsParams) SetDefaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.City == "" {
		p.City = domain.CityAll
	}
}

// Query encodes the params. Empty search and the ALL city are omitted.
func (p *ListEventsParams) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	if p.City != "" && p.City != domain.CityAll {
		q.Set("city", string(p.City))
	}
	if p.StartDate != nil {
		q.Set("startDate", FormatTime(*p.StartDate))
	}
	if p.EndDate != nil {
		q.Set("endDate", FormatTime(*p.EndDate))
	}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	return q
}

// ParseListEventsParams decodes a list query, applying defaults
func ParseListEventsParams(q url.Values) (*ListEventsParams, error) {
	p := &ListEventsParams{Search: strings.TrimSpace(q.Get("search"))}

	if c := q.Get("city"); c != "" {
		city, err := domain.ParseCity(c)
		if err != nil {
			return nil, fmt.Errorf("city %q: %w", c, err)
		}
		p.City = city
	}

	var err error
	if p.StartDate, err = parseOptionalTime(q.Get("startDate")); err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}
	if p.EndDate, err = parseOptionalTime(q.Get("endDate")); err != nil {
		return nil, fmt.Errorf("endDate: %w", err)
	}
	if p.Page, err = parseOptionalInt(q.Get("page")); err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	if p.Limit, err = parseOptionalInt(q.Get("limit")); err != nil {
		return nil, fmt.Errorf("limit: %w", err)
	}

	p.SetDefaults()
	return p, nil
}

// FormatTime renders t as an ISO-8601 UTC timestamp with milliseconds
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOMillis)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q: %w", s, domain.ErrInvalidInput)
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, domain.ErrInvalidInput)
	}
	return n, nil
}

// PageMeta is the pagination block of a list response
type PageMeta struct {
	Total      int `json:"total" validate:"gte=0"`
	Page       int `json:"page" validate:"gte=1"`
	TotalPages int `json:"totalPages" validate:"gte=0"`
}

// HasMore reports whether a page follows this one
func (m PageMeta) HasMore() bool {
	return m.Page < m.TotalPages
}

// EventPage is one page of the event list
type EventPage struct {
	Data []domain.Event `json:"data" validate:"dive"`
	Meta PageMeta       `json:"meta"`
}
