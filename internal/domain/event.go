package domain

import (
	"strings"
	"time"
)

// SocialMedia holds a performer's handles
type SocialMedia struct {
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

// VenueSocialMedia adds a website to the handles
type VenueSocialMedia struct {
	SocialMedia
	Website string `json:"website,omitempty"`
}

// SocialLink is a rendered link to a profile
type SocialLink struct {
	Network string
	URL     string
}

// Links returns profile links for the handles that are set. TikTok
// profiles live under /@handle.
func (s SocialMedia) Links() []SocialLink {
	var links []SocialLink
	add := func(network, prefix, handle string) {
		handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
		if handle == "" {
			return
		}
		links = append(links, SocialLink{Network: network, URL: prefix + handle})
	}
	add("twitter", "https://twitter.com/", s.Twitter)
	add("instagram", "https://instagram.com/", s.Instagram)
	add("facebook", "https://facebook.com/", s.Facebook)
	add("tiktok", "https://tiktok.com/@", s.TikTok)
	return links
}

// Venue is a physical location hosting events
type Venue struct {
	ID          string           `json:"id" validate:"required"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Address     string           `json:"address"`
	City        City             `json:"city" validate:"omitempty,city"`
	PhoneNumber string           `json:"phoneNumber"`
	ImageURL    string           `json:"imageUrl"`
	SocialMedia VenueSocialMedia `json:"socialMedia"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Performer is an artist appearing at events
type Performer struct {
	ID          string      `json:"id" validate:"required"`
	Nickname    string      `json:"nickname"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	PhoneNumber string      `json:"phoneNumber"`
	Bio         string      `json:"bio"`
	ImageURL    string      `json:"imageUrl"`
	SocialMedia SocialMedia `json:"socialMedia"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// FullName joins first and last name
func (p *Performer) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// DisplayName prefers the nickname, then the full name
func (p *Performer) DisplayName() string {
	if n := strings.TrimSpace(p.Nickname); n != "" {
		return n
	}
	if n := p.FullName(); n != "" {
		return n
	}
	return p.ID
}

// Event is a scheduled happening at a venue. The API calls it a "nejat".
type Event struct {
	ID          string      `json:"id" validate:"required"`
	VenueID     string      `json:"venueId" validate:"required"`
	EventDate   time.Time   `json:"eventDate"`
	Name        *string     `json:"name,omitempty"`
	Description string      `json:"description"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Performers  []Performer `json:"performers" validate:"dive"`
	Venue       Venue       `json:"venue"`
}

// Title returns the event name, falling back to "<venue> - Event"
func (e *Event) Title() string {
	if e.Name != nil && strings.TrimSpace(*e.Name) != "" {
		return *e.Name
	}
	return e.Venue.Name + " - Event"
}

// CoverImage returns the event image, falling back to the venue image
func (e *Event) CoverImage() string {
	if e.ImageURL != "" {
		return e.ImageURL
	}
	return e.Venue.ImageURL
}

// City returns the venue city
func (e *Event) City() City {
	return e.Venue.City
}

// TicketEvent is a selectable event when filing a support ticket
type TicketEvent struct {
	ID    string `json:"id" validate:"required"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
}

// Label is the picker text for a ticket event
func (t *TicketEvent) Label() string {
	if t.Venue.Name == "" {
		return t.ID
	}
	return t.Venue.Name
}
