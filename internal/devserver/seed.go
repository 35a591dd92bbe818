package devserver

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/nejat-client/internal/domain"
)

// SeedData is the initial content of a MemoryRepository
type SeedData struct {
	Venues     []domain.Venue
	Performers []domain.Performer
	Events     []domain.Event
}

var seedNamespace = uuid.MustParse("6f1c1c0e-3b0a-4d8e-9a43-5b0c3a5e2f10")

// seedID derives a stable id so restarts keep URLs valid
func seedID(kind string, n int) string {
	return uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%s-%d", kind, n))).String()
}

// DefaultSeed builds a catalogue of venues, performers and 30 events spread
// over the weeks after now
func DefaultSeed(now time.Time) *SeedData {
	created := now.UTC().Truncate(24 * time.Hour).AddDate(0, -1, 0)

	venueSpecs := []struct {
		name string
		city domain.City
		desc string
	}{
		{"Soma Book Station", domain.CityPrishtina, "Bookshop by day, stage by night"},
		{"Zone Club", domain.CityPrishtina, "Late-night electronic music"},
		{"Marash Terrace", domain.CityPrizren, "Open-air terrace by the river"},
		{"Bazaar Hall", domain.CityPeja, "Concert hall in the old bazaar"},
		{"Lake Stage", domain.CityGjilan, "Summer stage on the water"},
		{"Old Hammam", domain.CityGjakova, "Acoustic sets under the dome"},
	}

	data := &SeedData{}
	for i, s := range venueSpecs {
		data.Venues = append(data.Venues, domain.Venue{
			ID:          seedID("venue", i),
			Name:        s.name,
			Description: s.desc,
			Address:     fmt.Sprintf("Rruga %d", 10+i),
			City:        s.city,
			PhoneNumber: fmt.Sprintf("+38344%06d", 100000+i),
			ImageURL:    fmt.Sprintf("https://images.nejat.dev/venues/%d.jpg", i),
			SocialMedia: domain.VenueSocialMedia{
				SocialMedia: domain.SocialMedia{Instagram: fmt.Sprintf("venue%d", i)},
				Website:     fmt.Sprintf("https://venue%d.nejat.dev", i),
			},
			CreatedAt: created,
			UpdatedAt: created,
		})
	}

	performerSpecs := []struct{ nick, first, last, bio string }{
		{"", "Arta", "Krasniqi", "Jazz vocalist"},
		{"DJ Drin", "Drin", "Berisha", "House and techno"},
		{"", "Besa", "Gashi", "Folk guitar"},
		{"Jazz Trio K", "", "", "Modern jazz trio"},
		{"Ritmi", "Luan", "Hoxha", "Rock drummer"},
		{"", "Era", "Morina", "Singer-songwriter"},
	}
	for i, s := range performerSpecs {
		data.Performers = append(data.Performers, domain.Performer{
			ID:          seedID("performer", i),
			Nickname:    s.nick,
			FirstName:   s.first,
			LastName:    s.last,
			PhoneNumber: fmt.Sprintf("+38349%06d", 200000+i),
			Bio:         s.bio,
			ImageURL:    fmt.Sprintf("https://images.nejat.dev/performers/%d.jpg", i),
			SocialMedia: domain.SocialMedia{Instagram: fmt.Sprintf("artist%d", i)},
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}

	genres := []string{"Jazz Night", "Techno Friday", "Folk Evening", "Rock Live", "Acoustic Session"}
	start := now.UTC().Truncate(24 * time.Hour).Add(20 * time.Hour)
	for i := 0; i < 30; i++ {
		venue := data.Venues[i%len(data.Venues)]
		date := start.AddDate(0, 0, i)
		end := date.Add(3 * time.Hour)

		ev := domain.Event{
			ID:          seedID("event", i),
			VenueID:     venue.ID,
			EventDate:   date,
			Description: fmt.Sprintf("%s at %s", genres[i%len(genres)], venue.Name),
			StartTime:   date,
			CreatedAt:   created,
			UpdatedAt:   created,
			Performers: []domain.Performer{
				data.Performers[i%len(data.Performers)],
				data.Performers[(i+2)%len(data.Performers)],
			},
			Venue: venue,
		}
		// Every third event is unnamed and falls back to the venue title.
		if i%3 != 0 {
			name := genres[i%len(genres)]
			ev.Name = &name
			ev.ImageURL = fmt.Sprintf("https://images.nejat.dev/events/%d.jpg", i)
		}
		if i%4 != 0 {
			ev.EndTime = &end
		}
		data.Events = append(data.Events, ev)
	}

	return data
}
