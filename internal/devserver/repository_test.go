package devserver

import (
	"context"
	"encoding/base64"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

var (
	seedNow   = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pngURI    = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
)

func newSeededRepo() *MemoryRepository {
	return NewMemoryRepository(DefaultSeed(seedNow))
}

func listParams(mod func(*dto.ListEventsParams)) *dto.ListEventsParams {
	p := &dto.ListEventsParams{}
	if mod != nil {
		mod(p)
	}
	p.SetDefaults()
	return p
}

func TestDefaultSeed(t *testing.T) {
	data := DefaultSeed(seedNow)

	assert.Len(t, data.Venues, 6)
	assert.Len(t, data.Performers, 6)
	require.Len(t, data.Events, 30)

	for _, e := range data.Events {
		assert.NoError(t, domain.Validate(&e))
		assert.False(t, e.EventDate.Before(seedNow), "seeded events are upcoming")
	}
	assert.Nil(t, data.Events[0].Name)
	assert.Equal(t, "Soma Book Station - Event", data.Events[0].Title())
	assert.Nil(t, data.Events[0].EndTime)
	assert.NotNil(t, data.Events[1].EndTime)

	t.Run("ids are stable", func(t *testing.T) {
		again := DefaultSeed(seedNow.Add(48 * time.Hour))
		assert.Equal(t, data.Events[5].ID, again.Events[5].ID)
		assert.Equal(t, data.Venues[2].ID, again.Venues[2].ID)
	})
}

func TestMemoryRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newSeededRepo()

	t.Run("pages in date order", func(t *testing.T) {
		var all []domain.Event
		for page := 1; page <= 3; page++ {
			events, total, err := repo.List(ctx, listParams(func(p *dto.ListEventsParams) { p.Page = page }))
			require.NoError(t, err)
			assert.Equal(t, 30, total)
			all = append(all, events...)
		}
		require.Len(t, all, 30)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].EventDate.Before(all[i-1].EventDate))
		}
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		events, total, err := repo.List(ctx, listParams(func(p *dto.ListEventsParams) { p.Page = 9 }))
		require.NoError(t, err)
		assert.Equal(t, 30, total)
		assert.Empty(t, events)

		events, _, err = repo.List(ctx, listParams(func(p *dto.ListEventsParams) {
			p.Page = math.MaxInt
			p.Limit = dto.MaxLimit
		}))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("city filter", func(t *testing.T) {
		events, total, err := repo.List(ctx, listParams(func(p *dto.ListEventsParams) {
			p.City = domain.CityPrishtina
			p.Limit = 50
		}))
		require.NoError(t, err)
		assert.Equal(t, 10, total)
		for _, e := range events {
			assert.Equal(t, domain.CityPrishtina, e.City())
		}
	})

	t.Run("search matches performers case-insensitively", func(t *testing.T) {
		_, total, err := repo.List(ctx, listParams(func(p *dto.ListEventsParams) { p.Search = "  dj drin " }))
		require.NoError(t, err)
		assert.Equal(t, 10, total)
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		data := DefaultSeed(seedNow)
		from, to := data.Events[3].EventDate, data.Events[6].EventDate
		_, total, err := repo.List(ctx, listParams(func(p *dto.ListEventsParams) {
			p.StartDate, p.EndDate = &from, &to
		}))
		require.NoError(t, err)
		assert.Equal(t, 4, total)
	})
}

func TestMemoryRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := newSeededRepo()
	id := DefaultSeed(seedNow).Events[4].ID

	event, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, id, event.ID)

	event, err = repo.GetByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, event)
}

func TestMemoryRepository_Votes(t *testing.T) {
	ctx := context.Background()
	repo := newSeededRepo()
	performers, err := repo.ListPerformers(ctx)
	require.NoError(t, err)
	require.Len(t, performers, 6)

	last := performers[len(performers)-1].ID
	n, err := repo.VotePerformer(ctx, last)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, repo.Votes(last))

	performers, err = repo.ListPerformers(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, performers[0].ID, "most voted performer sorts first")

	_, err = repo.VotePerformer(ctx, "missing")
	assert.ErrorIs(t, err, ErrPerformerNotFound)
}

func TestMemoryRepository_CreateSubscription(t *testing.T) {
	ctx := context.Background()
	repo := newSeededRepo()
	venue := DefaultSeed(seedNow).Venues[0].ID

	req := &dto.CreateSubscriptionRequest{Email: "fan@example.com", VenueID: venue}
	require.NoError(t, repo.CreateSubscription(ctx, req))

	dup := &dto.CreateSubscriptionRequest{Email: "FAN@example.com", VenueID: venue}
	assert.ErrorIs(t, repo.CreateSubscription(ctx, dup), ErrAlreadySubscribed)

	other := &dto.CreateSubscriptionRequest{Email: "fan@example.com", VenueID: "nowhere"}
	assert.ErrorIs(t, repo.CreateSubscription(ctx, other), ErrVenueNotFound)
}

func TestMemoryRepository_CreateTicket(t *testing.T) {
	ctx := context.Background()
	repo := newSeededRepo()
	eventID := DefaultSeed(seedNow).Events[0].ID

	req := &dto.CreateTicketRequest{
		FullName:          "Arben Hoxha",
		Email:             "arben@example.com",
		TicketTitle:       "Refund please",
		TicketDescription: "The event was cancelled at the door.",
		EventID:           &eventID,
		Base64Data:        dto.NewTicketImage(pngURI, seedNow),
	}
	id, err := repo.CreateTicket(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	tickets := repo.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, id, tickets[0].ID)
	assert.Equal(t, "image/png", tickets[0].ImageMIME)
	assert.Equal(t, len(pngHeader), tickets[0].ImageLength)
	assert.Nil(t, tickets[0].Request.Base64Data)
	assert.NotNil(t, req.Base64Data, "caller's request is untouched")

	missing := "missing"
	req.EventID = &missing
	_, err = repo.CreateTicket(ctx, req)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDecodeDataURI(t *testing.T) {
	img, err := decodeDataURI(pngURI)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.mime)
	assert.Equal(t, pngHeader, img.data)

	tests := []struct {
		name string
		uri  string
	}{
		{"no prefix", "image/png;base64,AAAA"},
		{"no base64 marker", "data:image/png,AAAA"},
		{"bad base64", "data:image/png;base64,!!!"},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeDataURI(tt.uri)
			assert.ErrorIs(t, err, errBadImage)
		})
	}
}
