package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/retry"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := New(Config{
		BaseURL:     srv.URL + "/",
		Timeout:     5 * time.Second,
		LookupRetry: &retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	},
		WithLogger(logger.Nop()),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	require.NoError(t, err)
	return g, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func event(id string) map[string]any {
	return map[string]any{
		"id":         id,
		"venueId":    "v1",
		"eventDate":  "2025-06-01T20:00:00.000Z",
		"startTime":  "2025-06-01T20:00:00.000Z",
		"endTime":    nil,
		"createdAt":  "2025-01-01T00:00:00.000Z",
		"updatedAt":  "2025-01-01T00:00:00.000Z",
		"performers": []any{},
		"venue":      map[string]any{"id": "v1", "name": "Soma", "city": "Prishtina"},
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestListEvents(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/nejat", r.URL.Path)
		assert.Equal(t, "jazz", r.URL.Query().Get("search"))
		assert.False(t, r.URL.Query().Has("city"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "12", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		writeJSON(w, http.StatusOK, map[string]any{
			"data": []any{event("e1"), event("e2")},
			"meta": map[string]any{"total": 26, "page": 2, "totalPages": 3},
		})
	})

	page, err := g.ListEvents(context.Background(), &dto.ListEventsParams{Search: "jazz", City: domain.CityAll, Page: 2, Limit: 12})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "e1", page.Data[0].ID)
	assert.Nil(t, page.Data[0].EndTime)
	assert.Equal(t, domain.CityPrishtina, page.Data[0].City())
	assert.Equal(t, dto.PageMeta{Total: 26, Page: 2, TotalPages: 3}, page.Meta)
}

func TestListEvents_SchemaViolation(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		bad := event("")
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []any{bad},
			"meta": map[string]any{"total": 1, "page": 1, "totalPages": 1},
		})
	})

	_, err := g.ListEvents(context.Background(), &dto.ListEventsParams{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestListEvents_StatusError(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := g.ListEvents(context.Background(), &dto.ListEventsParams{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "/nejat", se.Path)
	assert.Equal(t, "boom", se.Body)
}

func TestListEvents_TransportError(t *testing.T) {
	g, srv := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := g.ListEvents(context.Background(), &dto.ListEventsParams{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestListEvents_Cancelled(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.ListEvents(ctx, &dto.ListEventsParams{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetEvent(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nejat/e1":
			writeJSON(w, http.StatusOK, event("e1"))
		case "/nejat/null":
			_, _ = io.WriteString(w, "null")
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	ev, err := g.GetEvent(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "Soma - Event", ev.Title())

	for _, id := range []string{"missing", "null"} {
		ev, err := g.GetEvent(context.Background(), id)
		assert.NoError(t, err, id)
		assert.Nil(t, ev, id)
	}

	_, err = g.GetEvent(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListPerformers_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nejat/performers", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, []any{map[string]any{"id": "p1", "nickname": "DJ"}})
	})

	performers, err := g.ListPerformers(context.Background())
	require.NoError(t, err)
	require.Len(t, performers, 1)
	assert.Equal(t, "DJ", performers[0].DisplayName())
	assert.EqualValues(t, 3, calls.Load())
}

func TestListPerformers_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := g.ListPerformers(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestListTicketEvents_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := g.ListTicketEvents(context.Background())
	assert.True(t, IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestListTicketEvents_Envelope(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []any{map[string]any{"id": "e1", "venue": map[string]any{"name": "Soma"}}},
		})
	})

	events, err := g.ListTicketEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Soma", events[0].Label())
}

func TestCreateSubscription(t *testing.T) {
	var got map[string]any
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscribers/createSubscription", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	})

	resp, err := g.CreateSubscription(context.Background(), &dto.CreateSubscriptionRequest{Email: "a@b.co", VenueID: "v1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"email": "a@b.co", "venueId": "v1"}, got)
}

func TestCreateSubscription_InvalidNeverSends(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := g.CreateSubscription(context.Background(), &dto.CreateSubscriptionRequest{Email: "abc", VenueID: "v1"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Message("email"))
	assert.Zero(t, calls.Load())
}

func TestVotePerformer(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/nejat/performerVote/p1", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "voted"})
	})

	for i := 0; i < 2; i++ {
		resp, err := g.VotePerformer(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "voted", resp.Message)
	}
	assert.EqualValues(t, 2, calls.Load())
}

func TestCreateTicket_SendsImagePayload(t *testing.T) {
	var got struct {
		Base64Data *dto.ImagePayload `json:"base64Data"`
		EventID    *string           `json:"eventId"`
	}
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	eventID := "e1"
	_, err := g.CreateTicket(context.Background(), &dto.CreateTicketRequest{
		FullName:          "Arta Krasniqi",
		Email:             "arta@example.com",
		TicketTitle:       "Wrong date",
		TicketDescription: "The event date shown is wrong",
		EventID:           &eventID,
		Base64Data:        dto.NewTicketImage("data:image/png;base64,iVBORw0KGgo=", time.UnixMilli(1700000000000)),
	})
	require.NoError(t, err)
	require.NotNil(t, got.Base64Data)
	assert.Equal(t, "tickets-1700000000000", got.Base64Data.Filename)
	assert.Equal(t, "tickets", got.Base64Data.Subfolder)
	assert.Equal(t, "e1", *got.EventID)
}

func TestMutation_EmptyBodyIsInvalid(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := g.VotePerformer(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}
