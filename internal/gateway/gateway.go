// Package gateway is the HTTP client for the Nejat REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/retry"
	"github.com/prohmpiriya/nejat-client/pkg/telemetry"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 512

// Config holds gateway settings
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP exchange; zero means no client-side deadline
	Timeout time.Duration
	// LookupRetry applies to the performer and ticket-event lookups only
	LookupRetry *retry.Config
}

// Gateway issues requests against the Nejat API
type Gateway struct {
	baseURL     *url.URL
	client      *http.Client
	log         *logger.Logger
	metrics     *metrics.Recorder
	lookupRetry *retry.Retrier
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a gateway for cfg.BaseURL
func New(cfg Config, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme", cfg.BaseURL)
	}

	g := &Gateway{
		baseURL:     u,
		client:      newHTTPClient(cfg.Timeout),
		log:         logger.Get(),
		lookupRetry: retry.New(cfg.LookupRetry),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.Named("gateway")

	return g, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}

// BaseURL returns the API root
func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

// ListEvents fetches one page of events
func (g *Gateway) ListEvents(ctx context.Context, params *dto.ListEventsParams) (*dto.EventPage, error) {
	const op = "list_events"

	p := *params
	p.SetDefaults()
	if err := domain.Validate(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, err := g.do(ctx, op, http.MethodGet, "/nejat", p.Query(), nil)
	if err != nil {
		return nil, err
	}

	var page dto.EventPage
	if err := decode(op, body, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []domain.Event{}
	}
	return &page, nil
}

// GetEvent fetches one event. A missing event yields (nil, nil): the API
// answers with an empty body or null rather than a 404.
func (g *Gateway) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	const op = "get_event"

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: empty id: %w", op, domain.ErrInvalidInput)
	}

	body, err := g.do(ctx, op, http.MethodGet, "/nejat/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, nil
	}

	var event domain.Event
	if err := decode(op, body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListPerformers fetches the performers available for voting. Transient
// failures are retried.
func (g *Gateway) ListPerformers(ctx context.Context) ([]domain.Performer, error) {
	const op = "list_performers"

	var performers []domain.Performer
	err := g.withLookupRetry(ctx, op, func(ctx context.Context) error {
		body, err := g.do(ctx, op, http.MethodGet, "/nejat/performers", nil, nil)
		if err != nil {
			return err
		}
		performers = nil
		return decode(op, body, &performersList{Items: &performers})
	})
	if err != nil {
		return nil, err
	}
	return performers, nil
}

// ListTicketEvents fetches the events a ticket can refer to. Transient
// failures are retried.
func (g *Gateway) ListTicketEvents(ctx context.Context) ([]domain.TicketEvent, error) {
	const op = "list_ticket_events"

	var events []domain.TicketEvent
	err := g.withLookupRetry(ctx, op, func(ctx context.Context) error {
		body, err := g.do(ctx, op, http.MethodGet, "/nejat/ticketEvents", nil, nil)
		if err != nil {
			return err
		}
		events = nil
		return decode(op, body, &ticketEventsList{Items: &events})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateSubscription subscribes an email (and optionally a phone) to a venue
func (g *Gateway) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.MutationResponse, error) {
	return g.mutate(ctx, "create_subscription", http.MethodPost, "/subscribers/createSubscription", req)
}

// VotePerformer casts one vote for a performer
func (g *Gateway) VotePerformer(ctx context.Context, performerID string) (*dto.MutationResponse, error) {
	if strings.TrimSpace(performerID) == "" {
		return nil, fmt.Errorf("vote_performer: empty id: %w", domain.ErrInvalidInput)
	}
	return g.mutate(ctx, "vote_performer", http.MethodPatch, "/nejat/performerVote/"+url.PathEscape(performerID), nil)
}

// CreateTicket files a support ticket
func (g *Gateway) CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (*dto.MutationResponse, error) {
	return g.mutate(ctx, "create_ticket", http.MethodPost, "/nejat/createTicket", req)
}

func (g *Gateway) mutate(ctx context.Context, op, method, path string, payload any) (*dto.MutationResponse, error) {
	if payload != nil {
		if err := domain.Validate(payload); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	body, err := g.do(ctx, op, method, path, nil, payload)
	if err != nil {
		return nil, err
	}

	var resp dto.MutationResponse
	if isEmpty(body) {
		return nil, invalidResponse(op, errors.New("empty body"))
	}
	if err := decode(op, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// withLookupRetry retries op on transport errors and 5xx. Client errors and
// cancellation end the loop at once.
func (g *Gateway) withLookupRetry(ctx context.Context, op string, fn retry.Operation) error {
	res := g.lookupRetry.Do(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.IsClientError() {
			return retry.Permanent(err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrInvalidResponse) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, wait time.Duration) {
		g.metrics.TrackGatewayRetry(op)
		g.log.Warn("retrying lookup",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	if res.Err == nil {
		return nil
	}
	if errors.Is(res.Err, retry.ErrMaxRetriesExceeded) && res.LastError != nil {
		return res.LastError
	}
	return res.Err
}

// do performs one exchange and returns the body of a 2xx response
func (g *Gateway) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := g.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	telemetry.InjectHeaders(ctx, req.Header)

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", u.String()),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	resp, err := g.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		g.metrics.TrackGatewayRequest(op, "error", latency)
		g.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		err = transportError(method, path, err)
		telemetry.SetSpanError(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.TrackGatewayRequest(op, "error", latency)
		err = transportError(method, path, fmt.Errorf("read body: %w", err))
		telemetry.SetSpanError(span, err)
		return nil, err
	}

	g.metrics.TrackGatewayRequest(op, strconv.Itoa(resp.StatusCode), latency)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warn("unexpected status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
			zap.Duration("latency", latency),
		)
		err := &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
		telemetry.SetSpanError(span, err)
		return nil, err
	}

	g.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("latency", latency),
	)

	return body, nil
}

// performersList accepts either a bare array or a {data: [...]} envelope
type performersList struct {
	Items *[]domain.Performer
}

func (l *performersList) UnmarshalJSON(b []byte) error {
	return unmarshalList(b, l.Items)
}

func (l *performersList) validate() error {
	for i := range *l.Items {
		if err := domain.Validate(&(*l.Items)[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

type ticketEventsList struct {
	Items *[]domain.TicketEvent
}

func (l *ticketEventsList) UnmarshalJSON(b []byte) error {
	return unmarshalList(b, l.Items)
}

func (l *ticketEventsList) validate() error {
	for i := range *l.Items {
		if err := domain.Validate(&(*l.Items)[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func unmarshalList[T any](b []byte, out *[]T) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var env struct {
			Data []T `json:"data"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return err
		}
		*out = env.Data
		return nil
	}
	return json.Unmarshal(b, out)
}

type selfValidating interface {
	validate() error
}

// decode unmarshals body into v and validates it
func decode(op string, body []byte, v any) error {
	if isEmpty(body) {
		if _, ok := v.(selfValidating); ok {
			return nil
		}
		return invalidResponse(op, errors.New("empty body"))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidResponse(op, err)
	}

	var err error
	if sv, ok := v.(selfValidating); ok {
		err = sv.validate()
	} else {
		err = domain.Validate(v)
	}
	if err != nil {
		return invalidResponse(op, err)
	}
	return nil
}

func isEmpty(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
