package devserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/redis"
)

const (
	// Cache keys
	eventDetailKeyPrefix = "nejat:event:"
	eventListKeyPrefix   = "nejat:events:"
	listVersionKey       = "nejat:events:version"
	performersKey        = "nejat:performers"

	// DefaultCacheTTL is used when no TTL is configured
	DefaultCacheTTL = 5 * time.Minute
)

// CachedEventRepository wraps an EventRepository with Redis caching of
// event detail, list pages and the performer list. Votes drop the performer
// list and bump the list version so stale pages are never read again.
type CachedEventRepository struct {
	repo    EventRepository
	cache   *redis.Client
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Recorder
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache *redis.Client, ttl time.Duration, log *logger.Logger, m *metrics.Recorder) *CachedEventRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Get()
	}
	return &CachedEventRepository{repo: repo, cache: cache, ttl: ttl, log: log.Named("cache"), metrics: m}
}

type cachedEventList struct {
	Events []domain.Event `json:"events"`
	Total  int            `json:"total"`
}

// List serves a page from cache, keyed by the list version and the query
func (r *CachedEventRepository) List(ctx context.Context, params *dto.ListEventsParams) ([]domain.Event, int, error) {
	version, err := r.cache.Version(ctx, listVersionKey)
	if err != nil {
		r.log.Warn("list version lookup failed", zap.Error(err))
		return r.repo.List(ctx, params)
	}

	key := listKey(version, params)
	var cached cachedEventList
	if hit, err := r.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		r.metrics.TrackCache("event_list", true)
		return cached.Events, cached.Total, nil
	}
	r.metrics.TrackCache("event_list", false)

	events, total, err := r.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	r.store(ctx, key, cachedEventList{Events: events, Total: total})
	return events, total, nil
}

// GetByID serves event detail from cache. Misses are not cached.
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	key := eventDetailKeyPrefix + id

	var cached domain.Event
	if hit, err := r.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		r.metrics.TrackCache("event", true)
		return &cached, nil
	}
	r.metrics.TrackCache("event", false)

	event, err := r.repo.GetByID(ctx, id)
	if err != nil || event == nil {
		return event, err
	}
	r.store(ctx, key, event)
	return event, nil
}

// ListPerformers serves the performer list from cache
func (r *CachedEventRepository) ListPerformers(ctx context.Context) ([]domain.Performer, error) {
	var cached []domain.Performer
	if hit, err := r.cache.GetJSON(ctx, performersKey, &cached); err == nil && hit {
		r.metrics.TrackCache("performers", true)
		return cached, nil
	}
	r.metrics.TrackCache("performers", false)

	performers, err := r.repo.ListPerformers(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, performersKey, performers)
	return performers, nil
}

// ListTicketEvents bypasses the cache
func (r *CachedEventRepository) ListTicketEvents(ctx context.Context) ([]domain.TicketEvent, error) {
	return r.repo.ListTicketEvents(ctx)
}

// VotePerformer records the vote and invalidates vote-dependent caches
func (r *CachedEventRepository) VotePerformer(ctx context.Context, id string) (int, error) {
	votes, err := r.repo.VotePerformer(ctx, id)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx)
	return votes, nil
}

// CreateSubscription bypasses the cache
func (r *CachedEventRepository) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) error {
	return r.repo.CreateSubscription(ctx, req)
}

// CreateTicket bypasses the cache
func (r *CachedEventRepository) CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (string, error) {
	return r.repo.CreateTicket(ctx, req)
}

func (r *CachedEventRepository) store(ctx context.Context, key string, v any) {
	if err := r.cache.SetJSON(ctx, key, v, r.ttl); err != nil {
		r.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedEventRepository) invalidate(ctx context.Context) {
	if err := r.cache.Del(ctx, performersKey); err != nil {
		r.log.Warn("cache delete failed", zap.String("key", performersKey), zap.Error(err))
	}
	if _, err := r.cache.Bump(ctx, listVersionKey); err != nil {
		r.log.Warn("list version bump failed", zap.Error(err))
	}
}

func listKey(version int64, params *dto.ListEventsParams) string {
	sum := sha1.Sum([]byte(params.Query().Encode()))
	return fmt.Sprintf("%sv%d:%s", eventListKeyPrefix, version, hex.EncodeToString(sum[:8]))
}
