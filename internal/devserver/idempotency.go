package devserver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/response"
)

const (
	// IdempotencyKeyHeader lets a client retry a write without applying it twice
	IdempotencyKeyHeader = "X-Idempotency-Key"

	idempotencyKeyPrefix = "nejat:idempotency:"

	// DefaultIdempotencyTTL is how long a completed response is replayed
	DefaultIdempotencyTTL = 5 * time.Minute
	// DefaultProcessingTTL bounds how long an unfinished request holds its key
	DefaultProcessingTTL = 60 * time.Second
)

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
}

// IdempotencyStore is the subset of the Redis client the middleware needs
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// IdempotencyConfig configures Idempotency
type IdempotencyConfig struct {
	Store         IdempotencyStore
	TTL           time.Duration
	ProcessingTTL time.Duration
	Logger        *logger.Logger
}

// Idempotency replays the stored response when a write is repeated with the
// same X-Idempotency-Key. Requests without the header pass through, as do
// all requests while Redis is failing. Server errors release the key.
func Idempotency(cfg *IdempotencyConfig) gin.HandlerFunc {
	ttl, processingTTL := cfg.TTL, cfg.ProcessingTTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	if processingTTL <= 0 {
		processingTTL = DefaultProcessingTTL
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("idempotency")

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Unreadable request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		redisKey := idempotencyKeyPrefix + key
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		existing, err := getRecord(ctx, cfg.Store, redisKey)
		if err != nil {
			log.Warn("lookup failed, continuing without idempotency", zap.Error(err))
			c.Next()
			return
		}
		if existing == nil {
			data, _ := json.Marshal(&idempotencyRecord{Status: statusProcessing, RequestHash: hash})
			ok, err := cfg.Store.SetNX(ctx, redisKey, string(data), processingTTL).Result()
			if err != nil {
				log.Warn("reserve failed, continuing without idempotency", zap.Error(err))
				c.Next()
				return
			}
			if !ok {
				// Lost the race to a concurrent request with the same key.
				existing, _ = getRecord(ctx, cfg.Store, redisKey)
				if existing == nil {
					// The winner released the key before it could be read back.
					existing = &idempotencyRecord{Status: statusProcessing, RequestHash: hash}
				}
			}
		}
		if existing != nil {
			replay(c, existing, hash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		status := rw.Status()
		if status >= http.StatusInternalServerError {
			if err := cfg.Store.Del(ctx, redisKey).Err(); err != nil {
				log.Warn("release failed", zap.String("key", key), zap.Error(err))
			}
			return
		}

		data, _ := json.Marshal(&idempotencyRecord{
			Status:       statusCompleted,
			RequestHash:  hash,
			ResponseCode: status,
			ResponseBody: rw.body.String(),
		})
		if err := cfg.Store.Set(ctx, redisKey, string(data), ttl).Err(); err != nil {
			log.Warn("store failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, rec *idempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request", "")
	case rec.Status == statusProcessing:
		response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed", "")
	default:
		c.Header("Idempotent-Replayed", "true")
		c.Data(rec.ResponseCode, "application/json; charset=utf-8", []byte(rec.ResponseBody))
	}
	c.Abort()
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getRecord(ctx context.Context, store IdempotencyStore, key string) (*idempotencyRecord, error) {
	data, err := store.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// capturingWriter keeps a copy of the response body
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
