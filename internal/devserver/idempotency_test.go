package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/nejat-client/pkg/logger"
)

func setupIdempotentRouter(t *testing.T) (*gin.Engine, *MemoryRepository, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = db.Close() })

	repo := newSeededRepo()
	router := NewRouter(&RouterConfig{Repo: repo, Logger: logger.Nop(), Idempotency: db})
	return router, repo, mock
}

func vote(router *gin.Engine, performerID, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/nejat/performerVote/"+performerID, nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func storedRecord(t *testing.T, rec idempotencyRecord) string {
	t.Helper()
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(b)
}

func TestIdempotency(t *testing.T) {
	performer := DefaultSeed(seedNow).Performers[0].ID
	path := "/nejat/performerVote/" + performer
	redisKey := idempotencyKeyPrefix + "k1"

	t.Run("without key", func(t *testing.T) {
		router, repo, mock := setupIdempotentRouter(t)

		assert.Equal(t, http.StatusOK, vote(router, performer, "").Code)
		assert.Equal(t, http.StatusOK, vote(router, performer, "").Code)
		assert.Equal(t, 2, repo.Votes(performer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first request is stored", func(t *testing.T) {
		router, repo, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).RedisNil()
		mock.Regexp().ExpectSetNX(redisKey, `"status":"processing"`, DefaultProcessingTTL).SetVal(true)
		mock.Regexp().ExpectSet(redisKey, `"status":"completed".*"response_code":200`, DefaultIdempotencyTTL).SetVal("OK")

		w := vote(router, performer, "k1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, repo.Votes(performer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed request is replayed", func(t *testing.T) {
		router, repo, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).SetVal(storedRecord(t, idempotencyRecord{
			Status:       statusCompleted,
			RequestHash:  requestHash(http.MethodPatch, path, nil),
			ResponseCode: http.StatusOK,
			ResponseBody: `{"success":true,"message":"Vote recorded"}`,
		}))

		w := vote(router, performer, "k1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(t, `{"success":true,"message":"Vote recorded"}`, w.Body.String())
		assert.Equal(t, 0, repo.Votes(performer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("key reused for another request", func(t *testing.T) {
		router, _, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).SetVal(storedRecord(t, idempotencyRecord{
			Status:      statusCompleted,
			RequestHash: requestHash(http.MethodPatch, "/nejat/performerVote/other", nil),
		}))

		assert.Equal(t, http.StatusUnprocessableEntity, vote(router, performer, "k1").Code)
	})

	t.Run("request still in progress", func(t *testing.T) {
		router, _, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).RedisNil()
		mock.Regexp().ExpectSetNX(redisKey, `"status":"processing"`, DefaultProcessingTTL).SetVal(false)
		mock.ExpectGet(redisKey).SetVal(storedRecord(t, idempotencyRecord{
			Status:      statusProcessing,
			RequestHash: requestHash(http.MethodPatch, path, nil),
		}))

		assert.Equal(t, http.StatusConflict, vote(router, performer, "k1").Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("key released by the winner before re-read", func(t *testing.T) {
		router, repo, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).RedisNil()
		mock.Regexp().ExpectSetNX(redisKey, `"status":"processing"`, DefaultProcessingTTL).SetVal(false)
		mock.ExpectGet(redisKey).RedisNil()

		w := vote(router, performer, "k1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")
		assert.Zero(t, repo.Votes(performer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("client errors are stored too", func(t *testing.T) {
		router, _, mock := setupIdempotentRouter(t)
		key := idempotencyKeyPrefix + "k2"

		mock.ExpectGet(key).RedisNil()
		mock.Regexp().ExpectSetNX(key, `"status":"processing"`, DefaultProcessingTTL).SetVal(true)
		mock.Regexp().ExpectSet(key, `"response_code":404`, DefaultIdempotencyTTL).SetVal("OK")

		assert.Equal(t, http.StatusNotFound, vote(router, "missing", "k2").Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis down fails open", func(t *testing.T) {
		router, repo, mock := setupIdempotentRouter(t)

		mock.ExpectGet(redisKey).SetErr(errors.New("connection refused"))

		assert.Equal(t, http.StatusOK, vote(router, performer, "k1").Code)
		assert.Equal(t, 1, repo.Votes(performer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reads are untouched", func(t *testing.T) {
		router, _, mock := setupIdempotentRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/nejat/performers", nil)
		req.Header.Set(IdempotencyKeyHeader, "k1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
