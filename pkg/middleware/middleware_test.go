package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wardenfar/parkingsystem/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRedis is an in-memory stand-in for the idempotency store.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRequestID_GeneratesNew(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	headerID := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, headerID)
	assert.Equal(t, headerID, w.Body.String())
}

func TestRequestID_UsesExisting(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "gate-7-0001")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "gate-7-0001", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "gate-7-0001", w.Body.String())
}

func TestLoggerAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(logger.NewNop(), "/health"), Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("gate sensor offline") })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func idempotentRouter(store RedisClient, calls *int) *gin.Engine {
	r := gin.New()
	r.Use(Idempotency(DefaultIdempotencyConfig(store)))
	r.POST("/entries", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusCreated, gin.H{"spot_number": *calls})
	})
	r.POST("/fail", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db down"})
	})
	return r
}

func post(r *gin.Engine, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	calls := 0
	r := idempotentRouter(newFakeRedis(), &calls)

	first := post(r, "/entries", "k1", `{"registration_number":"AB-123-CD"}`)
	second := post(r, "/entries", "k1", `{"registration_number":"AB-123-CD"}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	calls := 0
	r := idempotentRouter(newFakeRedis(), &calls)

	post(r, "/entries", "k1", `{"registration_number":"AB-123-CD"}`)
	w := post(r, "/entries", "k1", `{"registration_number":"ZZ-999-ZZ"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	r := idempotentRouter(newFakeRedis(), &calls)

	post(r, "/entries", "", `{}`)
	post(r, "/entries", "", `{}`)

	assert.Equal(t, 2, calls)
}

func TestIdempotency_RequireKey(t *testing.T) {
	cfg := DefaultIdempotencyConfig(newFakeRedis())
	cfg.RequireKey = true

	r := gin.New()
	r.Use(Idempotency(cfg))
	r.POST("/entries", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := post(r, "/entries", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_InProgress(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	r := idempotentRouter(store, &calls)

	body := `{"registration_number":"AB-123-CD"}`
	rec := &IdempotencyRecord{Key: "k1", Status: StatusProcessing, RequestHash: requestHash(http.MethodPost, "/entries", []byte(body))}
	ok, err := setRecordNX(context.Background(), store, IdempotencyKeyPrefix+"k1", rec, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	w := post(r, "/entries", "k1", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	r := idempotentRouter(store, &calls)

	post(r, "/fail", "k2", `{}`)
	post(r, "/fail", "k2", `{}`)

	assert.Equal(t, 2, calls)
	_, err := store.Get(context.Background(), IdempotencyKeyPrefix+"k2").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestIdempotency_RedisDownFailsOpen(t *testing.T) {
	store := newFakeRedis()
	store.err = errors.New("connection refused")
	calls := 0
	r := idempotentRouter(store, &calls)

	w := post(r, "/entries", "k3", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_GetIgnoresOtherMethods(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Idempotency(DefaultIdempotencyConfig(newFakeRedis())))
	r.GET("/spots", func(c *gin.Context) {
		calls++
		_, ok := GetIdempotencyKey(c)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/spots", nil)
	req.Header.Set(IdempotencyKeyHeader, "k4")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, calls)
}
