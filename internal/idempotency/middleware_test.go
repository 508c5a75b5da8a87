package idempotency

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingHandler(hits *atomic.Int32, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestMiddlewareReplaysCachedResponse(t *testing.T) {
	var hits atomic.Int32
	handler := Middleware(NewInMemoryStore(), time.Minute, slog.New(slog.DiscardHandler))(
		newCountingHandler(&hits, http.StatusCreated, `{"allocation_id":0}`))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/treasury/grants", strings.NewReader("{}"))
		req.Header.Set(HeaderKey, "alloc-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"allocation_id":0}`, rec.Body.String())
		if i > 0 {
			assert.Equal(t, "true", rec.Header().Get("Idempotent-Replay"))
		}
	}
	assert.Equal(t, int32(1), hits.Load(), "handler must run once per key")
}

func TestMiddlewareDistinctKeysRunSeparately(t *testing.T) {
	var hits atomic.Int32
	handler := Middleware(NewInMemoryStore(), time.Minute, slog.New(slog.DiscardHandler))(
		newCountingHandler(&hits, http.StatusNoContent, ""))

	for _, key := range []string{"dep-1", "dep-2"} {
		req := httptest.NewRequest(http.MethodPost, "/treasury/deposit", strings.NewReader("{}"))
		req.Header.Set(HeaderKey, key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestMiddlewareSkipsWithoutKeyOrForReads(t *testing.T) {
	var hits atomic.Int32
	handler := Middleware(NewInMemoryStore(), time.Minute, slog.New(slog.DiscardHandler))(
		newCountingHandler(&hits, http.StatusOK, `{}`))

	// No header: every request reaches the handler.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/treasury/deposit", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
	// GET requests pass through even with a key.
	req := httptest.NewRequest(http.MethodGet, "/treasury/balances", nil)
	req.Header.Set(HeaderKey, "read-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, int32(3), hits.Load())
}

func TestMiddlewareDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	handler := Middleware(NewInMemoryStore(), time.Minute, slog.New(slog.DiscardHandler))(
		newCountingHandler(&hits, http.StatusUnprocessableEntity, `{"error":"unprocessable"}`))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/treasury/invest", strings.NewReader("{}"))
		req.Header.Set(HeaderKey, "inv-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
	assert.Equal(t, int32(2), hits.Load(), "failed mutations are retried for real")
}

func TestInMemoryStoreExpiry(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(t.Context(), "k", &Response{Status: 204}, time.Minute))

	cached, err := store.Get(t.Context(), "k")
	require.NoError(t, err)
	require.NotNil(t, cached)

	now = now.Add(2 * time.Minute)
	cached, err = store.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
