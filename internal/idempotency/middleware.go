package idempotency

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"
)

// HeaderKey is the request header clients set to make a mutation retryable.
const HeaderKey = "Idempotency-Key"

// DefaultTTL bounds how long a cached response can be replayed.
const DefaultTTL = 24 * time.Hour

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// Middleware replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through untouched, as do non-mutating
// methods. Store failures degrade to processing the request normally; a
// duplicate side effect is preferable to rejecting a legitimate retry.
func Middleware(store Store, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cached, err := store.Get(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
			}
			if cached != nil {
				if cached.ContentType != "" {
					w.Header().Set("Content-Type", cached.ContentType)
				}
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			// Only successful outcomes are worth replaying; a failed
			// mutation should be retried for real.
			if capture.status >= 200 && capture.status < 300 {
				err := store.Save(ctx, key, &Response{
					Status:      capture.status,
					ContentType: capture.Header().Get("Content-Type"),
					Body:        capture.body.Bytes(),
				}, ttl)
				if err != nil {
					logger.WarnContext(ctx, "idempotency save failed", "error", err)
				}
			}
		})
	}
}
