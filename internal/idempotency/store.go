// Package idempotency replays cached responses for repeated mutation
// requests that carry the same Idempotency-Key, so treasury mutations are
// retry-safe at the HTTP boundary.
package idempotency

import (
	"context"
	"time"
)

// Response is a cached HTTP response for one idempotency key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store persists responses keyed by idempotency key.
type Store interface {
	// Get returns the cached response for key, or nil if none exists.
	Get(ctx context.Context, key string) (*Response, error)
	// Save caches the response for key with the given TTL.
	Save(ctx context.Context, key string, response *Response, ttl time.Duration) error
}
