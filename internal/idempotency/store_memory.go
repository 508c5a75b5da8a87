package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	response  Response
	expiresAt time.Time
}

// InMemoryStore keeps cached responses in process memory. Suitable for
// single-instance deployments and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*Response, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}
	response := entry.response
	return &response, nil
}

func (s *InMemoryStore) Save(_ context.Context, key string, response *Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		response:  *response,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}
