package memory

import (
	"context"
	"sync"

	id "verigrant/pkg/domain"
	audit "verigrant/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory, grouped by actor.
// Intended for tests and single-node development setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	ordered []audit.Event
	byActor map[id.AccountID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byActor: make(map[id.AccountID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = nil
	s.byActor = make(map[id.AccountID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = append(s.ordered, event)
	s.byActor[event.Actor] = append(s.byActor[event.Actor], event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.byActor[actor]...), nil
}

// ListAll returns all audit events in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.ordered...), nil
}

// ListRecent returns the most recent N events in append order.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit >= len(s.ordered) {
		return append([]audit.Event{}, s.ordered...), nil
	}
	return append([]audit.Event{}, s.ordered[len(s.ordered)-limit:]...), nil
}
