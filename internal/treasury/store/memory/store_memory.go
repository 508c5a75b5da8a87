// Package memory is the in-process treasury store. It backs unit tests and
// single-node development; production uses the postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"verigrant/internal/treasury/models"
)

// Store keeps the treasury aggregate under a single mutex. Update runs the
// mutation against a deep copy and swaps it in only on success, so a failed
// operation can never leave partial writes behind.
type Store struct {
	mu    sync.RWMutex
	state *models.State
}

func New() *Store {
	return &Store{state: &models.State{}}
}

func (s *Store) Update(_ context.Context, fn func(state *models.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) Config(_ context.Context) (*models.TreasuryConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Config == nil {
		return nil, nil
	}
	cfg := *s.state.Config
	return &cfg, nil
}

func (s *Store) Balances(_ context.Context) (models.Balances, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Balances, nil
}

func (s *Store) Positions(_ context.Context) ([]models.InvestmentPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.InvestmentPosition{}, s.state.Positions...), nil
}

func (s *Store) Allocations(_ context.Context) ([]models.GrantAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.GrantAllocation{}, s.state.Allocations...), nil
}

func (s *Store) YieldHistory(_ context.Context) ([]models.YieldRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.YieldRecord{}, s.state.YieldHistory...), nil
}

func (s *Store) ClaimStats(_ context.Context) (time.Time, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastYieldClaimAt, s.state.YieldClaimCount, nil
}
