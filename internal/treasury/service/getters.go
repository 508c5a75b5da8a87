package service

import (
	"context"
	"time"

	"verigrant/internal/treasury/models"
	"verigrant/internal/treasury/yield"
	dErrors "verigrant/pkg/domain-errors"
)

// Read-only views. Getters load only the state they report on, and calling
// one twice with no intervening mutation returns identical results.

func (s *Service) GetTotalBalance(ctx context.Context) (int64, error) {
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balances")
	}
	return balances.Total, nil
}

func (s *Service) GetAvailableBalance(ctx context.Context) (int64, error) {
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balances")
	}
	return balances.Available, nil
}

func (s *Service) GetInvestedBalance(ctx context.Context) (int64, error) {
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balances")
	}
	return balances.Invested, nil
}

func (s *Service) GetBalances(ctx context.Context) (models.Balances, error) {
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return models.Balances{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balances")
	}
	return balances, nil
}

func (s *Service) GetInvestmentPositions(ctx context.Context) ([]models.InvestmentPosition, error) {
	positions, err := s.store.Positions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read positions")
	}
	return positions, nil
}

func (s *Service) GetGrantAllocations(ctx context.Context) ([]models.GrantAllocation, error) {
	allocations, err := s.store.Allocations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allocations")
	}
	return allocations, nil
}

func (s *Service) GetYieldHistory(ctx context.Context) ([]models.YieldRecord, error) {
	history, err := s.store.YieldHistory(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read yield history")
	}
	return history, nil
}

// GetTreasuryConfig returns the singleton config, or NotInitialized before
// Initialize has run.
func (s *Service) GetTreasuryConfig(ctx context.Context) (*models.TreasuryConfig, error) {
	cfg, err := s.store.Config(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read config")
	}
	if cfg == nil {
		return nil, wrapDomain(models.ErrNotInitialized, "treasury config unavailable")
	}
	return cfg, nil
}

// GetAccumulatedYield sums realized yield still attached to open positions.
func (s *Service) GetAccumulatedYield(ctx context.Context) (int64, error) {
	positions, err := s.store.Positions(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read positions")
	}
	var total int64
	for _, pos := range positions {
		total += pos.AccumulatedYield
	}
	return total, nil
}

// GetAPY returns the fixed annual rate in basis points.
func (s *Service) GetAPY() uint32 {
	return yield.APYBasisPoints
}

// ShouldAutoInvest reports whether the next deposit would trigger
// auto-investment at current balances.
func (s *Service) ShouldAutoInvest(ctx context.Context) (bool, error) {
	cfg, err := s.GetTreasuryConfig(ctx)
	if err != nil {
		return false, err
	}
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balances")
	}
	return balances.Available >= cfg.AutoInvestThreshold, nil
}

// GetClaimStats exposes the yield-claim bookkeeping counters.
func (s *Service) GetClaimStats(ctx context.Context) (time.Time, uint64, error) {
	last, count, err := s.store.ClaimStats(ctx)
	if err != nil {
		return time.Time{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read claim stats")
	}
	return last, count, nil
}
