package service

import (
	"context"
	"errors"

	"verigrant/internal/treasury/models"
	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
	"verigrant/pkg/platform/audit"
)

// AllocateGrant reserves funds for a grantee. If the available pool is
// short, positions are drained first; when even a full drain cannot cover
// the amount the allocation fails with LiquidityUnavailable and nothing is
// committed. The debit happens here, at reservation time - withdrawal later
// is a pure status transition.
func (s *Service) AllocateGrant(ctx context.Context, caller, grantee id.AccountID, amount int64) (id.AllocationID, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.AllocateGrant")
	defer span.End()
	defer s.observe("allocate_grant", s.clock.Now())

	if err := s.requireAuth(ctx, caller); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var allocationID id.AllocationID
	var raised raiseResult
	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if caller != state.Config.Admin {
			return models.ErrUnauthorized
		}
		if grantee.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "grantee is required")
		}
		if amount <= 0 {
			return models.ErrInvalidAmount
		}

		raised = raiseResult{}
		if state.Balances.Available < amount {
			var err error
			raised, err = ensureLiquidity(state, amount-state.Balances.Available, now)
			if err != nil {
				return err
			}
		}

		state.Balances.Available -= amount
		state.Allocations = append(state.Allocations, models.GrantAllocation{
			Grantee:     grantee,
			Amount:      amount,
			AllocatedAt: now,
			Status:      models.AllocationStatusApproved,
		})
		allocationID = id.AllocationID(len(state.Allocations) - 1)
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		return 0, wrapDomain(err, "allocate grant failed")
	}

	if s.metrics != nil {
		s.metrics.GrantsAllocated.Inc()
		if raised.Raised > 0 {
			s.metrics.LiquidityRaises.Inc()
		}
		if raised.Yield > 0 {
			s.metrics.YieldUnits.Add(float64(raised.Yield))
		}
	}
	if raised.Raised > 0 {
		s.logger.InfoContext(ctx, "raised liquidity for grant",
			"raised", raised.Raised,
			"settled_yield", raised.Yield,
		)
		s.emit(ctx, audit.EventLiquidityRaised, audit.Event{Actor: caller, Amount: raised.Raised})
	}
	s.logger.InfoContext(ctx, "allocated grant",
		"grantee", grantee,
		"amount", amount,
		"allocation_id", int(allocationID),
	)
	s.emit(ctx, audit.EventGrantAllocated, audit.Event{Actor: caller, Grantee: grantee, Amount: amount})
	return allocationID, nil
}

// WithdrawGrant marks an approved allocation disbursed. The funds were
// earmarked when allocated, so no balance moves here; a second withdrawal
// of the same allocation fails with InvalidState.
func (s *Service) WithdrawGrant(ctx context.Context, grantee id.AccountID, allocationID id.AllocationID) error {
	ctx, span := s.tracer.Start(ctx, "treasury.WithdrawGrant")
	defer span.End()
	defer s.observe("withdraw_grant", s.clock.Now())

	if err := s.requireAuth(ctx, grantee); err != nil {
		return err
	}

	var amount int64
	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if allocationID < 0 || int(allocationID) >= len(state.Allocations) {
			return models.ErrInvalidAllocationID
		}
		allocation := &state.Allocations[allocationID]
		if allocation.Grantee != grantee {
			return models.ErrUnauthorized
		}
		if err := allocation.Disburse(); err != nil {
			return err
		}
		amount = allocation.Amount
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, models.ErrInvalidState) {
			return wrapDomain(err, "grant not available for withdrawal")
		}
		return wrapDomain(err, "withdraw grant failed")
	}

	if s.metrics != nil {
		s.metrics.GrantsDisbursed.Inc()
	}
	s.logger.InfoContext(ctx, "grant disbursed",
		"grantee", grantee,
		"allocation_id", int(allocationID),
		"amount", amount,
	)
	s.emit(ctx, audit.EventGrantDisbursed, audit.Event{Actor: grantee, Grantee: grantee, Amount: amount})
	return nil
}
