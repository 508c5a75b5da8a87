// Package models defines the treasury ledger's persisted entities.
//
// All monetary amounts are int64 counts of the platform's base unit. The
// ledger invariant Total == Invested + Available must hold after every
// completed operation; the service layer checks it before committing.
package models

import (
	"time"

	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
)

// TreasuryConfig is set once at initialization and immutable thereafter.
type TreasuryConfig struct {
	// Admin is the only identity allowed to invest, divest, allocate grants,
	// and claim yield.
	Admin id.AccountID `json:"admin"`
	// Pool is the external investment pool new positions are opened against.
	Pool id.PoolID `json:"pool"`
	// MinLiquidityRatioBps is the minimum fraction of Total that must remain
	// Available after any voluntary investment, in basis points out of 10000.
	MinLiquidityRatioBps uint32 `json:"min_liquidity_ratio_bps"`
	// AutoInvestThreshold triggers auto-investment when Available reaches it.
	AutoInvestThreshold int64 `json:"auto_invest_threshold"`
	// YieldClaimFrequency is the advisory cadence for claiming yield. It is
	// not enforced as a hard gate; the background worker uses it.
	YieldClaimFrequency time.Duration `json:"yield_claim_frequency"`
}

// NewTreasuryConfig validates and constructs the singleton config.
func NewTreasuryConfig(admin id.AccountID, pool id.PoolID, minLiquidityRatioBps uint32, autoInvestThreshold int64, yieldClaimFrequency time.Duration) (*TreasuryConfig, error) {
	if admin.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "admin is required")
	}
	if pool.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "investment pool is required")
	}
	if minLiquidityRatioBps > 10000 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "min liquidity ratio cannot exceed 10000 bps")
	}
	if autoInvestThreshold < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "auto-invest threshold cannot be negative")
	}
	if yieldClaimFrequency < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "yield claim frequency cannot be negative")
	}
	return &TreasuryConfig{
		Admin:                admin,
		Pool:                 pool,
		MinLiquidityRatioBps: minLiquidityRatioBps,
		AutoInvestThreshold:  autoInvestThreshold,
		YieldClaimFrequency:  yieldClaimFrequency,
	}, nil
}

// Balances are the three mutually derived treasury counters.
//
// Invariants:
//   - all three counters are non-negative
//   - Total == Invested + Available
type Balances struct {
	Total     int64 `json:"total"`
	Invested  int64 `json:"invested"`
	Available int64 `json:"available"`
}

// Consistent reports whether the balance invariants hold.
func (b Balances) Consistent() bool {
	return b.Total >= 0 && b.Invested >= 0 && b.Available >= 0 &&
		b.Total == b.Invested+b.Available
}

// InvestmentPosition is an open stake in the external pool. Owned exclusively
// by the treasury state; callers only ever see copies.
type InvestmentPosition struct {
	// Principal is the currently invested amount, excluding yield. Always
	// positive; a position whose principal reaches zero is removed.
	Principal int64 `json:"principal"`
	Pool      id.PoolID `json:"pool"`
	OpenedAt  time.Time `json:"opened_at"`
	// LastYieldSettledAt is the high-water mark for yield accrual.
	LastYieldSettledAt time.Time `json:"last_yield_settled_at"`
	// AccumulatedYield is yield already realized against this position.
	AccumulatedYield int64 `json:"accumulated_yield"`
}

// GrantAllocation earmarks funds for a grantee. Funds are debited from
// Available at allocation time; disbursement is a pure status transition.
type GrantAllocation struct {
	Grantee     id.AccountID     `json:"grantee"`
	Amount      int64            `json:"amount"`
	AllocatedAt time.Time        `json:"allocated_at"`
	Status      AllocationStatus `json:"status"`
}

// YieldRecord is an immutable append-only log entry. Its existence is the
// audit trail for Total growth from yield; records are never mutated or
// deleted after creation.
type YieldRecord struct {
	Amount    int64      `json:"amount"`
	ClaimedAt time.Time  `json:"claimed_at"`
	Pool      id.PoolID  `json:"pool"`
	// APYBps is the annual rate applied, in basis points.
	APYBps uint32 `json:"apy_bps"`
}

// State is the treasury aggregate: everything one atomic operation may read
// and write. The store hands the service a private copy; mutations only
// become visible when the enclosing update commits.
type State struct {
	// Config is nil until Initialize succeeds.
	Config           *TreasuryConfig
	Balances         Balances
	Positions        []InvestmentPosition
	Allocations      []GrantAllocation
	YieldHistory     []YieldRecord
	LastYieldClaimAt time.Time
	YieldClaimCount  uint64
}

// Initialized reports whether Initialize has run.
func (s *State) Initialized() bool { return s.Config != nil }

// Clone returns a deep copy. Slices are copied so mutations on the clone
// never alias the original.
func (s *State) Clone() *State {
	out := &State{
		Balances:         s.Balances,
		LastYieldClaimAt: s.LastYieldClaimAt,
		YieldClaimCount:  s.YieldClaimCount,
	}
	if s.Config != nil {
		cfg := *s.Config
		out.Config = &cfg
	}
	if s.Positions != nil {
		out.Positions = append([]InvestmentPosition{}, s.Positions...)
	}
	if s.Allocations != nil {
		out.Allocations = append([]GrantAllocation{}, s.Allocations...)
	}
	if s.YieldHistory != nil {
		out.YieldHistory = append([]YieldRecord{}, s.YieldHistory...)
	}
	return out
}
