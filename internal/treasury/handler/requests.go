package handler

import (
	"time"

	"verigrant/internal/treasury/models"
	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
)

// InitializeRequest configures the singleton treasury.
type InitializeRequest struct {
	Admin                      string `json:"admin"`
	Pool                       string `json:"pool"`
	MinLiquidityRatioBps       uint32 `json:"min_liquidity_ratio_bps"`
	AutoInvestThreshold        int64  `json:"auto_invest_threshold"`
	YieldClaimFrequencySeconds int64  `json:"yield_claim_frequency_seconds"`
}

// Config translates the wire request into a validated domain config.
func (r InitializeRequest) Config() (*models.TreasuryConfig, error) {
	admin, err := id.ParseAccountID(r.Admin)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid admin account id")
	}
	pool, err := id.ParsePoolID(r.Pool)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid pool id")
	}
	return models.NewTreasuryConfig(admin, pool,
		r.MinLiquidityRatioBps, r.AutoInvestThreshold,
		time.Duration(r.YieldClaimFrequencySeconds)*time.Second)
}

// AmountRequest is the body shared by deposit and invest.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// DivestRequest withdraws from one position.
type DivestRequest struct {
	Amount        int64 `json:"amount"`
	PositionIndex int   `json:"position_index"`
}

// AllocateGrantRequest earmarks funds for a grantee.
type AllocateGrantRequest struct {
	Grantee string `json:"grantee"`
	Amount  int64  `json:"amount"`
}

// AllocateGrantResponse returns the new allocation's identifier.
type AllocateGrantResponse struct {
	AllocationID int `json:"allocation_id"`
}

// ClaimYieldResponse reports the amount settled by a claim sweep.
type ClaimYieldResponse struct {
	Claimed int64 `json:"claimed"`
}

// BalancesResponse is the treasury's counter snapshot.
type BalancesResponse struct {
	Total     int64 `json:"total"`
	Invested  int64 `json:"invested"`
	Available int64 `json:"available"`
}

// ConfigResponse mirrors the initialize request for reads.
type ConfigResponse struct {
	Admin                      string `json:"admin"`
	Pool                       string `json:"pool"`
	MinLiquidityRatioBps       uint32 `json:"min_liquidity_ratio_bps"`
	AutoInvestThreshold        int64  `json:"auto_invest_threshold"`
	YieldClaimFrequencySeconds int64  `json:"yield_claim_frequency_seconds"`
	APYBps                     uint32 `json:"apy_bps"`
}

// PositionResponse is one open investment position.
type PositionResponse struct {
	Index              int       `json:"index"`
	Principal          int64     `json:"principal"`
	Pool               string    `json:"pool"`
	OpenedAt           time.Time `json:"opened_at"`
	LastYieldSettledAt time.Time `json:"last_yield_settled_at"`
	AccumulatedYield   int64     `json:"accumulated_yield"`
}

// AllocationResponse is one grant allocation.
type AllocationResponse struct {
	AllocationID int       `json:"allocation_id"`
	Grantee      string    `json:"grantee"`
	Amount       int64     `json:"amount"`
	AllocatedAt  time.Time `json:"allocated_at"`
	Status       string    `json:"status"`
}

// YieldRecordResponse is one settled yield claim entry.
type YieldRecordResponse struct {
	Amount    int64     `json:"amount"`
	ClaimedAt time.Time `json:"claimed_at"`
	Pool      string    `json:"pool"`
	APYBps    uint32    `json:"apy_bps"`
}

// StatsResponse summarizes yield claim bookkeeping.
type StatsResponse struct {
	AccumulatedYield int64      `json:"accumulated_yield"`
	LastYieldClaimAt *time.Time `json:"last_yield_claim_at,omitempty"`
	YieldClaimCount  uint64     `json:"yield_claim_count"`
	APYBps           uint32     `json:"apy_bps"`
}
