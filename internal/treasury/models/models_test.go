package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
)

func TestNewTreasuryConfig(t *testing.T) {
	admin := id.AccountID(uuid.New())
	pool := id.PoolID(uuid.New())

	t.Run("valid config", func(t *testing.T) {
		cfg, err := NewTreasuryConfig(admin, pool, 2000, 1000, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, admin, cfg.Admin)
		assert.Equal(t, uint32(2000), cfg.MinLiquidityRatioBps)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		cases := []struct {
			name string
			fn   func() (*TreasuryConfig, error)
		}{
			{"nil admin", func() (*TreasuryConfig, error) {
				return NewTreasuryConfig(id.AccountID{}, pool, 2000, 1000, time.Hour)
			}},
			{"nil pool", func() (*TreasuryConfig, error) {
				return NewTreasuryConfig(admin, id.PoolID{}, 2000, 1000, time.Hour)
			}},
			{"ratio above 10000 bps", func() (*TreasuryConfig, error) {
				return NewTreasuryConfig(admin, pool, 10001, 1000, time.Hour)
			}},
			{"negative threshold", func() (*TreasuryConfig, error) {
				return NewTreasuryConfig(admin, pool, 2000, -1, time.Hour)
			}},
			{"negative frequency", func() (*TreasuryConfig, error) {
				return NewTreasuryConfig(admin, pool, 2000, 1000, -time.Hour)
			}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := tc.fn()
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	})
}

func TestBalancesConsistent(t *testing.T) {
	assert.True(t, Balances{}.Consistent())
	assert.True(t, Balances{Total: 3000, Invested: 1000, Available: 2000}.Consistent())
	assert.False(t, Balances{Total: 3000, Invested: 1000, Available: 1000}.Consistent())
	assert.False(t, Balances{Total: -1, Invested: -2, Available: 1}.Consistent())
}

func TestAllocationStatusTransitions(t *testing.T) {
	assert.True(t, AllocationStatusPending.CanTransitionTo(AllocationStatusApproved))
	assert.True(t, AllocationStatusApproved.CanTransitionTo(AllocationStatusDisbursed))
	assert.True(t, AllocationStatusApproved.CanTransitionTo(AllocationStatusExpired))

	assert.False(t, AllocationStatusPending.CanTransitionTo(AllocationStatusDisbursed))
	assert.False(t, AllocationStatusDisbursed.CanTransitionTo(AllocationStatusApproved))
	assert.False(t, AllocationStatusExpired.CanTransitionTo(AllocationStatusDisbursed))

	assert.True(t, AllocationStatusDisbursed.IsTerminal())
	assert.True(t, AllocationStatusExpired.IsTerminal())
	assert.False(t, AllocationStatusApproved.IsTerminal())

	assert.False(t, AllocationStatus("bogus").IsValid())
}

func TestAllocationDisburse(t *testing.T) {
	allocation := GrantAllocation{
		Grantee: id.AccountID(uuid.New()),
		Amount:  100,
		Status:  AllocationStatusApproved,
	}

	require.NoError(t, allocation.Disburse())
	assert.Equal(t, AllocationStatusDisbursed, allocation.Status)

	err := allocation.Disburse()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStateClone(t *testing.T) {
	admin := id.AccountID(uuid.New())
	pool := id.PoolID(uuid.New())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	original := &State{
		Config: &TreasuryConfig{Admin: admin, Pool: pool, MinLiquidityRatioBps: 2000},
		Balances: Balances{
			Total: 3000, Invested: 1000, Available: 2000,
		},
		Positions: []InvestmentPosition{
			{Principal: 1000, Pool: pool, OpenedAt: now, LastYieldSettledAt: now},
		},
		Allocations: []GrantAllocation{
			{Grantee: admin, Amount: 200, AllocatedAt: now, Status: AllocationStatusApproved},
		},
		YieldHistory: []YieldRecord{
			{Amount: 50, ClaimedAt: now, Pool: pool, APYBps: 500},
		},
	}

	clone := original.Clone()

	// Mutating the clone must not touch the original.
	clone.Config.MinLiquidityRatioBps = 9999
	clone.Balances.Total = 0
	clone.Positions[0].Principal = 1
	clone.Allocations[0].Status = AllocationStatusDisbursed
	clone.YieldHistory[0].Amount = 1

	assert.Equal(t, uint32(2000), original.Config.MinLiquidityRatioBps)
	assert.Equal(t, int64(3000), original.Balances.Total)
	assert.Equal(t, int64(1000), original.Positions[0].Principal)
	assert.Equal(t, AllocationStatusApproved, original.Allocations[0].Status)
	assert.Equal(t, int64(50), original.YieldHistory[0].Amount)
}

func TestStateInitialized(t *testing.T) {
	assert.False(t, (&State{}).Initialized())
	assert.True(t, (&State{Config: &TreasuryConfig{}}).Initialized())
}
