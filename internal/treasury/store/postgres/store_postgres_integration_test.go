//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verigrant/internal/treasury/models"
	"verigrant/internal/treasury/store/postgres"
	id "verigrant/pkg/domain"
	"verigrant/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store

	admin id.AccountID
	pool  id.PoolID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Close(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"treasury_state", "investment_positions", "grant_allocations", "yield_records")
	s.Require().NoError(err)
	s.admin = id.AccountID(uuid.New())
	s.pool = id.PoolID(uuid.New())
}

func (s *PostgresStoreSuite) seed(ctx context.Context) {
	err := s.store.Update(ctx, func(state *models.State) error {
		state.Config = &models.TreasuryConfig{
			Admin:                s.admin,
			Pool:                 s.pool,
			MinLiquidityRatioBps: 2000,
			AutoInvestThreshold:  1000,
			YieldClaimFrequency:  24 * time.Hour,
		}
		state.Balances = models.Balances{Total: 3000, Invested: 1000, Available: 2000}
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestUpdateCommitsOnSuccess() {
	ctx := context.Background()
	s.seed(ctx)

	cfg, err := s.store.Config(ctx)
	s.Require().NoError(err)
	s.Require().NotNil(cfg)
	s.Equal(s.admin, cfg.Admin)
	s.Equal(s.pool, cfg.Pool)
	s.Equal(uint32(2000), cfg.MinLiquidityRatioBps)
	s.Equal(24*time.Hour, cfg.YieldClaimFrequency)

	balances, err := s.store.Balances(ctx)
	s.Require().NoError(err)
	s.Equal(models.Balances{Total: 3000, Invested: 1000, Available: 2000}, balances)
}

func (s *PostgresStoreSuite) TestUpdateRollsBackOnError() {
	ctx := context.Background()
	s.seed(ctx)

	err := s.store.Update(ctx, func(state *models.State) error {
		state.Balances.Total = 99999
		state.Positions = append(state.Positions, models.InvestmentPosition{
			Principal: 500, Pool: s.pool,
			OpenedAt: time.Now().UTC(), LastYieldSettledAt: time.Now().UTC(),
		})
		return models.ErrInvalidAmount
	})
	s.ErrorIs(err, models.ErrInvalidAmount)

	balances, err := s.store.Balances(ctx)
	s.Require().NoError(err)
	s.Equal(int64(3000), balances.Total)

	positions, err := s.store.Positions(ctx)
	s.Require().NoError(err)
	s.Empty(positions)
}

func (s *PostgresStoreSuite) TestPositionsRoundTrip() {
	ctx := context.Background()
	s.seed(ctx)

	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.store.Update(ctx, func(state *models.State) error {
		state.Positions = append(state.Positions,
			models.InvestmentPosition{Principal: 700, Pool: s.pool, OpenedAt: openedAt, LastYieldSettledAt: openedAt},
			models.InvestmentPosition{Principal: 300, Pool: s.pool, OpenedAt: openedAt, LastYieldSettledAt: openedAt, AccumulatedYield: 12},
		)
		return nil
	})
	s.Require().NoError(err)

	positions, err := s.store.Positions(ctx)
	s.Require().NoError(err)
	s.Require().Len(positions, 2)
	s.Equal(int64(700), positions[0].Principal)
	s.Equal(int64(300), positions[1].Principal)
	s.Equal(int64(12), positions[1].AccumulatedYield)
	s.True(positions[0].OpenedAt.Equal(openedAt))

	// Removing the first position shifts the second to index zero.
	err = s.store.Update(ctx, func(state *models.State) error {
		state.Positions = state.Positions[1:]
		return nil
	})
	s.Require().NoError(err)

	positions, err = s.store.Positions(ctx)
	s.Require().NoError(err)
	s.Require().Len(positions, 1)
	s.Equal(int64(300), positions[0].Principal)
}

func (s *PostgresStoreSuite) TestAllocationsAndYieldRoundTrip() {
	ctx := context.Background()
	s.seed(ctx)

	grantee := id.AccountID(uuid.New())
	claimedAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	err := s.store.Update(ctx, func(state *models.State) error {
		state.Allocations = append(state.Allocations, models.GrantAllocation{
			Grantee: grantee, Amount: 400, AllocatedAt: claimedAt,
			Status: models.AllocationStatusApproved,
		})
		state.YieldHistory = append(state.YieldHistory, models.YieldRecord{
			Amount: 50, ClaimedAt: claimedAt, Pool: s.pool, APYBps: 500,
		})
		state.LastYieldClaimAt = claimedAt
		state.YieldClaimCount = 1
		return nil
	})
	s.Require().NoError(err)

	allocations, err := s.store.Allocations(ctx)
	s.Require().NoError(err)
	s.Require().Len(allocations, 1)
	s.Equal(grantee, allocations[0].Grantee)
	s.Equal(models.AllocationStatusApproved, allocations[0].Status)

	history, err := s.store.YieldHistory(ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(int64(50), history[0].Amount)
	s.Equal(uint32(500), history[0].APYBps)

	last, count, err := s.store.ClaimStats(ctx)
	s.Require().NoError(err)
	s.True(last.Equal(claimedAt))
	s.Equal(uint64(1), count)
}

func (s *PostgresStoreSuite) TestUninitializedReads() {
	ctx := context.Background()

	cfg, err := s.store.Config(ctx)
	s.Require().NoError(err)
	s.Nil(cfg)

	balances, err := s.store.Balances(ctx)
	s.Require().NoError(err)
	s.Equal(models.Balances{}, balances)

	last, count, err := s.store.ClaimStats(ctx)
	s.Require().NoError(err)
	s.True(last.IsZero())
	s.Zero(count)
}
