// Package postgres persists the treasury ledger in PostgreSQL.
//
// The whole aggregate is rewritten inside a single serializable transaction
// per mutation. The treasury is a singleton with a handful of positions and
// allocations, so the rewrite is cheap and buys the same all-or-nothing
// semantics the in-memory store gets from its snapshot swap.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"verigrant/internal/treasury/models"
	id "verigrant/pkg/domain"
)

//go:embed schema.sql
var schema string

// Store is a PostgreSQL-backed treasury state store.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed treasury store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the treasury tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure treasury schema: %w", err)
	}
	return nil
}

// Update runs fn against the current state inside a serializable transaction
// and writes the mutated aggregate back only when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(state *models.State) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin treasury update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	state, err := loadState(ctx, tx, true)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	if err := persistState(ctx, tx, state); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit treasury update: %w", err)
	}
	return nil
}

func (s *Store) Config(ctx context.Context) (*models.TreasuryConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT admin_account, pool_id, min_liquidity_ratio_bps,
		       auto_invest_threshold, yield_claim_frequency_seconds
		FROM treasury_state
	`)
	var (
		admin, pool  uuid.UUID
		ratioBps     int32
		threshold    int64
		freqSeconds  int64
	)
	err := row.Scan(&admin, &pool, &ratioBps, &threshold, &freqSeconds)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load treasury config: %w", err)
	}
	return &models.TreasuryConfig{
		Admin:                id.AccountID(admin),
		Pool:                 id.PoolID(pool),
		MinLiquidityRatioBps: uint32(ratioBps),
		AutoInvestThreshold:  threshold,
		YieldClaimFrequency:  time.Duration(freqSeconds) * time.Second,
	}, nil
}

func (s *Store) Balances(ctx context.Context) (models.Balances, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT total_balance, invested_balance, available_balance FROM treasury_state
	`)
	var balances models.Balances
	err := row.Scan(&balances.Total, &balances.Invested, &balances.Available)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Balances{}, nil
		}
		return models.Balances{}, fmt.Errorf("load treasury balances: %w", err)
	}
	return balances, nil
}

func (s *Store) Positions(ctx context.Context) ([]models.InvestmentPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, pool_id, opened_at, last_yield_settled_at, accumulated_yield
		FROM investment_positions
		ORDER BY position_index
	`)
	if err != nil {
		return nil, fmt.Errorf("load investment positions: %w", err)
	}
	defer rows.Close()

	var positions []models.InvestmentPosition
	for rows.Next() {
		var (
			position models.InvestmentPosition
			pool     uuid.UUID
		)
		if err := rows.Scan(&position.Principal, &pool, &position.OpenedAt,
			&position.LastYieldSettledAt, &position.AccumulatedYield); err != nil {
			return nil, fmt.Errorf("scan investment position: %w", err)
		}
		position.Pool = id.PoolID(pool)
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

func (s *Store) Allocations(ctx context.Context) ([]models.GrantAllocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT grantee, amount, allocated_at, status
		FROM grant_allocations
		ORDER BY allocation_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load grant allocations: %w", err)
	}
	defer rows.Close()

	var allocations []models.GrantAllocation
	for rows.Next() {
		var (
			allocation models.GrantAllocation
			grantee    uuid.UUID
			status     string
		)
		if err := rows.Scan(&grantee, &allocation.Amount, &allocation.AllocatedAt, &status); err != nil {
			return nil, fmt.Errorf("scan grant allocation: %w", err)
		}
		allocation.Grantee = id.AccountID(grantee)
		allocation.Status = models.AllocationStatus(status)
		allocations = append(allocations, allocation)
	}
	return allocations, rows.Err()
}

func (s *Store) YieldHistory(ctx context.Context) ([]models.YieldRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT amount, claimed_at, pool_id, apy_bps
		FROM yield_records
		ORDER BY record_seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load yield history: %w", err)
	}
	defer rows.Close()

	var records []models.YieldRecord
	for rows.Next() {
		var (
			record models.YieldRecord
			pool   uuid.UUID
			apyBps int32
		)
		if err := rows.Scan(&record.Amount, &record.ClaimedAt, &pool, &apyBps); err != nil {
			return nil, fmt.Errorf("scan yield record: %w", err)
		}
		record.Pool = id.PoolID(pool)
		record.APYBps = uint32(apyBps)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) ClaimStats(ctx context.Context) (time.Time, uint64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_yield_claim_at, yield_claim_count FROM treasury_state
	`)
	var (
		last  sql.NullTime
		count int64
	)
	err := row.Scan(&last, &count)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, 0, nil
		}
		return time.Time{}, 0, fmt.Errorf("load claim stats: %w", err)
	}
	return last.Time, uint64(count), nil
}

func loadState(ctx context.Context, tx *sql.Tx, forUpdate bool) (*models.State, error) {
	state := &models.State{}

	query := `
		SELECT admin_account, pool_id, min_liquidity_ratio_bps,
		       auto_invest_threshold, yield_claim_frequency_seconds,
		       total_balance, invested_balance, available_balance,
		       last_yield_claim_at, yield_claim_count
		FROM treasury_state
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var (
		admin, pool uuid.UUID
		ratioBps    int32
		threshold   int64
		freqSeconds int64
		last        sql.NullTime
		count       int64
	)
	err := tx.QueryRowContext(ctx, query).Scan(
		&admin, &pool, &ratioBps, &threshold, &freqSeconds,
		&state.Balances.Total, &state.Balances.Invested, &state.Balances.Available,
		&last, &count,
	)
	switch {
	case err == sql.ErrNoRows:
		// Uninitialized treasury.
		return state, nil
	case err != nil:
		return nil, fmt.Errorf("load treasury state: %w", err)
	}
	state.Config = &models.TreasuryConfig{
		Admin:                id.AccountID(admin),
		Pool:                 id.PoolID(pool),
		MinLiquidityRatioBps: uint32(ratioBps),
		AutoInvestThreshold:  threshold,
		YieldClaimFrequency:  time.Duration(freqSeconds) * time.Second,
	}
	state.LastYieldClaimAt = last.Time
	state.YieldClaimCount = uint64(count)

	rows, err := tx.QueryContext(ctx, `
		SELECT principal, pool_id, opened_at, last_yield_settled_at, accumulated_yield
		FROM investment_positions ORDER BY position_index
	`)
	if err != nil {
		return nil, fmt.Errorf("load investment positions: %w", err)
	}
	for rows.Next() {
		var (
			position models.InvestmentPosition
			poolID   uuid.UUID
		)
		if err := rows.Scan(&position.Principal, &poolID, &position.OpenedAt,
			&position.LastYieldSettledAt, &position.AccumulatedYield); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan investment position: %w", err)
		}
		position.Pool = id.PoolID(poolID)
		state.Positions = append(state.Positions, position)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT grantee, amount, allocated_at, status
		FROM grant_allocations ORDER BY allocation_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load grant allocations: %w", err)
	}
	for rows.Next() {
		var (
			allocation models.GrantAllocation
			grantee    uuid.UUID
			status     string
		)
		if err := rows.Scan(&grantee, &allocation.Amount, &allocation.AllocatedAt, &status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan grant allocation: %w", err)
		}
		allocation.Grantee = id.AccountID(grantee)
		allocation.Status = models.AllocationStatus(status)
		state.Allocations = append(state.Allocations, allocation)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT amount, claimed_at, pool_id, apy_bps
		FROM yield_records ORDER BY record_seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load yield history: %w", err)
	}
	for rows.Next() {
		var (
			record models.YieldRecord
			poolID uuid.UUID
			apyBps int32
		)
		if err := rows.Scan(&record.Amount, &record.ClaimedAt, &poolID, &apyBps); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan yield record: %w", err)
		}
		record.Pool = id.PoolID(poolID)
		record.APYBps = uint32(apyBps)
		state.YieldHistory = append(state.YieldHistory, record)
	}
	rows.Close()
	return state, rows.Err()
}

func persistState(ctx context.Context, tx *sql.Tx, state *models.State) error {
	if state.Config == nil {
		return nil
	}
	var last sql.NullTime
	if !state.LastYieldClaimAt.IsZero() {
		last = sql.NullTime{Time: state.LastYieldClaimAt, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO treasury_state (
			singleton, admin_account, pool_id, min_liquidity_ratio_bps,
			auto_invest_threshold, yield_claim_frequency_seconds,
			total_balance, invested_balance, available_balance,
			last_yield_claim_at, yield_claim_count, updated_at
		) VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (singleton) DO UPDATE SET
			total_balance = EXCLUDED.total_balance,
			invested_balance = EXCLUDED.invested_balance,
			available_balance = EXCLUDED.available_balance,
			last_yield_claim_at = EXCLUDED.last_yield_claim_at,
			yield_claim_count = EXCLUDED.yield_claim_count,
			updated_at = now()
	`,
		uuid.UUID(state.Config.Admin), uuid.UUID(state.Config.Pool),
		int32(state.Config.MinLiquidityRatioBps), state.Config.AutoInvestThreshold,
		int64(state.Config.YieldClaimFrequency/time.Second),
		state.Balances.Total, state.Balances.Invested, state.Balances.Available,
		last, int64(state.YieldClaimCount),
	)
	if err != nil {
		return fmt.Errorf("persist treasury state: %w", err)
	}

	// Positions shift indexes when the liquidity walk removes drained ones,
	// so the cheapest faithful write is a full rewrite of the table.
	if _, err := tx.ExecContext(ctx, `DELETE FROM investment_positions`); err != nil {
		return fmt.Errorf("clear investment positions: %w", err)
	}
	for index, position := range state.Positions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO investment_positions (
				position_index, principal, pool_id, opened_at,
				last_yield_settled_at, accumulated_yield
			) VALUES ($1, $2, $3, $4, $5, $6)
		`, index, position.Principal, uuid.UUID(position.Pool),
			position.OpenedAt, position.LastYieldSettledAt, position.AccumulatedYield)
		if err != nil {
			return fmt.Errorf("persist investment position %d: %w", index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grant_allocations`); err != nil {
		return fmt.Errorf("clear grant allocations: %w", err)
	}
	for allocationID, allocation := range state.Allocations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO grant_allocations (allocation_id, grantee, amount, allocated_at, status)
			VALUES ($1, $2, $3, $4, $5)
		`, allocationID, uuid.UUID(allocation.Grantee), allocation.Amount,
			allocation.AllocatedAt, string(allocation.Status))
		if err != nil {
			return fmt.Errorf("persist grant allocation %d: %w", allocationID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM yield_records`); err != nil {
		return fmt.Errorf("clear yield records: %w", err)
	}
	for seq, record := range state.YieldHistory {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO yield_records (record_seq, amount, claimed_at, pool_id, apy_bps)
			VALUES ($1, $2, $3, $4, $5)
		`, seq, record.Amount, record.ClaimedAt, uuid.UUID(record.Pool), int32(record.APYBps))
		if err != nil {
			return fmt.Errorf("persist yield record %d: %w", seq, err)
		}
	}
	return nil
}
