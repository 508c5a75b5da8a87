// Package ports defines the treasury module's boundary interfaces.
// Interfaces live here when consumed by more than one package (service,
// worker, handler) to avoid duplication.
package ports

import (
	"context"
	"time"

	id "verigrant/pkg/domain"
	"verigrant/pkg/platform/audit"

	"verigrant/internal/treasury/models"
)

// Store persists the treasury aggregate.
//
// Update is the single mutation path: it runs fn against a private copy of
// the current state inside one atomic transaction and commits only when fn
// returns nil. A non-nil error discards every mutation fn made, which gives
// each engine operation its all-or-nothing retry safety.
//
// The read methods load only the slice of state they name so getters never
// deserialize unrelated entities.
type Store interface {
	Update(ctx context.Context, fn func(state *models.State) error) error

	Config(ctx context.Context) (*models.TreasuryConfig, error)
	Balances(ctx context.Context) (models.Balances, error)
	Positions(ctx context.Context) ([]models.InvestmentPosition, error)
	Allocations(ctx context.Context) ([]models.GrantAllocation, error)
	YieldHistory(ctx context.Context) ([]models.YieldRecord, error)
	ClaimStats(ctx context.Context) (lastClaimAt time.Time, claimCount uint64, err error)
}

// Clock is the ledger clock: non-decreasing across calls, seconds precision
// is all the engine relies on.
type Clock interface {
	Now() time.Time
}

// Authorizer is the caller-identity oracle. Verify returns nil only when the
// claimed account is the authenticated caller for this context. It runs
// before any state mutation so a rejected call leaves no trace.
type Authorizer interface {
	Verify(ctx context.Context, claimed id.AccountID) error
}

// AuditPublisher emits audit events for treasury mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
