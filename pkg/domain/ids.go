// Package domain holds typed identifiers shared across the service.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-assignment (an AccountID can never be passed where a PoolID is
// expected). Construct them via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "verigrant/pkg/domain-errors"
)

// AccountID identifies a platform participant: the treasury admin, a
// depositor, or a grantee.
type AccountID uuid.UUID

// PoolID identifies an external investment pool.
type PoolID uuid.UUID

// AllocationID addresses a grant allocation by its position in the ordered
// allocation list. The hosting ledger hands out dense indices, so this is a
// plain integer rather than a UUID.
type AllocationID int

// PositionIndex addresses an investment position by its position in the
// ordered position list. Indices shift when a fully divested position is
// removed; callers must re-fetch after removal.
type PositionIndex int

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be the nil UUID")
	}
	return u, nil
}

// ParseAccountID constructs an AccountID from external input.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParsePoolID constructs a PoolID from external input.
func ParsePoolID(s string) (PoolID, error) {
	u, err := parseUUID(s, "pool id")
	if err != nil {
		return PoolID{}, err
	}
	return PoolID(u), nil
}

func (a AccountID) IsNil() bool  { return uuid.UUID(a) == uuid.Nil }
func (a AccountID) String() string { return uuid.UUID(a).String() }

func (p PoolID) IsNil() bool  { return uuid.UUID(p) == uuid.Nil }
func (p PoolID) String() string { return uuid.UUID(p).String() }
