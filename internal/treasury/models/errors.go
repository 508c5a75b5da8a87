package models

import "errors"

// Treasury error taxonomy. Every failure is terminal for the call: no partial
// state commits, and no error is retried by the engine itself. Services wrap
// these with pkg/domain-errors codes; callers match with errors.Is.
var (
	// ErrAlreadyInitialized: Initialize was called on an initialized treasury.
	ErrAlreadyInitialized = errors.New("treasury already initialized")
	// ErrNotInitialized: an operation ran before Initialize.
	ErrNotInitialized = errors.New("treasury not initialized")
	// ErrUnauthorized: caller identity does not match what the operation requires.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrInvalidAmount: a monetary argument was zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance: requested amount exceeds Available.
	ErrInsufficientBalance = errors.New("insufficient available balance")
	// ErrLiquidityBreach: a voluntary investment would drop Available below
	// the configured minimum ratio.
	ErrLiquidityBreach = errors.New("investment would breach minimum liquidity")
	// ErrLiquidityUnavailable: draining every position still could not raise
	// the needed cash.
	ErrLiquidityUnavailable = errors.New("liquidity unavailable after draining positions")
	// ErrInvalidIndex: position index references no open position.
	ErrInvalidIndex = errors.New("invalid position index")
	// ErrInvalidAllocationID: allocation ID references no allocation.
	ErrInvalidAllocationID = errors.New("invalid allocation id")
	// ErrInvalidState: operation not valid for the entity's current status.
	ErrInvalidState = errors.New("operation invalid for current status")
	// ErrExceedsPrincipal: divest amount exceeds the position's principal.
	ErrExceedsPrincipal = errors.New("amount exceeds position principal")
)
