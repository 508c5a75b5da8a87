package service

import (
	"time"

	"verigrant/internal/treasury/models"
	"verigrant/internal/treasury/yield"
)

// applyInvest validates and applies a voluntary investment against the
// state copy. Shared by Invest and the deposit auto-invest leg; admin and
// initialization checks belong to the callers.
func applyInvest(state *models.State, amount int64, now time.Time) error {
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	if amount > state.Balances.Available {
		return models.ErrInsufficientBalance
	}
	minLiquidity := yield.MinimumLiquidity(state.Balances.Total, state.Config.MinLiquidityRatioBps)
	if state.Balances.Available-amount < minLiquidity {
		return models.ErrLiquidityBreach
	}

	state.Positions = append(state.Positions, models.InvestmentPosition{
		Principal:          amount,
		Pool:               state.Config.Pool,
		OpenedAt:           now,
		LastYieldSettledAt: now,
	})
	state.Balances.Invested += amount
	state.Balances.Available -= amount
	return nil
}

// raiseResult reports what a liquidity-enforcement walk actually freed.
type raiseResult struct {
	// Raised is principal moved out of positions, never more than needed.
	Raised int64
	// Yield is settlement realized on every touched position. It is credited
	// in full even when the principal portion only partially covers the need.
	Yield int64
}

// ensureLiquidity drains open positions, in store order, until needed
// principal has been raised. It mutates the transaction's state copy only;
// when the drain comes up short it returns LiquidityUnavailable and the
// enclosing update aborts, rolling back every position it touched.
//
// On success the freed principal plus all settled yield is credited to
// Available, with Invested debited by exactly what was raised and Total
// grown by exactly the realized yield. Crediting what was actually raised,
// never the requested figure, is what keeps phantom liquidity out of the
// ledger.
func ensureLiquidity(state *models.State, needed int64, now time.Time) (raiseResult, error) {
	var result raiseResult
	if needed <= 0 {
		return result, nil
	}

	kept := state.Positions[:0]
	remaining := needed
	for i := range state.Positions {
		pos := state.Positions[i]
		if remaining > 0 {
			settled := yield.Settle(pos, now)
			pos.AccumulatedYield += settled
			pos.LastYieldSettledAt = now
			result.Yield += settled

			raise := pos.Principal
			if raise > remaining {
				raise = remaining
			}
			pos.Principal -= raise
			remaining -= raise
			result.Raised += raise
		}
		if pos.Principal > 0 {
			kept = append(kept, pos)
		}
	}
	state.Positions = kept

	if remaining > 0 {
		return raiseResult{}, models.ErrLiquidityUnavailable
	}

	state.Balances.Invested -= result.Raised
	state.Balances.Available += result.Raised + result.Yield
	state.Balances.Total += result.Yield
	return result, nil
}
