// Package yield computes simple (non-compounding) yield on investment
// positions. Settlement here only computes; crediting the result into
// positions, balances, and history is the caller's responsibility, which
// keeps the calculation side-effect free and independently testable.
package yield

import (
	"time"

	"github.com/shopspring/decimal"

	"verigrant/internal/treasury/models"
)

// APYBasisPoints is the fixed annual rate applied to all positions.
const APYBasisPoints uint32 = 500

// SecondsPerYear uses a 365-day year, matching the upstream pool contract.
const SecondsPerYear int64 = 365 * 24 * 60 * 60

var divisor = decimal.NewFromInt(SecondsPerYear).Mul(decimal.NewFromInt(10000))

// Settle returns the yield owed on a position from its last settlement up to
// now:
//
//	yield = principal * rate_bps * elapsed / (seconds_per_year * 10000)
//
// rounded down to a whole base unit. The residual lost to repeated floor
// rounding is an accepted approximation. Elapsed time is measured in whole
// seconds; a non-positive elapsed yields zero. The intermediate product
// overflows int64 for large principals, so the arithmetic runs in decimal
// with an exact integer division (QuoRem at precision zero truncates toward
// zero, which equals floor for these non-negative operands).
func Settle(position models.InvestmentPosition, now time.Time) int64 {
	elapsed := now.Unix() - position.LastYieldSettledAt.Unix()
	if elapsed <= 0 || position.Principal <= 0 {
		return 0
	}

	numerator := decimal.NewFromInt(position.Principal).
		Mul(decimal.NewFromInt(int64(APYBasisPoints))).
		Mul(decimal.NewFromInt(elapsed))
	quotient, _ := numerator.QuoRem(divisor, 0)
	return quotient.IntPart()
}

// MinimumLiquidity returns total * ratioBps / 10000 rounded down, the floor
// Available must not cross on a voluntary investment. Computed in decimal
// for the same overflow reason as Settle.
func MinimumLiquidity(total int64, ratioBps uint32) int64 {
	if total <= 0 || ratioBps == 0 {
		return 0
	}
	numerator := decimal.NewFromInt(total).Mul(decimal.NewFromInt(int64(ratioBps)))
	quotient, _ := numerator.QuoRem(decimal.NewFromInt(10000), 0)
	return quotient.IntPart()
}
