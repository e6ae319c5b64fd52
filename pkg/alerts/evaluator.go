package alerts

import (
	"github.com/finmate-app/finmate/pkg/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate maps a budget's spend to an alert level. A zero (or negative)
// budget amount always evaluates to none rather than erroring; a zero-amount
// budget cannot be judged meaningfully. Negative spend is clamped to zero.
//
// Crossing the configured threshold yields warning; crossing 100% yields
// exceeded. The critical level exists in the schema but is never produced
// here.
func Evaluate(spent, amount decimal.Decimal, thresholdPct float64) model.AlertLevel {
	if amount.Sign() <= 0 {
		return model.LevelNone
	}
	if spent.Sign() < 0 {
		spent = decimal.Zero
	}

	pct := spent.Div(amount).Mul(hundred)
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return model.LevelExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromFloat(thresholdPct)):
		return model.LevelWarning
	default:
		return model.LevelNone
	}
}

// PercentUsed returns spent/amount as a percentage, with the same clamping
// rules as Evaluate. Zero-amount budgets report 0.
func PercentUsed(spent, amount decimal.Decimal) float64 {
	if amount.Sign() <= 0 {
		return 0
	}
	if spent.Sign() < 0 {
		spent = decimal.Zero
	}
	pct, _ := spent.Div(amount).Mul(hundred).Float64()
	return pct
}
