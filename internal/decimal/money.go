package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// Cent is the smallest monetary unit handled by the engine (0.01)
var Cent = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Round2 rounds to 2 decimal places, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent computes amount * (rate/100) without rounding
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || amount.IsZero() {
		return Zero
	}
	return amount.Mul(rate).Div(hundred)
}

// PercentRounded computes amount * (rate/100) rounded to 2 places
func PercentRounded(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(Percent(amount, rate))
}

// WithinTolerance reports whether |a - b| <= tol
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// Format renders an amount with exactly 2 decimals ("1149.50")
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
