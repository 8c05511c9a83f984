// Package money holds the decimal helpers shared by cart pricing.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits kept for monetary amounts.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Discount applies a percent-off discount to amount. The percentage is clamped
// to [0, 100] and the result is rounded to cents.
func Discount(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsNegative() || percent.IsZero() {
		return amount
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	return amount.Mul(hundred.Sub(percent)).Div(hundred).Round(Scale)
}

// Times multiplies a unit amount by a quantity.
func Times(amount decimal.Decimal, qty int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(qty)))
}

// NonNegative returns zero for negative amounts.
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
