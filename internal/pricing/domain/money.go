package domain

import "github.com/shopspring/decimal"

// Quantize normalizes a monetary amount to 2 decimal places. Rounding is
// half-up: shopspring's Round rounds half away from zero, which is the
// same thing for the non-negative amounts this engine deals in.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PctFraction converts a percentage (0-100, two decimals) into the
// fraction used for discount arithmetic.
func PctFraction(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(decimal.NewFromInt(100))
}

// MinAllowedPrice returns the lowest price a supplier-discount rule with
// the given recognized percentage justifies for an item with the given
// last cost: cost * (1 - pct/100), quantized.
func MinAllowedPrice(cost, pct decimal.Decimal) decimal.Decimal {
	return Quantize(cost.Mul(decimal.NewFromInt(1).Sub(PctFraction(pct))))
}
