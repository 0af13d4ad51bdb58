package model

import "github.com/shopspring/decimal"

// MinorUnits is the configured number of decimal places for monetary
// amounts. Storage keeps integer minor units only; decimals exist at the
// API surface.
const MinorUnits = 2

// ToMinor converts a decimal amount to integer minor units, rounding
// half-up at the configured precision.
func ToMinor(d decimal.Decimal) int64 {
	return d.Round(MinorUnits).Shift(MinorUnits).IntPart()
}

// FromMinor converts integer minor units back to a decimal amount.
func FromMinor(units int64) decimal.Decimal {
	return decimal.New(units, -MinorUnits)
}

// RoundMinor rounds a decimal to the configured minor-unit precision.
func RoundMinor(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// ExactMinor reports whether d carries no more precision than the
// configured minor unit.
func ExactMinor(d decimal.Decimal) bool {
	return d.Equal(d.Round(MinorUnits))
}
