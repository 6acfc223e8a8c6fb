package shared

import "github.com/shopspring/decimal"

// MoneyScale is the fixed number of fractional digits for monetary values.
const MoneyScale = 2

// ValidAmount reports whether amount is strictly positive and representable
// at two decimal places. Sign is carried by the debit/credit leg, never by
// the stored amount.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.Exponent() >= -MoneyScale
}

// Quantize normalises a monetary value to two decimal places.
func Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}
