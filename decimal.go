package ledger

import "github.com/shopspring/decimal"

// Fractional-digit precision used throughout the engine. Amounts and ratios
// are carried at 8 decimal places; monetary basis/proceeds are only rounded
// to 2 decimal places at the point they're finally assigned to a movement.
const (
	amountPrecision   = 8
	monetaryPrecision = 2
)

// round8 rounds to 8 fractional digits, half-even (banker's rounding), the
// precision used for quantities and ratios.
func round8(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(amountPrecision)
}

// round2 rounds to 2 fractional digits, half-even, the precision used for
// monetary basis/proceeds values.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(monetaryPrecision)
}

// zero and one are convenience aliases for the shopspring/decimal zero
// value and unity, used throughout the builder/basis/proceeds passes.
var (
	zeroDecimal = decimal.Zero
	oneDecimal  = decimal.NewFromInt(1)
)

// neg returns the additive inverse of d.
func neg(d decimal.Decimal) decimal.Decimal {
	return d.Neg()
}
