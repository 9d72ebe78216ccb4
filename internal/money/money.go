// Package money routes all cost, average-price and P&L arithmetic through
// decimal-safe operations. Native floating point must never accumulate money
// values across more than one operation; conversions back to float64 happen
// only at system boundaries (persistence, reporting).
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned when a quotient or weighted average would
// divide by a zero total. Callers treat it as a guarded, expected condition
// (quantities net to zero mid-computation during direction flips).
var ErrDivisionByZero = errors.New("division by zero")

// ErrLengthMismatch is returned when parallel price/quantity slices disagree.
var ErrLengthMismatch = errors.New("prices and quantities must have the same length")

// FromFloat converts a boundary float64 into a Decimal.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Add returns a + b.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// Sub returns a - b.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// Mul returns a * b.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b)
}

// Div returns a / b, or ErrDivisionByZero when b is zero.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.Div(b), nil
}

// Sum adds any number of values.
func Sum(vals ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(v)
	}
	return total
}

// WeightedAveragePrice computes the size-weighted average of prices. It fails
// with ErrDivisionByZero when the quantities sum to zero.
func WeightedAveragePrice(prices, quantities []decimal.Decimal) (decimal.Decimal, error) {
	if len(prices) != len(quantities) {
		return decimal.Zero, ErrLengthMismatch
	}
	if len(prices) == 0 {
		return decimal.Zero, nil
	}

	totalValue := decimal.Zero
	totalQty := decimal.Zero
	for i, p := range prices {
		totalValue = totalValue.Add(p.Mul(quantities[i]))
		totalQty = totalQty.Add(quantities[i])
	}
	return Div(totalValue, totalQty)
}

// WeightedAveragePriceFloat is the boundary convenience used by the matcher:
// float64 in, float64 out, decimal-safe in between.
func WeightedAveragePriceFloat(prices, quantities []float64) (float64, error) {
	ps := make([]decimal.Decimal, len(prices))
	qs := make([]decimal.Decimal, len(quantities))
	for i := range prices {
		ps[i] = decimal.NewFromFloat(prices[i])
	}
	for i := range quantities {
		qs[i] = decimal.NewFromFloat(quantities[i])
	}
	avg, err := WeightedAveragePrice(ps, qs)
	if err != nil {
		return 0, err
	}
	return avg.InexactFloat64(), nil
}

// EquityPnL computes realized P&L for linear instruments:
// (avg_close - avg_open) * qty - fees. Direction is encoded in qty's sign
// handling by the caller (qty is the closed magnitude times +1/-1).
func EquityPnL(avgOpen, avgClose, qty, fees decimal.Decimal) decimal.Decimal {
	return avgClose.Sub(avgOpen).Mul(qty).Sub(fees)
}

// OptionLeg is the input to leg-wise option P&L.
type OptionLeg struct {
	OpenPrice  decimal.Decimal
	ClosePrice decimal.Decimal
	Qty        decimal.Decimal
	Multiplier decimal.Decimal
}

// OptionPnL computes realized P&L across option legs:
// sum((close - open) * qty * multiplier) - fees.
func OptionPnL(legs []OptionLeg, fees decimal.Decimal) decimal.Decimal {
	gross := decimal.Zero
	for _, leg := range legs {
		gross = gross.Add(leg.ClosePrice.Sub(leg.OpenPrice).Mul(leg.Qty).Mul(leg.Multiplier))
	}
	return gross.Sub(fees)
}

// FuturesPnL computes realized P&L for futures as the equity formula scaled
// by the contract multiplier. TODO: tick-size/tick-value based P&L once
// instrument reference data carries ticks.
func FuturesPnL(avgOpen, avgClose, qty, multiplier, fees decimal.Decimal) decimal.Decimal {
	return avgClose.Sub(avgOpen).Mul(qty).Mul(multiplier).Sub(fees)
}
