package shipping

import "github.com/shopspring/decimal"

// DefaultLineWeight is used for lines whose weight snapshot is missing.
var DefaultLineWeight = decimal.RequireFromString("0.5")

// MaxQuoteWeightKg caps the weight accepted by the public quote endpoint.
var MaxQuoteWeightKg = decimal.NewFromInt(1000)

// WeightedLine is the part of a cart line the weight total needs.
type WeightedLine struct {
	WeightKg decimal.Decimal
	Quantity int
}

// TotalWeight sums weight*quantity. Lines without a positive weight count as
// fallback kilograms each; a non-positive fallback uses DefaultLineWeight.
func TotalWeight(lines []WeightedLine, fallback decimal.Decimal) decimal.Decimal {
	if !fallback.IsPositive() {
		fallback = DefaultLineWeight
	}
	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		w := l.WeightKg
		if !w.IsPositive() {
			w = fallback
		}
		total = total.Add(w.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
