package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value in whole currency units.
type Money = int64

// Line describes a cart line used for pricing calculation.
type Line struct {
	ProductID string
	UnitPrice Money
	Quantity  int
}

// Result is the priced view of a cart snapshot.
type Result struct {
	Subtotal       Money        `json:"subtotal"`
	TotalQuantity  int          `json:"totalQuantity"`
	HasDiscount    bool         `json:"hasDiscount"`
	AppliedTier    *AppliedTier `json:"appliedTier"`
	DiscountAmount Money        `json:"discountAmount"`
	Total          Money        `json:"total"`
}

// Price computes subtotal, tier discount and total for lines. Lines with a
// non-positive quantity are ignored; callers validate quantities first.
func (s Schedule) Price(lines []Line) Result {
	var res Result
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		res.Subtotal += l.UnitPrice * Money(l.Quantity)
		res.TotalQuantity += l.Quantity
	}
	res.Total = res.Subtotal

	tier, ok := s.Resolve(res.TotalQuantity)
	if !ok {
		return res
	}
	res.HasDiscount = true
	res.AppliedTier = &AppliedTier{MinQuantity: tier.MinQuantity, PercentOff: tier.PercentOff}
	res.DiscountAmount = DiscountAmount(res.Subtotal, tier.PercentOff)
	res.Total = res.Subtotal - res.DiscountAmount
	return res
}

// Compute prices lines against an unsorted tier set.
func Compute(lines []Line, tiers []Tier) Result {
	return NewSchedule(0, tiers).Price(lines)
}

// DiscountAmount returns subtotal*percent/100 rounded half up to a whole
// unit, clamped to [0, subtotal].
func DiscountAmount(subtotal Money, percent decimal.Decimal) Money {
	if subtotal <= 0 || !percent.IsPositive() {
		return 0
	}
	// Shift(-2) divides by 100 without losing precision; Round(0) rounds half
	// away from zero, which is half up for non-negative values.
	amount := decimal.NewFromInt(subtotal).Mul(percent).Shift(-2).Round(0).IntPart()
	switch {
	case amount < 0:
		return 0
	case amount > subtotal:
		return subtotal
	}
	return amount
}
