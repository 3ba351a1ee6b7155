package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Tier is a quantity threshold with an associated percentage discount.
type Tier struct {
	ID          string          `json:"id"`
	MinQuantity int             `json:"minQuantity"`
	PercentOff  decimal.Decimal `json:"percentOff"`
	Active      bool            `json:"active"`
	Position    int             `json:"displayOrder"`
}

// AppliedTier is the part of a Tier that is reported on a priced cart.
type AppliedTier struct {
	MinQuantity int             `json:"minQuantity"`
	PercentOff  decimal.Decimal `json:"percentOff"`
}

// Valid reports whether the tier satisfies the table constraints.
func (t Tier) Valid() bool {
	return t.MinQuantity > 0 && t.PercentOff.IsPositive() && t.PercentOff.LessThanOrEqual(hundred)
}

// Schedule is an immutable, sorted view over the active tiers of a tier table.
// The zero value is an empty schedule that never discounts.
type Schedule struct {
	version int64
	tiers   []Tier
}

// NewSchedule keeps the active, valid tiers and orders them by minimum
// quantity descending. Duplicated minimums fall back to display order and
// then ID so lookups stay deterministic.
func NewSchedule(version int64, tiers []Tier) Schedule {
	active := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.Active && t.Valid() {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.MinQuantity != b.MinQuantity {
			return a.MinQuantity > b.MinQuantity
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return Schedule{version: version, tiers: active}
}

// Version returns the tier table version the schedule was built from.
func (s Schedule) Version() int64 { return s.version }

// Tiers returns a copy of the active tiers in lookup order.
func (s Schedule) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Len returns the number of active tiers.
func (s Schedule) Len() int { return len(s.tiers) }

// Resolve returns the tier with the highest minimum quantity that does not
// exceed totalQuantity.
func (s Schedule) Resolve(totalQuantity int) (Tier, bool) {
	for _, t := range s.tiers {
		if t.MinQuantity <= totalQuantity {
			return t, true
		}
	}
	return Tier{}, false
}

// ResolveTier is Resolve over an unsorted tier set.
func ResolveTier(tiers []Tier, totalQuantity int) (Tier, bool) {
	return NewSchedule(0, tiers).Resolve(totalQuantity)
}
