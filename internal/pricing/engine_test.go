package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func defaultTiers() []Tier {
	return []Tier{
		{ID: "a", MinQuantity: 3, PercentOff: pct("5"), Active: true},
		{ID: "b", MinQuantity: 5, PercentOff: pct("10"), Active: true},
		{ID: "c", MinQuantity: 10, PercentOff: pct("20"), Active: true},
	}
}

func TestPriceAppliesHighestQualifyingTier(t *testing.T) {
	res := Compute([]Line{{ProductID: "p1", UnitPrice: 10000, Quantity: 7}}, defaultTiers())
	require.Equal(t, Money(70000), res.Subtotal)
	require.Equal(t, 7, res.TotalQuantity)
	require.True(t, res.HasDiscount)
	require.NotNil(t, res.AppliedTier)
	require.Equal(t, 5, res.AppliedTier.MinQuantity)
	require.True(t, res.AppliedTier.PercentOff.Equal(pct("10")))
	require.Equal(t, Money(7000), res.DiscountAmount)
	require.Equal(t, Money(63000), res.Total)
}

func TestPriceBelowEveryTier(t *testing.T) {
	res := Compute([]Line{{UnitPrice: 15000, Quantity: 2}}, defaultTiers())
	require.False(t, res.HasDiscount)
	require.Nil(t, res.AppliedTier)
	require.Zero(t, res.DiscountAmount)
	require.Equal(t, res.Subtotal, res.Total)
}

func TestPriceInclusiveBoundary(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", UnitPrice: 10000, Quantity: 4},
		{ProductID: "p2", UnitPrice: 10000, Quantity: 6},
	}
	res := Compute(lines, defaultTiers())
	require.Equal(t, Money(100000), res.Subtotal)
	require.Equal(t, 10, res.AppliedTier.MinQuantity)
	require.Equal(t, Money(20000), res.DiscountAmount)
	require.Equal(t, Money(80000), res.Total)
}

func TestPriceEmptyCart(t *testing.T) {
	res := Compute(nil, defaultTiers())
	require.Equal(t, Result{}, res)
}

func TestPriceIgnoresInactiveTiers(t *testing.T) {
	tiers := defaultTiers()
	tiers[2].Active = false
	res := Compute([]Line{{UnitPrice: 100, Quantity: 12}}, tiers)
	require.Equal(t, 5, res.AppliedTier.MinQuantity)

	for i := range tiers {
		tiers[i].Active = false
	}
	res = Compute([]Line{{UnitPrice: 100, Quantity: 12}}, tiers)
	require.False(t, res.HasDiscount)
}

func TestDiscountAmountRoundsHalfUp(t *testing.T) {
	cases := []struct {
		subtotal Money
		percent  string
		want     Money
	}{
		{subtotal: 999, percent: "5", want: 50},        // 49.95
		{subtotal: 1010, percent: "15", want: 152},     // 151.5
		{subtotal: 1001, percent: "10", want: 100},     // 100.1
		{subtotal: 3, percent: "50", want: 2},          // 1.5
		{subtotal: 12345, percent: "12.5", want: 1543}, // 1543.125
		{subtotal: 5000, percent: "100", want: 5000},
		{subtotal: 0, percent: "20", want: 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DiscountAmount(tc.subtotal, pct(tc.percent)), "subtotal=%d percent=%s", tc.subtotal, tc.percent)
	}
}

func TestDiscountBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		subtotal := Money(rng.Int63n(10_000_000))
		// percent in (0, 100] with two decimals
		percent := decimal.New(rng.Int63n(10000)+1, -2)
		discount := DiscountAmount(subtotal, percent)
		require.GreaterOrEqual(t, discount, Money(0))
		require.LessOrEqual(t, discount, subtotal)
	}
}

func TestResolveMaximalityProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		tiers := make([]Tier, 0, n)
		for j := 0; j < n; j++ {
			tiers = append(tiers, Tier{
				ID:          string(rune('a' + j)),
				MinQuantity: rng.Intn(20) + 1,
				PercentOff:  decimal.NewFromInt(int64(rng.Intn(100) + 1)),
				Active:      rng.Intn(4) != 0,
			})
		}
		q := rng.Intn(25)
		got, ok := ResolveTier(tiers, q)

		best := 0
		for _, tr := range tiers {
			if tr.Active && tr.MinQuantity <= q && tr.MinQuantity > best {
				best = tr.MinQuantity
			}
		}
		if best == 0 {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Equal(t, best, got.MinQuantity)
	}
}

func TestPriceIsIdempotent(t *testing.T) {
	sched := NewSchedule(3, defaultTiers())
	lines := []Line{{ProductID: "p1", UnitPrice: 3333, Quantity: 3}, {ProductID: "p2", UnitPrice: 1, Quantity: 2}}
	first := sched.Price(lines)
	second := sched.Price(lines)
	require.Equal(t, first, second)
	require.Equal(t, first.Subtotal-first.DiscountAmount, first.Total)
}

func TestScheduleDeterministicWithDuplicates(t *testing.T) {
	tiers := []Tier{
		{ID: "z", MinQuantity: 5, PercentOff: pct("10"), Active: true, Position: 2},
		{ID: "y", MinQuantity: 5, PercentOff: pct("12"), Active: true, Position: 1},
		{ID: "x", MinQuantity: 5, PercentOff: pct("8"), Active: true, Position: 1},
	}
	for i := 0; i < 10; i++ {
		rand.Shuffle(len(tiers), func(a, b int) { tiers[a], tiers[b] = tiers[b], tiers[a] })
		got, ok := ResolveTier(tiers, 5)
		require.True(t, ok)
		require.Equal(t, "x", got.ID)
	}
}

func TestScheduleDropsInvalidTiers(t *testing.T) {
	sched := NewSchedule(1, []Tier{
		{ID: "neg", MinQuantity: 0, PercentOff: pct("10"), Active: true},
		{ID: "big", MinQuantity: 2, PercentOff: pct("101"), Active: true},
		{ID: "ok", MinQuantity: 2, PercentOff: pct("100"), Active: true},
	})
	require.Equal(t, 1, sched.Len())
	require.Equal(t, int64(1), sched.Version())
	require.Equal(t, "ok", sched.Tiers()[0].ID)
}
