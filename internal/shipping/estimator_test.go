package shipping_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/pricing"
	"github.com/isastore/backend/internal/shipping"
)

func kg(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestFlatCarrierTariff(t *testing.T) {
	t.Parallel()

	est := shipping.NewEstimator(shipping.DefaultRates, nil)
	cases := map[string]pricing.Money{
		"-1":   0,
		"0":    0,
		"0.2":  3500,
		"1":    3500,
		"1.01": 4800,
		"2":    4800,
		"2.3":  6100,
		"3":    6100,
		"3.5":  7400,
	}
	for weight, want := range cases {
		q, err := est.Estimate(shipping.MethodFlatCarrier, kg(weight), "")
		require.NoError(t, err)
		amount, ok := q.Amount()
		require.True(t, ok)
		require.Equal(t, want, amount, "weight %s", weight)
	}
}

func TestFlatCarrierMonotonic(t *testing.T) {
	t.Parallel()

	est := shipping.NewEstimator(shipping.Rates{FirstKg: 3500, ExtraKg: 1300}, nil)
	var prev pricing.Money
	for grams := int64(-500); grams <= 25000; grams += 37 {
		q, err := est.Estimate(shipping.MethodFlatCarrier, decimal.New(grams, -3), "")
		require.NoError(t, err)
		amount, _ := q.Amount()
		require.GreaterOrEqual(t, amount, prev, "weight %dg", grams)
		prev = amount
	}
}

func TestPickupIsFreeRegardlessOfAddress(t *testing.T) {
	t.Parallel()

	est := shipping.NewEstimator(shipping.DefaultRates, []string{"belén", "heredia"})
	for _, addr := range []string{"", "San José centro", "Belén, Heredia"} {
		q, err := est.Estimate(shipping.MethodPickup, kg("12"), addr)
		require.NoError(t, err)
		amount, ok := q.Amount()
		require.True(t, ok)
		require.Zero(t, amount)
	}
	require.True(t, est.IsLocalPickup("Calle 1, BELÉN"))
	require.False(t, est.IsLocalPickup("Cartago"))
}

func TestCourierRequiresQuote(t *testing.T) {
	t.Parallel()

	q, err := shipping.Estimator{}.Estimate(shipping.MethodOnDemandCourier, kg("1"), "")
	require.NoError(t, err)
	require.True(t, q.RequiresQuote())
	_, ok := q.Amount()
	require.False(t, ok)

	total, added := q.AddTo(63000)
	require.False(t, added)
	require.Equal(t, pricing.Money(63000), total)
	require.Nil(t, q.AmountPtr())
}

func TestUnknownMethodFails(t *testing.T) {
	t.Parallel()

	_, _, err := shipping.Estimator{}.EstimateKey("teleport", kg("1"), "")
	require.ErrorIs(t, err, shipping.ErrInvalidMethod)

	_, err = shipping.Estimator{}.Estimate(shipping.Method(""), kg("1"), "")
	require.ErrorIs(t, err, shipping.ErrInvalidMethod)
}

func TestParseMethodAliases(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]shipping.Method{
		"pickup":       shipping.MethodPickup,
		" Correos ":    shipping.MethodFlatCarrier,
		"flat_carrier": shipping.MethodFlatCarrier,
		"UBER":         shipping.MethodOnDemandCourier,
	} {
		got, err := shipping.ParseMethod(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestQuoteJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(shipping.Cost(6100))
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"cost","amount":6100}`, string(data))

	data, err = json.Marshal(shipping.QuoteRequired())
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"quote_required","amount":null}`, string(data))

	var q shipping.Quote
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"quote_required"}`), &q))
	require.True(t, q.RequiresQuote())
	require.Error(t, json.Unmarshal([]byte(`{"kind":"cost"}`), &q))
}

func TestTotalWeightUsesFallback(t *testing.T) {
	t.Parallel()

	total := shipping.TotalWeight([]shipping.WeightedLine{
		{WeightKg: kg("1.2"), Quantity: 2},
		{WeightKg: decimal.Zero, Quantity: 3},
	}, decimal.Zero)
	require.Equal(t, "3.9", total.String())
}
