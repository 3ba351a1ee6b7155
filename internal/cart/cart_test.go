package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/catalog"
	"github.com/isastore/backend/internal/common"
)

func product(id string, price int64, stock int) catalog.Product {
	return catalog.Product{ID: id, Name: "p-" + id, Price: price, Stock: stock, WeightKg: decimal.RequireFromString("0.4")}
}

func TestAddMergesSameProduct(t *testing.T) {
	c := New(time.Now())
	first, err := c.Add(product("a", 1000, 5), 2)
	require.NoError(t, err)
	second, err := c.Add(product("a", 1000, 5), 3)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, c.Lines, 1)
	require.Equal(t, 5, c.Lines[0].Quantity)

	_, err = c.Add(product("a", 1000, 5), 1)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.ErrorIs(t, err, ErrStaleStock)
	require.Equal(t, 6, stockErr.Requested)
	require.Equal(t, 5, stockErr.Available)
	require.Equal(t, 5, c.Lines[0].Quantity)
}

func TestLineIDsAreUnique(t *testing.T) {
	c := New(time.Now())
	a, err := c.Add(product("a", 1000, 5), 1)
	require.NoError(t, err)
	b, err := c.Add(product("b", 1000, 5), 1)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	c := New(time.Now())
	line, err := c.Add(product("a", 1000, 5), 2)
	require.NoError(t, err)

	for _, qty := range []int{0, -1} {
		_, err = c.Add(product("b", 1000, 5), qty)
		require.ErrorIs(t, err, common.ErrValidation)
		_, err = c.Update(line.ID, qty)
		require.ErrorIs(t, err, common.ErrValidation)
	}
	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
}

func TestUpdateBoundedByStockSnapshot(t *testing.T) {
	c := New(time.Now())
	line, err := c.Add(product("a", 1000, 3), 1)
	require.NoError(t, err)

	updated, err := c.Update(line.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, updated.Quantity)

	_, err = c.Update(line.ID, 4)
	require.ErrorIs(t, err, ErrStaleStock)

	_, err = c.Update("missing", 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	c := New(time.Now())
	a, _ := c.Add(product("a", 1000, 3), 1)
	_, _ = c.Add(product("b", 2000, 3), 1)

	require.NoError(t, c.Remove(a.ID))
	require.ErrorIs(t, c.Remove(a.ID), ErrLineNotFound)
	require.Len(t, c.Lines, 1)

	c.Clear()
	require.True(t, c.IsEmpty())
}

func TestConversions(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: 10000, Quantity: 3, WeightKg: decimal.RequireFromString("0.5")},
		{ProductID: "b", UnitPrice: 20000, Quantity: 2},
	}
	pl := PricingLines(lines)
	require.Len(t, pl, 2)
	require.Equal(t, int64(20000), pl[1].UnitPrice)
	require.Equal(t, int64(30000), lines[0].Subtotal())

	wl := WeightLines(lines)
	require.True(t, wl[1].WeightKg.IsZero())
	require.Equal(t, 2, wl[1].Quantity)
}
