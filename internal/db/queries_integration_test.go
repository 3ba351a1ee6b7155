package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/db/dbtest"
)

func TestDiscountTierUniqueMinimum(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	q := db.New(pool)

	created, err := q.CreateDiscountTier(ctx, db.DiscountTierParams{MinQuantity: 5, PercentOff: "10", Active: true})
	require.NoError(t, err)
	require.Equal(t, "10.00", created.PercentOff)

	_, err = q.CreateDiscountTier(ctx, db.DiscountTierParams{MinQuantity: 5, PercentOff: "12.5", Active: true})
	require.True(t, db.IsUniqueViolation(err, db.DiscountTierMinQuantityKey))

	tiers, err := q.ListDiscountTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 1)

	require.NoError(t, q.DeleteDiscountTier(ctx, created.ID))
	require.ErrorIs(t, q.DeleteDiscountTier(ctx, created.ID), db.ErrNotFound)
}

func TestOrderRoundTrip(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	q := db.New(pool)

	var productID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price, stock, weight_kg) VALUES ('Mug', 10000, 20, 0.4) RETURNING id::text`).Scan(&productID))
	pid, err := db.ParseUUID(productID)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	qtx := q.WithTx(tx)
	minQty := int32(5)
	pct := "10"
	cost := int64(6100)
	order, err := qtx.InsertOrder(ctx, db.InsertOrderParams{
		ID:                  db.NewUUID(),
		CustomerName:        "Ana",
		CustomerPhone:       "88887777",
		CustomerAddress:     "Belén",
		Status:              "pending",
		Subtotal:            70000,
		DiscountAmount:      7000,
		DiscountMinQuantity: &minQty,
		DiscountPercent:     &pct,
		Total:               63000,
		ShippingMethod:      "flat_carrier",
		ShippingCost:        &cost,
		CreatedAt:           time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = qtx.InsertOrderItem(ctx, db.InsertOrderItemParams{
		OrderID: order.ID, Position: 0, ProductID: pid, ProductName: "Mug", UnitPrice: 10000, Quantity: 7,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	// later price change does not touch the frozen line
	_, err = pool.Exec(ctx, `UPDATE products SET price = 99999 WHERE id = $1`, pid)
	require.NoError(t, err)

	items, err := q.ListOrderItems(ctx, []pgtype.UUID{order.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(10000), items[0].UnitPrice)

	got, err := q.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "10.00", *got.DiscountPercent)
	require.Equal(t, int64(6100), *got.ShippingCost)

	updated, err := q.UpdateOrderStatus(ctx, order.ID, "fulfilled")
	require.NoError(t, err)
	require.Equal(t, "fulfilled", updated.Status)

	days, err := q.SalesDaily(ctx, time.Now().Add(-24*time.Hour), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, int64(7000), days[0].DiscountAmount)
}
