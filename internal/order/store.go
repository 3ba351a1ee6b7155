package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/pricing"
)

// NewOrder is everything the finalizer persists for one checkout.
type NewOrder struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Items           []Item
	Pricing         pricing.Result
	ShippingMethod  string
	ShippingCost    *int64
	CreatedAt       time.Time
}

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store writes orders inside a single transaction.
type Store struct {
	DB TxBeginner
	Q  *db.Queries
}

// Create inserts the order header and its items atomically with status
// StatusPending. Nothing is visible unless every row is written.
func (s *Store) Create(ctx context.Context, in NewOrder) (Order, error) {
	if s == nil || s.DB == nil || s.Q == nil {
		return Order{}, errors.New("order store not configured")
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	params := db.InsertOrderParams{
		ID:              db.NewUUID(),
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		Status:          StatusPending,
		Subtotal:        in.Pricing.Subtotal,
		DiscountAmount:  in.Pricing.DiscountAmount,
		Total:           in.Pricing.Total,
		ShippingMethod:  in.ShippingMethod,
		ShippingCost:    in.ShippingCost,
		CreatedAt:       in.CreatedAt,
	}
	if t := in.Pricing.AppliedTier; t != nil {
		minQty := int32(t.MinQuantity)
		pct := t.PercentOff.String()
		params.DiscountMinQuantity, params.DiscountPercent = &minQty, &pct
	}
	row, err := qtx.InsertOrder(ctx, params)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	items := make([]db.OrderItem, 0, len(in.Items))
	for i, it := range in.Items {
		productID, err := db.ParseUUID(it.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("order item %d: %w", i, err)
		}
		item, err := qtx.InsertOrderItem(ctx, db.InsertOrderItemParams{
			OrderID:      row.ID,
			Position:     int32(i),
			ProductID:    productID,
			ProductName:  it.Name,
			UnitPrice:    it.UnitPrice,
			ProductImage: it.Image,
			Quantity:     int32(it.Quantity),
		})
		if err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
		items = append(items, item)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order: %w", err)
	}
	return fromRows(row, items), nil
}
