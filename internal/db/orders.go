package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_name, customer_phone, customer_address, status, subtotal, discount_amount,
	discount_min_quantity, discount_percent::text, total, shipping_method, shipping_cost, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerAddress, &o.Status, &o.Subtotal,
		&o.DiscountAmount, &o.DiscountMinQuantity, &o.DiscountPercent, &o.Total, &o.ShippingMethod,
		&o.ShippingCost, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// InsertOrderParams carries the order header.
type InsertOrderParams struct {
	ID                  pgtype.UUID
	CustomerName        string
	CustomerPhone       string
	CustomerAddress     string
	Status              string
	Subtotal            int64
	DiscountAmount      int64
	DiscountMinQuantity *int32
	DiscountPercent     *string
	Total               int64
	ShippingMethod      string
	ShippingCost        *int64
	CreatedAt           time.Time
}

// InsertOrder writes an order header.
func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `INSERT INTO orders (
	id, customer_name, customer_phone, customer_address, status, subtotal, discount_amount,
	discount_min_quantity, discount_percent, total, shipping_method, shipping_cost, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $11, $12, $13, $13)
RETURNING `+orderColumns,
		arg.ID, arg.CustomerName, arg.CustomerPhone, arg.CustomerAddress, arg.Status, arg.Subtotal,
		arg.DiscountAmount, arg.DiscountMinQuantity, arg.DiscountPercent, arg.Total, arg.ShippingMethod,
		arg.ShippingCost, arg.CreatedAt))
}

// InsertOrderItemParams carries one frozen line.
type InsertOrderItemParams struct {
	OrderID      pgtype.UUID
	Position     int32
	ProductID    pgtype.UUID
	ProductName  string
	UnitPrice    int64
	ProductImage string
	Quantity     int32
}

// InsertOrderItem writes an order line.
func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `INSERT INTO order_items (order_id, position, product_id, product_name, unit_price, product_image, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, position, product_id, product_name, unit_price, product_image, quantity`,
		arg.OrderID, arg.Position, arg.ProductID, arg.ProductName, arg.UnitPrice, arg.ProductImage, arg.Quantity,
	).Scan(&it.ID, &it.OrderID, &it.Position, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.ProductImage, &it.Quantity)
	return it, err
}

// GetOrder loads one order header.
func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	return o, notFound(err)
}

// ListOrdersParams pages the admin order list. An empty Status matches all.
type ListOrdersParams struct {
	Status string
	Limit  int32
	Offset int32
}

// ListOrders returns order headers, newest first.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Order, error) { return scanOrder(r) })
}

// CountOrders counts orders with status, or all orders for "".
func (q *Queries) CountOrders(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`, status).Scan(&n)
	return n, err
}

// ListOrderItems loads the lines of the given orders in position order.
func (q *Queries) ListOrderItems(ctx context.Context, orderIDs []pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `SELECT id, order_id, position, product_id, product_name, unit_price, product_image, quantity
FROM order_items WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (OrderItem, error) {
		var it OrderItem
		err := r.Scan(&it.ID, &it.OrderID, &it.Position, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.ProductImage, &it.Quantity)
		return it, err
	})
}

// UpdateOrderStatus sets the status label of an order.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status string) (Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING `+orderColumns, id, status))
	return o, notFound(err)
}

// SalesDaily aggregates orders per UTC day in [from, to).
func (q *Queries) SalesDaily(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	rows, err := q.db.Query(ctx, `SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day,
	count(*), coalesce(sum(subtotal), 0)::bigint, coalesce(sum(discount_amount), 0)::bigint, coalesce(sum(total), 0)::bigint
FROM orders
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (SalesDay, error) {
		var d SalesDay
		err := r.Scan(&d.Day, &d.Orders, &d.Subtotal, &d.DiscountAmount, &d.Total)
		return d, err
	})
}
