// Package order holds placed orders: their persistence, the admin read side
// and status updates.
package order

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/notify"
	"github.com/isastore/backend/internal/pricing"
)

// StatusPending is the status of a freshly placed order.
const StatusPending = "pending"

// ErrNotFound is returned for unknown orders.
var ErrNotFound = errors.New("order not found")

var statusPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// NormalizeStatus trims and lower-cases a status label and checks its shape.
// Any label is accepted; there is no transition graph.
func NormalizeStatus(raw string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(raw))
	if !statusPattern.MatchString(status) {
		return "", common.Invalid("status", "must match "+statusPattern.String())
	}
	return status, nil
}

// Item is a frozen copy of a cart line.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity.
func (i Item) Subtotal() int64 { return i.UnitPrice * int64(i.Quantity) }

// Order is a placed order.
type Order struct {
	ID              string               `json:"id"`
	CustomerName    string               `json:"customerName"`
	CustomerPhone   string               `json:"customerPhone"`
	CustomerAddress string               `json:"customerAddress"`
	Status          string               `json:"status"`
	Items           []Item               `json:"lineItems"`
	Subtotal        int64                `json:"subtotal"`
	AppliedTier     *pricing.AppliedTier `json:"appliedTier"`
	DiscountAmount  int64                `json:"discountAmount"`
	Total           int64                `json:"total"`
	ShippingMethod  string               `json:"shippingMethod"`
	ShippingCost    *int64               `json:"shippingCost"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Summary is the event payload for o.
func (o Order) Summary() notify.OrderSummary {
	items := make([]notify.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, notify.OrderItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return notify.OrderSummary{
		OrderID:         o.ID,
		Status:          o.Status,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Items:           items,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		Total:           o.Total,
		ShippingMethod:  o.ShippingMethod,
		ShippingCost:    o.ShippingCost,
	}
}

func fromRows(row db.Order, items []db.OrderItem) Order {
	o := Order{
		ID:              db.UUIDString(row.ID),
		CustomerName:    row.CustomerName,
		CustomerPhone:   row.CustomerPhone,
		CustomerAddress: row.CustomerAddress,
		Status:          row.Status,
		Items:           make([]Item, 0, len(items)),
		Subtotal:        row.Subtotal,
		DiscountAmount:  row.DiscountAmount,
		Total:           row.Total,
		ShippingMethod:  row.ShippingMethod,
		ShippingCost:    row.ShippingCost,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.DiscountMinQuantity != nil && row.DiscountPercent != nil {
		if pct, err := decimal.NewFromString(*row.DiscountPercent); err == nil {
			o.AppliedTier = &pricing.AppliedTier{MinQuantity: int(*row.DiscountMinQuantity), PercentOff: pct}
		}
	}
	for _, it := range items {
		o.Items = append(o.Items, Item{
			ProductID: db.UUIDString(it.ProductID),
			Name:      it.ProductName,
			UnitPrice: it.UnitPrice,
			Image:     it.ProductImage,
			Quantity:  int(it.Quantity),
		})
	}
	return o
}
