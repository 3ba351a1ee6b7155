package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/catalog"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/pricing"
	"github.com/isastore/backend/internal/shipping"
)

var (
	// ErrNotFound indicates the requested cart could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound indicates the cart has no line with the given id.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrProductNotFound indicates a referenced product is unknown or hidden.
	ErrProductNotFound = errors.New("product not found")
	// ErrStaleStock is the root of every StockError.
	ErrStaleStock = errors.New("requested quantity exceeds available stock")
)

// StockError reports a line whose quantity exceeds the stock available.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d available", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrStaleStock }

// Line is one product in a cart with the catalog data captured when it was added.
type Line struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice int64           `json:"unitPrice"`
	Image     string          `json:"image"`
	WeightKg  decimal.Decimal `json:"weightKg"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

// LineFromProduct snapshots p into a new line.
func LineFromProduct(p catalog.Product, qty int) Line {
	return Line{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Image:     p.Image,
		WeightKg:  p.WeightKg,
		Stock:     p.Stock,
		Quantity:  qty,
	}
}

// Cart is an anonymous shopper's cart.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty cart with a fresh id.
func New(now time.Time) *Cart {
	return &Cart{ID: uuid.NewString(), Lines: []Line{}, UpdatedAt: now}
}

func checkQuantity(qty int) error {
	if qty <= 0 {
		return common.Invalid("quantity", "must be greater than 0")
	}
	return nil
}

// Add puts qty units of p in the cart. A product already in the cart has its
// quantity increased and its stock snapshot refreshed.
func (c *Cart) Add(p catalog.Product, qty int) (Line, error) {
	if err := checkQuantity(qty); err != nil {
		return Line{}, err
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ProductID != p.ID {
			continue
		}
		if l.Quantity+qty > p.Stock {
			return Line{}, &StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity + qty, Available: p.Stock}
		}
		l.Quantity += qty
		l.Stock = p.Stock
		return *l, nil
	}
	if qty > p.Stock {
		return Line{}, &StockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
	}
	line := LineFromProduct(p, qty)
	c.Lines = append(c.Lines, line)
	return line, nil
}

// Update sets the quantity of a line, bounded by its stock snapshot.
func (c *Cart) Update(lineID string, qty int) (Line, error) {
	if err := checkQuantity(qty); err != nil {
		return Line{}, err
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ID != lineID {
			continue
		}
		if qty > l.Stock {
			return Line{}, &StockError{ProductID: l.ProductID, Name: l.Name, Requested: qty, Available: l.Stock}
		}
		l.Quantity = qty
		return *l, nil
	}
	return Line{}, ErrLineNotFound
}

// Remove drops a line.
func (c *Cart) Remove(lineID string) error {
	for i, l := range c.Lines {
		if l.ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear drops every line.
func (c *Cart) Clear() { c.Lines = []Line{} }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// PricingLines converts lines for the pricing engine.
func PricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.Line{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}

// WeightLines converts lines for the shipping weight total.
func WeightLines(lines []Line) []shipping.WeightedLine {
	out := make([]shipping.WeightedLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, shipping.WeightedLine{WeightKg: l.WeightKg, Quantity: l.Quantity})
	}
	return out
}
