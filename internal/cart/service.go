package cart

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/catalog"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/pricing"
	"github.com/isastore/backend/internal/shipping"
)

// Products looks up live catalog data.
type Products interface {
	Lookup(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store          Store
	Products       Products
	Tiers          pricing.Source
	DefaultWeight  decimal.Decimal
	CurrencySymbol string
	Now            func() time.Time
}

// Item is a client supplied {productId, quantity} pair.
type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// Summary is a cart together with its priced view and shipping weight.
type Summary struct {
	*Cart
	ItemCount     int             `json:"itemCount"`
	TotalWeightKg decimal.Decimal `json:"totalWeightKg"`
	Pricing       pricing.View    `json:"pricing"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) configured() error {
	if s == nil || s.Store == nil || s.Products == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	c := New(s.now())
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a cart.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.Store.Load(ctx, id)
}

// AddItem adds qty units of a product using its live catalog data.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		if err := checkQuantity(qty); err != nil {
			return err
		}
		found, err := s.Products.Lookup(ctx, []string{productID})
		if err != nil {
			return err
		}
		p, ok := found[productID]
		if !ok {
			return ErrProductNotFound
		}
		_, err = c.Add(p, qty)
		return err
	})
}

// UpdateItem sets the quantity of a line.
func (s *Service) UpdateItem(ctx context.Context, cartID, lineID string, qty int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		_, err := c.Update(lineID, qty)
		return err
	})
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, cartID, lineID string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.Remove(lineID) })
}

// Clear empties a cart and keeps its id.
func (s *Service) Clear(ctx context.Context, cartID string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(*Cart) error) (*Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Hydrate builds cart lines for a client-held cart. Only product ids and
// quantities are taken from the client; names, prices, weights and stock come
// from the catalog. Repeated product ids are merged and the merged quantity
// must fit the current stock.
func (s *Service) Hydrate(ctx context.Context, items []Item) ([]Line, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	qty := make(map[string]int, len(items))
	for _, it := range items {
		if err := common.ValidateStruct(it); err != nil {
			return nil, err
		}
		if err := checkQuantity(it.Quantity); err != nil {
			return nil, err
		}
		prev, seen := qty[it.ProductID]
		if !seen {
			ids = append(ids, it.ProductID)
		}
		// saturate instead of wrapping; any stock check then fails
		qty[it.ProductID] = prev + min(it.Quantity, math.MaxInt-prev)
	}
	if len(ids) == 0 {
		return []Line{}, nil
	}
	found, err := s.Products.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, ErrProductNotFound
		}
		if qty[id] > p.Stock {
			return nil, &StockError{ProductID: id, Name: p.Name, Requested: qty[id], Available: p.Stock}
		}
		lines = append(lines, LineFromProduct(p, qty[id]))
	}
	return lines, nil
}

// Summarize prices lines against the current tier snapshot.
func (s *Service) Summarize(ctx context.Context, c *Cart, site string) (Summary, error) {
	schedule, err := s.schedule(ctx)
	if err != nil {
		return Summary{}, err
	}
	result := schedule.Price(PricingLines(c.Lines))
	obs.ObservePricingQuote(site, result.HasDiscount)
	return Summary{
		Cart:          c,
		ItemCount:     result.TotalQuantity,
		TotalWeightKg: shipping.TotalWeight(WeightLines(c.Lines), s.DefaultWeight),
		Pricing:       pricing.NewView(s.CurrencySymbol, result),
	}, nil
}

func (s *Service) schedule(ctx context.Context) (pricing.Schedule, error) {
	if s.Tiers == nil {
		return pricing.Schedule{}, nil
	}
	return s.Tiers.Snapshot(ctx)
}
