// Package checkout finalizes carts into orders and prices client-held carts.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/isastore/backend/internal/cart"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/events"
	"github.com/isastore/backend/internal/notify"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/order"
	"github.com/isastore/backend/internal/pricing"
	"github.com/isastore/backend/internal/shipping"
)

// ErrEmptyCart is returned when there is nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

const phoneDigits = 8

// Carts is the cart side the finalizer needs.
type Carts interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Hydrate(ctx context.Context, items []cart.Item) ([]cart.Line, error)
	Clear(ctx context.Context, id string) (*cart.Cart, error)
}

// Stock reports live stock per product id.
type Stock interface {
	StockLevels(ctx context.Context, ids []string) (map[string]int, error)
}

// Orders persists finalized orders.
type Orders interface {
	Create(ctx context.Context, in order.NewOrder) (order.Order, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (db.DomainEvent, error)
}

// Locker serializes work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Customer is the contact data of an order.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// Input is a checkout request. Either CartID names a server-held cart or
// Items carries a client-held one.
type Input struct {
	CartID         string      `json:"cartId"`
	Items          []cart.Item `json:"items"`
	Customer       Customer    `json:"customer"`
	ShippingMethod string      `json:"shippingMethod"`
}

// QuoteInput prices a client-held cart without placing an order.
type QuoteInput struct {
	Items          []cart.Item `json:"items"`
	ShippingMethod string      `json:"shippingMethod"`
	Address        string      `json:"address"`
}

// Quote is a priced cart with an optional shipping estimate.
type Quote struct {
	Lines         []cart.Line         `json:"lines"`
	ItemCount     int                 `json:"itemCount"`
	TotalWeightKg decimal.Decimal     `json:"totalWeightKg"`
	Pricing       pricing.View        `json:"pricing"`
	Shipping      *shipping.QuoteView `json:"shipping,omitempty"`
}

// Result is the response of a successful checkout.
type Result struct {
	Order       order.Order        `json:"order"`
	Pricing     pricing.View       `json:"pricing"`
	Shipping    shipping.QuoteView `json:"shipping"`
	WhatsAppURL string             `json:"whatsappUrl,omitempty"`
}

// Service finalizes orders.
type Service struct {
	Carts          Carts
	Stock          Stock
	Tiers          pricing.Source
	Estimator      shipping.Estimator
	DefaultWeight  decimal.Decimal
	Orders         Orders
	Events         Emitter
	Lock           Locker
	LockTTL        time.Duration
	CurrencySymbol string
	WhatsAppPhone  string
	Labels         notify.Labels
	Now            func() time.Time

	attempts metric.Int64Counter
}

// NewService wires the checkout attempt counter onto s.
func NewService(s Service) *Service {
	counter, err := obs.Meter("isa-store/checkout").Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome"))
	if err == nil {
		s.attempts = counter
	}
	return &s
}

// Checkout turns a cart into a pending order. The cart is cleared and
// order.created emitted only after the order is committed; any earlier
// failure leaves the cart untouched.
func (s *Service) Checkout(ctx context.Context, in Input) (Result, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	var (
		res Result
		err error
	)
	if in.CartID != "" && s.Lock != nil {
		err = s.Lock.WithLock(ctx, "checkout:lock:"+in.CartID, s.lockTTL(), func(ctx context.Context) error {
			res, err = s.finalize(ctx, in)
			return err
		})
	} else {
		res, err = s.finalize(ctx, in)
	}
	s.record(ctx, res, err)
	return res, err
}

func (s *Service) finalize(ctx context.Context, in Input) (Result, error) {
	lines, err := s.lines(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}
	customer, err := normalizeCustomer(in.Customer)
	if err != nil {
		return Result{}, err
	}
	if err := s.recheckStock(ctx, lines); err != nil {
		return Result{}, err
	}

	schedule, err := s.schedule(ctx)
	if err != nil {
		return Result{}, err
	}
	priced := schedule.Price(cart.PricingLines(lines))
	weight := shipping.TotalWeight(cart.WeightLines(lines), s.DefaultWeight)
	methodKey := in.ShippingMethod
	if strings.TrimSpace(methodKey) == "" {
		methodKey = string(shipping.MethodPickup)
	}
	method, quote, err := s.Estimator.EstimateKey(methodKey, weight, customer.Address)
	if err != nil {
		return Result{}, err
	}

	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Image:     l.Image,
			Quantity:  l.Quantity,
		})
	}
	placed, err := s.Orders.Create(ctx, order.NewOrder{
		CustomerName:    customer.Name,
		CustomerPhone:   customer.Phone,
		CustomerAddress: customer.Address,
		Items:           items,
		Pricing:         priced,
		ShippingMethod:  string(method),
		ShippingCost:    quote.AmountPtr(),
		CreatedAt:       s.now(),
	})
	if err != nil {
		return Result{}, err
	}

	log := obs.Logger(ctx)
	if in.CartID != "" {
		if _, err := s.Carts.Clear(ctx, in.CartID); err != nil {
			log.Warn().Err(err).Str("cart_id", in.CartID).Str("order_id", placed.ID).Msg("clear cart after checkout")
		}
	}
	summary := placed.Summary()
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, placed.ID, summary); err != nil {
			log.Warn().Err(err).Str("order_id", placed.ID).Msg("emit order.created")
		}
	}
	log.Info().
		Str("order_id", placed.ID).
		Int64("total", placed.Total).
		Int64("discount", placed.DiscountAmount).
		Str("shipping_method", placed.ShippingMethod).
		Msg("order finalized")

	res := Result{
		Order:    placed,
		Pricing:  pricing.NewView(s.CurrencySymbol, priced),
		Shipping: s.Estimator.View(method, weight, customer.Address, s.CurrencySymbol, quote),
	}
	if s.WhatsAppPhone != "" {
		res.WhatsAppURL = notify.WhatsAppURL(s.WhatsAppPhone, notify.OrderMessage(summary, s.labels(), s.CurrencySymbol))
	}
	return res, nil
}

// Quote prices client-held items as the cart view would, plus shipping when
// a method is given.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	if s == nil || s.Carts == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	lines, err := s.Carts.Hydrate(ctx, in.Items)
	if err != nil {
		return Quote{}, err
	}
	schedule, err := s.schedule(ctx)
	if err != nil {
		return Quote{}, err
	}
	priced := schedule.Price(cart.PricingLines(lines))
	obs.ObservePricingQuote("cart", priced.HasDiscount)
	out := Quote{
		Lines:         lines,
		ItemCount:     priced.TotalQuantity,
		TotalWeightKg: shipping.TotalWeight(cart.WeightLines(lines), s.DefaultWeight),
		Pricing:       pricing.NewView(s.CurrencySymbol, priced),
	}
	if strings.TrimSpace(in.ShippingMethod) != "" {
		method, q, err := s.Estimator.EstimateKey(in.ShippingMethod, out.TotalWeightKg, in.Address)
		if err != nil {
			return Quote{}, err
		}
		obs.ObserveShippingQuote(string(method), shipping.KindLabel(q))
		view := s.Estimator.View(method, out.TotalWeightKg, in.Address, s.CurrencySymbol, q)
		out.Shipping = &view
	}
	return out, nil
}

func (s *Service) lines(ctx context.Context, in Input) ([]cart.Line, error) {
	if in.CartID != "" {
		c, err := s.Carts.Get(ctx, in.CartID)
		if err != nil {
			return nil, err
		}
		return c.Lines, nil
	}
	return s.Carts.Hydrate(ctx, in.Items)
}

func (s *Service) recheckStock(ctx context.Context, lines []cart.Line) error {
	if s.Stock == nil {
		return nil
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	levels, err := s.Stock.StockLevels(ctx, ids)
	if err != nil {
		return err
	}
	for _, l := range lines {
		available := levels[l.ProductID]
		if l.Quantity > available {
			return &cart.StockError{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: available}
		}
	}
	return nil
}

func normalizeCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	if err := common.ValidateStruct(c); err != nil {
		return Customer{}, err
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.Phone)
	if len(digits) != phoneDigits {
		return Customer{}, common.Invalid("phone", "must contain exactly 8 digits")
	}
	c.Phone = digits
	return c, nil
}

func (s *Service) schedule(ctx context.Context) (pricing.Schedule, error) {
	if s.Tiers == nil {
		return pricing.Schedule{}, nil
	}
	return s.Tiers.Snapshot(ctx)
}

func (s *Service) record(ctx context.Context, res Result, err error) {
	outcome := outcomeLabel(err)
	obs.ObserveCheckout(outcome, res.Order.DiscountAmount)
	if s.attempts != nil {
		s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func outcomeLabel(err error) string {
	var fe *common.FieldError
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &fe):
		return "invalid"
	case errors.Is(err, cart.ErrStaleStock):
		return "stale_stock"
	case errors.Is(err, shipping.ErrInvalidMethod):
		return "invalid_shipping"
	default:
		return "error"
	}
}

func (s *Service) labels() notify.Labels {
	if s.Labels.Prefix == "" {
		return notify.DefaultLabels
	}
	return s.Labels
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 10 * time.Second
	}
	return s.LockTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
