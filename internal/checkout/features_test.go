package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cucumber/godog"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/cart"
	"github.com/isastore/backend/internal/catalog"
	"github.com/isastore/backend/internal/checkout"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/lock"
	"github.com/isastore/backend/internal/pricing"
	"github.com/isastore/backend/internal/shipping"
)

type pricingWorld struct {
	mr      *miniredis.Miniredis
	client  *redis.Client
	catalog *stubCatalog
	orders  *stubOrders
	tiers   []pricing.Tier
	byName  map[string]string

	carts  *cart.Service
	svc    *checkout.Service
	cartID string

	quote    checkout.Quote
	shipping shipping.Quote
	err      error
}

func (w *pricingWorld) start() error {
	mr, err := miniredis.Run()
	if err != nil {
		return err
	}
	w.mr = mr
	w.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	w.catalog = &stubCatalog{products: map[string]catalog.Product{}}
	w.orders = &stubOrders{}
	w.byName = map[string]string{}
	return nil
}

func (w *pricingWorld) stop() {
	if w.client != nil {
		_ = w.client.Close()
	}
	if w.mr != nil {
		w.mr.Close()
	}
}

// wire builds the services once the Background has set up tiers and products.
func (w *pricingWorld) wire() {
	if w.svc != nil {
		return
	}
	tiers := pricing.Static(pricing.NewSchedule(1, w.tiers))
	w.carts = &cart.Service{
		Store:          &cart.RedisStore{R: w.client, TTL: time.Hour},
		Products:       w.catalog,
		Tiers:          tiers,
		CurrencySymbol: "₡",
	}
	w.svc = checkout.NewService(checkout.Service{
		Carts:          w.carts,
		Stock:          w.catalog,
		Tiers:          tiers,
		Estimator:      shipping.NewEstimator(shipping.DefaultRates, nil),
		DefaultWeight:  shipping.DefaultLineWeight,
		Orders:         w.orders,
		Events:         &stubEmitter{},
		Lock:           lock.Locker{R: w.client, RetryBackoff: 5 * time.Millisecond},
		CurrencySymbol: "₡",
	})
}

func (w *pricingWorld) theDiscountTiers(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		minQty, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return err
		}
		pct, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		w.tiers = append(w.tiers, pricing.Tier{ID: fmt.Sprintf("tier-%d", i), MinQuantity: minQty, PercentOff: pct, Active: true})
	}
	return nil
}

func (w *pricingWorld) aProduct(name string, price int64, stock int, weight string) error {
	kg, err := decimal.NewFromString(weight)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	w.byName[name] = id
	w.catalog.products[id] = catalog.Product{ID: id, Name: name, Price: price, Stock: stock, WeightKg: kg}
	return nil
}

func (w *pricingWorld) product(name string) (string, error) {
	id, ok := w.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown product %q", name)
	}
	return id, nil
}

func (w *pricingWorld) iPriceACartOf(ctx context.Context, qty int, name string) error {
	w.wire()
	id, err := w.product(name)
	if err != nil {
		return err
	}
	w.quote, err = w.svc.Quote(ctx, checkout.QuoteInput{Items: []cart.Item{{ProductID: id, Quantity: qty}}})
	return err
}

func expectAmount(what string, got, want int64) error {
	if got != want {
		return fmt.Errorf("%s: expected %d, got %d", what, want, got)
	}
	return nil
}

func (w *pricingWorld) theSubtotalIs(want int64) error {
	return expectAmount("subtotal", w.quote.Pricing.Subtotal, want)
}

func (w *pricingWorld) theDiscountIs(want int64) error {
	return expectAmount("discount", w.quote.Pricing.DiscountAmount, want)
}

func (w *pricingWorld) theTotalIs(want int64) error {
	return expectAmount("total", w.quote.Pricing.Total, want)
}

func (w *pricingWorld) theAppliedTierIs(minQty int, pct string) error {
	applied := w.quote.Pricing.AppliedTier
	if applied == nil {
		return errors.New("expected a tier to be applied")
	}
	if applied.MinQuantity != minQty || !applied.PercentOff.Equal(decimal.RequireFromString(pct)) {
		return fmt.Errorf("expected tier %d/%s%%, got %d/%s%%", minQty, pct, applied.MinQuantity, applied.PercentOff)
	}
	return nil
}

func (w *pricingWorld) noTierIsApplied() error {
	if w.quote.Pricing.AppliedTier != nil || w.quote.Pricing.HasDiscount {
		return fmt.Errorf("expected no tier, got %+v", w.quote.Pricing.AppliedTier)
	}
	return nil
}

func (w *pricingWorld) iEstimateShipping(method, weight, address string) error {
	w.wire()
	kg, err := decimal.NewFromString(weight)
	if err != nil {
		return err
	}
	_, w.shipping, err = shipping.NewEstimator(shipping.DefaultRates, nil).EstimateKey(method, kg, address)
	return err
}

func (w *pricingWorld) theShippingCostIs(want int64) error {
	amount, ok := w.shipping.Amount()
	if !ok {
		return errors.New("expected a fixed shipping cost")
	}
	return expectAmount("shipping", amount, want)
}

func (w *pricingWorld) anEmptyCart(ctx context.Context) error {
	w.wire()
	c, err := w.carts.Create(ctx)
	if err != nil {
		return err
	}
	w.cartID = c.ID
	return nil
}

func (w *pricingWorld) aCartWith(ctx context.Context, qty int, name string) error {
	if err := w.anEmptyCart(ctx); err != nil {
		return err
	}
	id, err := w.product(name)
	if err != nil {
		return err
	}
	_, err = w.carts.AddItem(ctx, w.cartID, id, qty)
	return err
}

func (w *pricingWorld) iCheckOut(ctx context.Context, name, phone, address string) error {
	_, w.err = w.svc.Checkout(ctx, checkout.Input{
		CartID:   w.cartID,
		Customer: checkout.Customer{Name: name, Phone: phone, Address: address},
	})
	return nil
}

func (w *pricingWorld) checkoutFailsBecauseEmpty() error {
	if !errors.Is(w.err, checkout.ErrEmptyCart) {
		return fmt.Errorf("expected empty cart error, got %v", w.err)
	}
	return nil
}

func (w *pricingWorld) checkoutFailsOnField(field string) error {
	var fe *common.FieldError
	if !errors.As(w.err, &fe) {
		return fmt.Errorf("expected a field error, got %v", w.err)
	}
	if fe.Field != field {
		return fmt.Errorf("expected field %q, got %q", field, fe.Field)
	}
	return nil
}

func (w *pricingWorld) noOrderIsPlaced() error {
	if n := w.orders.count(); n != 0 {
		return fmt.Errorf("expected no order, got %d", n)
	}
	return nil
}

func (w *pricingWorld) theCartStillHolds(ctx context.Context, qty int, name string) error {
	id, err := w.product(name)
	if err != nil {
		return err
	}
	c, err := w.carts.Get(ctx, w.cartID)
	if err != nil {
		return err
	}
	for _, l := range c.Lines {
		if l.ProductID == id && l.Quantity == qty {
			return nil
		}
	}
	return fmt.Errorf("cart lines %+v do not hold %d %q", c.Lines, qty, name)
}

func initializePricingScenario(sc *godog.ScenarioContext) {
	w := &pricingWorld{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*w = pricingWorld{}
		return ctx, w.start()
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		w.stop()
		return ctx, nil
	})

	sc.Step(`^the discount tiers$`, w.theDiscountTiers)
	sc.Step(`^a product "([^"]*)" priced (\d+) with stock (\d+) weighing ([\d.]+) kg$`, w.aProduct)
	sc.Step(`^I price a cart of (\d+) "([^"]*)"$`, w.iPriceACartOf)
	sc.Step(`^the subtotal is (\d+)$`, w.theSubtotalIs)
	sc.Step(`^the applied tier is (\d+) items at ([\d.]+) percent$`, w.theAppliedTierIs)
	sc.Step(`^no tier is applied$`, w.noTierIsApplied)
	sc.Step(`^the discount is (\d+)$`, w.theDiscountIs)
	sc.Step(`^the total is (\d+)$`, w.theTotalIs)
	sc.Step(`^I estimate "([^"]*)" shipping for ([\d.]+) kg to "([^"]*)"$`, w.iEstimateShipping)
	sc.Step(`^the shipping cost is (\d+)$`, w.theShippingCostIs)
	sc.Step(`^an empty cart$`, w.anEmptyCart)
	sc.Step(`^a cart with (\d+) "([^"]*)"$`, w.aCartWith)
	sc.Step(`^I check out as "([^"]*)" with phone "([^"]*)" at "([^"]*)"$`, w.iCheckOut)
	sc.Step(`^checkout fails because the cart is empty$`, w.checkoutFailsBecauseEmpty)
	sc.Step(`^checkout fails on the "([^"]*)" field$`, w.checkoutFailsOnField)
	sc.Step(`^no order is placed$`, w.noOrderIsPlaced)
	sc.Step(`^the cart still holds (\d+) "([^"]*)"$`, w.theCartStillHolds)
}

func TestOrderPricingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "order-pricing",
		ScenarioInitializer: initializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("order pricing features failed")
	}
}
