package shipping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/pricing"
)

// ErrInvalidMethod is returned for shipping method keys the estimator does not know.
var ErrInvalidMethod = errors.New("invalid shipping method")

// Method identifies a delivery option.
type Method string

const (
	// MethodPickup is a free in-store pickup.
	MethodPickup Method = "pickup"
	// MethodFlatCarrier is domestic mail billed by weight.
	MethodFlatCarrier Method = "flat_carrier"
	// MethodOnDemandCourier is a courier ride priced manually.
	MethodOnDemandCourier Method = "on_demand_courier"
)

var methodAliases = map[string]Method{
	"pickup":            MethodPickup,
	"flat_carrier":      MethodFlatCarrier,
	"flatcarrier":       MethodFlatCarrier,
	"correos":           MethodFlatCarrier,
	"on_demand_courier": MethodOnDemandCourier,
	"ondemandcourier":   MethodOnDemandCourier,
	"uber":              MethodOnDemandCourier,
}

// ParseMethod normalises a client supplied method key.
func ParseMethod(raw string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if m, ok := methodAliases[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, raw)
}

// Methods lists the supported methods.
func Methods() []Method {
	return []Method{MethodPickup, MethodFlatCarrier, MethodOnDemandCourier}
}

// Rates configures the flat carrier tariff.
type Rates struct {
	FirstKg pricing.Money
	ExtraKg pricing.Money
}

// DefaultRates is the domestic mail tariff: 3500 for the first kilogram and
// 1300 per started extra kilogram.
var DefaultRates = Rates{FirstKg: 3500, ExtraKg: 1300}

// Estimator turns a method and total weight into a shipping quote.
type Estimator struct {
	Rates Rates
	// PickupKeywords mark an address as local to the pickup point. The flag
	// is informational and never changes the amount.
	PickupKeywords []string
}

// NewEstimator builds an estimator with the given rates.
func NewEstimator(rates Rates, pickupKeywords []string) Estimator {
	return Estimator{Rates: rates, PickupKeywords: pickupKeywords}
}

// Estimate prices a shipment. address only feeds the local pickup flag.
func (e Estimator) Estimate(method Method, weightKg decimal.Decimal, address string) (Quote, error) {
	switch method {
	case MethodPickup:
		return Cost(0), nil
	case MethodFlatCarrier:
		return Cost(e.flatCarrier(weightKg)), nil
	case MethodOnDemandCourier:
		return QuoteRequired(), nil
	default:
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidMethod, string(method))
	}
}

// EstimateKey parses raw before estimating.
func (e Estimator) EstimateKey(raw string, weightKg decimal.Decimal, address string) (Method, Quote, error) {
	method, err := ParseMethod(raw)
	if err != nil {
		return "", Quote{}, err
	}
	quote, err := e.Estimate(method, weightKg, address)
	return method, quote, err
}

func (e Estimator) flatCarrier(weightKg decimal.Decimal) pricing.Money {
	rates := e.Rates
	if rates == (Rates{}) {
		rates = DefaultRates
	}
	if !weightKg.IsPositive() {
		return 0
	}
	if weightKg.LessThanOrEqual(decimal.NewFromInt(1)) {
		return rates.FirstKg
	}
	extra := weightKg.Sub(decimal.NewFromInt(1)).Ceil().IntPart()
	return rates.FirstKg + extra*rates.ExtraKg
}

// IsLocalPickup reports whether address mentions one of the pickup keywords.
func (e Estimator) IsLocalPickup(address string) bool {
	lower := strings.ToLower(address)
	for _, kw := range e.PickupKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
