package obs

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts priced cart snapshots by call site.
	PricingQuotesTotal *prometheus.CounterVec
	// ShippingQuotesTotal counts shipping estimates by method and result kind.
	ShippingQuotesTotal *prometheus.CounterVec
	// CheckoutTotal counts order finalization outcomes.
	CheckoutTotal *prometheus.CounterVec
	// DiscountGrantedTotal sums tier discounts applied to finalized orders.
	DiscountGrantedTotal prometheus.Counter
	// TierSnapshotReloads counts discount tier snapshot reloads.
	TierSnapshotReloads *prometheus.CounterVec
	// NotificationsTotal counts order notification deliveries.
	NotificationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingQuotesTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of priced cart snapshots by call site.",
		}, []string{"site", "discounted"}))
		ShippingQuotesTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quotes_total",
			Help:      "Count of shipping estimates by method and result.",
		}, []string{"method", "kind"}))
		CheckoutTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of order finalization outcomes.",
		}, []string{"result"}))
		DiscountGrantedTotal = registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_granted_amount_total",
			Help:      "Sum of tier discounts granted on finalized orders, in currency units.",
		}))
		TierSnapshotReloads = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_tier_snapshot_reloads_total",
			Help:      "Count of discount tier snapshot reloads by outcome.",
		}, []string{"result"}))
		NotificationsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_notifications_total",
			Help:      "Count of order notification deliveries by sender and outcome.",
		}, []string{"sender", "result"}))
	})
}

// ObservePricingQuote records one priced snapshot.
func ObservePricingQuote(site string, discounted bool) {
	if PricingQuotesTotal == nil {
		return
	}
	PricingQuotesTotal.WithLabelValues(site, strconv.FormatBool(discounted)).Inc()
}

// ObserveShippingQuote records one shipping estimate.
func ObserveShippingQuote(method, kind string) {
	if ShippingQuotesTotal == nil {
		return
	}
	ShippingQuotesTotal.WithLabelValues(method, kind).Inc()
}

// ObserveCheckout records a finalization outcome and the discount it granted.
func ObserveCheckout(result string, discount int64) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
	if DiscountGrantedTotal != nil && discount > 0 {
		DiscountGrantedTotal.Add(float64(discount))
	}
}

// ObserveTierReload records a tier snapshot reload.
func ObserveTierReload(result string) {
	if TierSnapshotReloads == nil {
		return
	}
	TierSnapshotReloads.WithLabelValues(result).Inc()
}

// ObserveNotification records an order notification delivery.
func ObserveNotification(sender, result string) {
	if NotificationsTotal == nil {
		return
	}
	NotificationsTotal.WithLabelValues(sender, result).Inc()
}
