package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/isastore/backend/internal/pricing"
)

// OrderItem is one frozen line of an order notification.
type OrderItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// OrderSummary is the payload of order events.
type OrderSummary struct {
	OrderID         string      `json:"orderId"`
	Status          string      `json:"status"`
	PreviousStatus  string      `json:"previousStatus,omitempty"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	Items           []OrderItem `json:"items"`
	Subtotal        int64       `json:"subtotal"`
	DiscountAmount  int64       `json:"discountAmount"`
	Total           int64       `json:"total"`
	ShippingMethod  string      `json:"shippingMethod"`
	ShippingCost    *int64      `json:"shippingCost"`
}

// Labels are the human strings of an order message.
type Labels struct {
	Prefix        string
	Discount      string
	Shipping      string
	QuoteRequired string
	Total         string
	Name          string
	Phone         string
	Address       string
	StatusUpdate  string
}

// DefaultLabels is the Spanish message used by the storefront.
var DefaultLabels = Labels{
	Prefix:        "Hola! Me gustaría realizar el siguiente pedido:",
	Discount:      "Descuento",
	Shipping:      "Envío",
	QuoteRequired: "por cotizar",
	Total:         "Total",
	Name:          "Nombre completo",
	Phone:         "Teléfono",
	Address:       "Dirección",
	StatusUpdate:  "Pedido %s: estado actualizado a %s",
}

// OrderMessage renders the order hand-off text: the item list, totals and
// the customer's contact data.
func OrderMessage(o OrderSummary, l Labels, symbol string) string {
	var b strings.Builder
	b.WriteString(l.Prefix)
	b.WriteString("\n\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s x%d - %s\n", it.Name, it.Quantity, pricing.FormatPrice(symbol, it.UnitPrice*int64(it.Quantity)))
	}
	b.WriteString("\n")
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&b, "%s: -%s\n", l.Discount, pricing.FormatPrice(symbol, o.DiscountAmount))
	}
	if o.ShippingMethod != "" {
		shipping := l.QuoteRequired
		if o.ShippingCost != nil {
			shipping = pricing.FormatPrice(symbol, *o.ShippingCost)
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", l.Shipping, o.ShippingMethod, shipping)
	}
	fmt.Fprintf(&b, "%s: %s\n\n", l.Total, pricing.FormatPrice(symbol, o.Total))
	fmt.Fprintf(&b, "%s: %s\n", l.Name, o.CustomerName)
	fmt.Fprintf(&b, "%s: %s\n", l.Phone, o.CustomerPhone)
	fmt.Fprintf(&b, "%s: %s", l.Address, o.CustomerAddress)
	return b.String()
}

// StatusMessage renders a status change notice.
func StatusMessage(o OrderSummary, l Labels) string {
	return fmt.Sprintf(l.StatusUpdate, o.OrderID, o.Status)
}

// WhatsAppURL returns a wa.me click-to-chat link for phone prefilled with
// text. Spaces are encoded as %20.
func WhatsAppURL(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
