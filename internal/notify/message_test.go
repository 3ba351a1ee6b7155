package notify

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleOrder() OrderSummary {
	shipping := int64(4800)
	return OrderSummary{
		OrderID:         "ord-1",
		Status:          "pending",
		CustomerName:    "Ana Mora",
		CustomerPhone:   "8888-1234",
		CustomerAddress: "San José, Escazú",
		Items: []OrderItem{
			{Name: "Taza", Quantity: 3, UnitPrice: 10000},
			{Name: "Bowl", Quantity: 2, UnitPrice: 15000},
		},
		Subtotal:       60000,
		DiscountAmount: 6000,
		Total:          58800,
		ShippingMethod: "flat_carrier",
		ShippingCost:   &shipping,
	}
}

func TestOrderMessage(t *testing.T) {
	text := OrderMessage(sampleOrder(), DefaultLabels, "₡")
	require.True(t, strings.HasPrefix(text, DefaultLabels.Prefix+"\n\n"))
	require.Contains(t, text, "• Taza x3 - ₡30.000\n")
	require.Contains(t, text, "• Bowl x2 - ₡30.000\n")
	require.Contains(t, text, "Descuento: -₡6.000\n")
	require.Contains(t, text, "Envío (flat_carrier): ₡4.800\n")
	require.Contains(t, text, "Total: ₡58.800\n")
	require.True(t, strings.HasSuffix(text, "Dirección: San José, Escazú"))
}

func TestOrderMessageWithoutDiscountOrQuote(t *testing.T) {
	o := sampleOrder()
	o.DiscountAmount = 0
	o.ShippingCost = nil
	o.ShippingMethod = "on_demand_courier"
	text := OrderMessage(o, DefaultLabels, "₡")
	require.NotContains(t, text, "Descuento")
	require.Contains(t, text, "Envío (on_demand_courier): por cotizar\n")

	o.ShippingMethod = ""
	require.NotContains(t, OrderMessage(o, DefaultLabels, "₡"), "Envío")
}

func TestStatusMessage(t *testing.T) {
	o := sampleOrder()
	o.Status = "shipped"
	require.Equal(t, "Pedido ord-1: estado actualizado a shipped", StatusMessage(o, DefaultLabels))
}

func TestWhatsAppURL(t *testing.T) {
	link := WhatsAppURL("+506 8888-1234", "Hola mundo & más\nfin")
	require.True(t, strings.HasPrefix(link, "https://wa.me/50688881234?text="))
	require.NotContains(t, link, "+")
	require.Contains(t, link, "Hola%20mundo%20%26%20m%C3%A1s%0Afin")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "Hola mundo & más\nfin", parsed.Query().Get("text"))
}
