package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders an amount with "." grouping every three digits, e.g.
// 1234567 -> "1.234.567".
func FormatAmount(amount Money) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// FormatPrice prefixes FormatAmount with a currency symbol.
func FormatPrice(symbol string, amount Money) string {
	return symbol + FormatAmount(amount)
}

// Describe returns the shopper-facing label of a tier, e.g. "10% off for 5+ items".
func Describe(t Tier) string {
	return fmt.Sprintf("%s%% off for %d+ items", t.PercentOff.String(), t.MinQuantity)
}

// View is a Result with display renderings of its amounts.
type View struct {
	Result
	SubtotalDisplay string `json:"subtotalDisplay"`
	DiscountDisplay string `json:"discountDisplay"`
	TotalDisplay    string `json:"totalDisplay"`
}

// NewView renders r with symbol as the currency prefix.
func NewView(symbol string, r Result) View {
	return View{
		Result:          r,
		SubtotalDisplay: FormatPrice(symbol, r.Subtotal),
		DiscountDisplay: FormatPrice(symbol, r.DiscountAmount),
		TotalDisplay:    FormatPrice(symbol, r.Total),
	}
}
