package shipping

import (
	"encoding/json"
	"errors"

	"github.com/isastore/backend/internal/pricing"
)

type quoteKind uint8

const (
	kindCost quoteKind = iota + 1
	kindQuoteRequired
)

const (
	kindCostLabel          = "cost"
	kindQuoteRequiredLabel = "quote_required"
)

// Quote is either a computed Cost or QuoteRequired. The zero Quote is invalid.
type Quote struct {
	kind   quoteKind
	amount pricing.Money
}

// Cost is a quote with a known amount.
func Cost(amount pricing.Money) Quote {
	return Quote{kind: kindCost, amount: amount}
}

// QuoteRequired is a quote that has to be negotiated out of band.
func QuoteRequired() Quote {
	return Quote{kind: kindQuoteRequired}
}

// Amount returns the cost and true, or 0 and false when a manual quote is required.
func (q Quote) Amount() (pricing.Money, bool) {
	if q.kind != kindCost {
		return 0, false
	}
	return q.amount, true
}

// RequiresQuote reports whether the price must be requested manually.
func (q Quote) RequiresQuote() bool { return q.kind == kindQuoteRequired }

// IsZero reports whether q was never set.
func (q Quote) IsZero() bool { return q.kind == 0 }

// AddTo adds the cost to total. Quote-required shipping leaves total untouched
// and reports false.
func (q Quote) AddTo(total pricing.Money) (pricing.Money, bool) {
	amount, ok := q.Amount()
	if !ok {
		return total, false
	}
	return total + amount, true
}

// AmountPtr returns the amount as a nullable value for storage.
func (q Quote) AmountPtr() *pricing.Money {
	amount, ok := q.Amount()
	if !ok {
		return nil
	}
	return &amount
}

// QuoteFromAmount rebuilds a quote from a nullable stored amount.
func QuoteFromAmount(amount *pricing.Money) Quote {
	if amount == nil {
		return QuoteRequired()
	}
	return Cost(*amount)
}

type quoteJSON struct {
	Kind   string         `json:"kind"`
	Amount *pricing.Money `json:"amount"`
}

// MarshalJSON renders {"kind":"cost","amount":N} or {"kind":"quote_required","amount":null}.
func (q Quote) MarshalJSON() ([]byte, error) {
	switch q.kind {
	case kindCost:
		amount := q.amount
		return json.Marshal(quoteJSON{Kind: kindCostLabel, Amount: &amount})
	case kindQuoteRequired:
		return json.Marshal(quoteJSON{Kind: kindQuoteRequiredLabel})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the MarshalJSON shape.
func (q *Quote) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*q = Quote{}
		return nil
	}
	var raw quoteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case kindCostLabel:
		if raw.Amount == nil {
			return errors.New("shipping: cost quote without amount")
		}
		*q = Cost(*raw.Amount)
	case kindQuoteRequiredLabel:
		*q = QuoteRequired()
	default:
		return errors.New("shipping: unknown quote kind " + raw.Kind)
	}
	return nil
}
