package shipping

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/pricing"
)

// Handler exposes the shipping estimator over HTTP.
type Handler struct {
	Estimator      Estimator
	CurrencySymbol string
}

type quoteRequest struct {
	Method   string          `json:"method"`
	WeightKg decimal.Decimal `json:"weightKg"`
	Address  string          `json:"address"`
}

// QuoteView is the JSON shape of an estimate.
type QuoteView struct {
	Method      Method          `json:"method"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Quote       Quote           `json:"quote"`
	Display     string          `json:"display,omitempty"`
	LocalPickup bool            `json:"localPickup"`
}

// View builds the response shape for a computed quote.
func (e Estimator) View(method Method, weightKg decimal.Decimal, address, symbol string, q Quote) QuoteView {
	view := QuoteView{Method: method, WeightKg: weightKg, Quote: q}
	if amount, ok := q.Amount(); ok {
		view.Display = pricing.FormatPrice(symbol, amount)
	}
	if method == MethodPickup {
		view.LocalPickup = e.IsLocalPickup(address)
	}
	return view
}

// Quote handles POST /shipping/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.WeightKg.IsNegative() || req.WeightKg.GreaterThan(MaxQuoteWeightKg) {
		writeError(w, common.Invalid("weightKg", "must be between 0 and "+MaxQuoteWeightKg.String()))
		return
	}
	method, quote, err := h.Estimator.EstimateKey(req.Method, req.WeightKg, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	obs.ObserveShippingQuote(string(method), KindLabel(quote))
	common.Data(w, http.StatusOK, h.Estimator.View(method, req.WeightKg, req.Address, h.CurrencySymbol, quote))
}

// KindLabel returns the metric/JSON label of a quote kind.
func KindLabel(q Quote) string {
	if q.RequiresQuote() {
		return kindQuoteRequiredLabel
	}
	return kindCostLabel
}

// WriteError renders shipping errors; other packages reuse it for
// ErrInvalidMethod.
func WriteError(w http.ResponseWriter, err error) bool {
	if errors.Is(err, ErrInvalidMethod) {
		common.JSONError(w, http.StatusBadRequest, "INVALID_SHIPPING_METHOD", err.Error(), map[string]any{"supported": Methods()})
		return true
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case WriteError(w, err):
	case common.WriteValidation(w, err):
	case common.WriteAppError(w, err):
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to estimate shipping", nil)
	}
}
