package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service        *Service
	tiers          pricing.Source
	currencySymbol string
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service        *Service
	Tiers          pricing.Source
	CurrencySymbol string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, tiers: cfg.Tiers, currencySymbol: cfg.CurrencySymbol}
}

type quoteRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// QuoteResponse prices a quantity of one product.
type QuoteResponse struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	UnitPrice int64        `json:"unitPrice"`
	Pricing   pricing.View `json:"pricing"`
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.SetTotalCount(w, result.Total)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// Product handles GET /api/v1/products/{productID}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Quote handles POST /api/v1/products/{productID}/quote: the tiered price of
// buying quantity units of a single product.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.tiers == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Quantity > p.Stock {
		h.writeError(w, r, common.Invalid("quantity", fmt.Sprintf("must be at most %d", p.Stock)))
		return
	}
	schedule, err := h.tiers.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result := schedule.Price([]pricing.Line{{ProductID: p.ID, UnitPrice: p.Price, Quantity: req.Quantity}})
	obs.ObservePricingQuote("product", result.HasDiscount)
	common.Data(w, http.StatusOK, QuoteResponse{
		ProductID: p.ID,
		Quantity:  req.Quantity,
		UnitPrice: p.Price,
		Pricing:   pricing.NewView(h.currencySymbol, result),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if common.WriteValidation(w, err) || common.WriteAppError(w, err) {
		return
	}
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}
	obs.Logger(r.Context()).Error().Err(err).Msg("catalog request failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
