package discount

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/pricing"
)

// Handler exposes the public tier listing and the admin tier endpoints.
type Handler struct {
	Svc *Service
}

// TierView is a tier with its shopper-facing label.
type TierView struct {
	pricing.Tier
	Description string `json:"description"`
}

func view(t pricing.Tier) TierView {
	return TierView{Tier: t, Description: pricing.Describe(t)}
}

// Active handles GET /api/v1/discount-tiers.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	tiers, err := h.Svc.Active(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]TierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, view(t))
	}
	common.Data(w, http.StatusOK, out)
}

// List handles GET /api/v1/admin/discount-tiers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	tiers, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]TierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, view(t))
	}
	common.Data(w, http.StatusOK, out)
}

// Create handles POST /api/v1/admin/discount-tiers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	tier, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, view(tier))
}

// Update handles PUT /api/v1/admin/discount-tiers/{tierID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	tier, err := h.Svc.Update(r.Context(), chi.URLParam(r, "tierID"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, view(tier))
}

// Delete handles DELETE /api/v1/admin/discount-tiers/{tierID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "tierID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if common.WriteValidation(w, err) || common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrDuplicateMinQuantity):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), map[string]string{"field": "minQuantity"})
	default:
		obs.Logger(r.Context()).Error().Err(err).Msg("discount tier request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
