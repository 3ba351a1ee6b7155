package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
)

// AdminHandler exposes order management to administrators.
type AdminHandler struct {
	Svc *Service
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// List handles GET /admin/orders.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	orders, total, err := h.Svc.List(r.Context(), ListParams{
		Status:  r.URL.Query().Get("status"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.SetTotalCount(w, total)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /admin/orders/{orderID}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

// PatchStatus handles PATCH /admin/orders/{orderID}/status.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req patchStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Svc.SetStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case common.WriteValidation(w, err):
	case common.WriteAppError(w, err):
	default:
		obs.Logger(r.Context()).Error().Err(err).Msg("order request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order request failed", nil)
	}
}
