package checkout

import (
	"errors"
	"net/http"

	"github.com/isastore/backend/internal/cart"
	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/shipping"
)

// Handler exposes checkout and the stateless cart quote.
type Handler struct {
	Svc *Service
}

// Checkout handles POST /checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Svc.Checkout(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, res)
}

// Quote handles POST /pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var in QuoteInput
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case cart.WriteError(w, err):
	case shipping.WriteError(w, err):
	case common.WriteValidation(w, err):
	case common.WriteAppError(w, err):
	default:
		obs.Logger(r.Context()).Error().Err(err).Msg("checkout failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to place order", nil)
	}
}
