package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
)

// Handler exposes analytics to administrators.
type Handler struct {
	Svc *Service
}

// Sales handles GET /admin/analytics/sales?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Without bounds it reports the last DefaultRange days (or ?days=N).
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.bounds(r)
	if err != nil {
		if !common.WriteValidation(w, err) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		}
		return
	}
	report, err := h.Svc.Sales(r.Context(), from, to)
	if err != nil {
		obs.Logger(r.Context()).Error().Err(err).Msg("sales report")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to build sales report", nil)
		return
	}
	common.Data(w, http.StatusOK, report)
}

func (h *Handler) bounds(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := parseDay(q.Get("from"))
		if err != nil {
			return time.Time{}, time.Time{}, common.Invalid("from", "must be a YYYY-MM-DD or RFC3339 date")
		}
		to, err := parseDay(q.Get("to"))
		if err != nil {
			return time.Time{}, time.Time{}, common.Invalid("to", "must be a YYYY-MM-DD or RFC3339 date")
		}
		if !from.Before(to) {
			return time.Time{}, time.Time{}, common.Invalid("from", "must be before to")
		}
		return from, to, nil
	}
	days := h.Svc.DefaultRange
	if days <= 0 {
		days = 30
	}
	if n, err := strconv.Atoi(q.Get("days")); err == nil && n > 0 && n <= 366 {
		days = n
	}
	to := day(h.Svc.now()).AddDate(0, 0, 1)
	return to.AddDate(0, 0, -days), to, nil
}

func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(dayLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
