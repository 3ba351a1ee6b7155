package auth

import (
	"net/http"
	"strings"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
)

// Middleware guards admin routes.
type Middleware struct {
	Verifier *Verifier
}

// RequireAdmin rejects requests without a valid bearer credential and stores
// the admin id on the context otherwise.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "admin authentication is not configured", nil)
			return
		}
		adminID, err := m.Verifier.Verify(bearer(r))
		if err != nil {
			obs.Logger(r.Context()).Debug().Err(err).Msg("admin credential rejected")
			if !common.WriteAppError(w, err) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credential", nil)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithAdminID(r.Context(), adminID)))
	})
}

func bearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
