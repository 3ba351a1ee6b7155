package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isastore/backend/internal/obs"
)

// Route configures how a route is audited.
type Route struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
}

// Middleware records an audit entry after the wrapped handler ran.
func (s *Service) Middleware(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s == nil || !s.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			entry := Entry{
				Actor:        ActorFromContext(r.Context()),
				Action:       route.Action,
				ResourceType: route.ResourceType,
				Status:       rec.Status(),
			}
			if route.ResourceIDParam != "" {
				entry.ResourceID = chi.URLParam(r, route.ResourceIDParam)
			}
			if err := s.Record(r.Context(), r, entry); err != nil {
				obs.Logger(r.Context()).Warn().Err(err).Str("action", entry.Action).Msg("audit record failed")
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Status returns the written status, 200 when the handler wrote none.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
