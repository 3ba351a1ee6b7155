package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/common"
)

func TestClientIPIgnoresHeadersWithoutRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	require.Equal(t, "10.0.0.7", common.ClientIP(req))

	req.RemoteAddr = "10.0.0.8"
	require.Equal(t, "10.0.0.8", common.ClientIP(req))
	require.Empty(t, common.ClientIP(nil))
}

func TestClientIPBehindRealIP(t *testing.T) {
	var got string
	h := middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = common.ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "203.0.113.9", got)
}
