package discount_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/discount"
)

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func TestHandlerCreateAndList(t *testing.T) {
	svc, _ := newService(t, &stubTiers{})
	h := &discount.Handler{Svc: svc}

	for _, body := range []string{
		`{"minQuantity":3,"percentOff":"5"}`,
		`{"minQuantity":5,"percentOff":10}`,
		`{"minQuantity":10,"percentOff":"15","active":false}`,
	} {
		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/discount-tiers", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	h.Active(rec, httptest.NewRequest(http.MethodGet, "/api/v1/discount-tiers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var public struct {
		Data []struct {
			MinQuantity int    `json:"minQuantity"`
			Description string `json:"description"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public.Data, 2)
	require.Equal(t, 5, public.Data[0].MinQuantity)
	require.Equal(t, "10% off for 5+ items", public.Data[0].Description)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/discount-tiers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public.Data, 3)
}

func TestHandlerErrors(t *testing.T) {
	svc, _ := newService(t, &stubTiers{})
	h := &discount.Handler{Svc: svc}

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"minQuantity":3,"percentOff":"0"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.Equal(t, "percentOff", env.Error.Details["field"])

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"minQuantity":3,"percentOff":"5"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"minQuantity":3,"percentOff":"9"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/discount-tiers/x", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tierID", "2b1f0b6a-5a0e-4c55-9a51-0d5e1b7f3c11")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
