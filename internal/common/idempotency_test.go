package common_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Hour}, mr
}

func checkoutRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	idem, mr := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		common.Data(w, http.StatusCreated, map[string]int32{"order": n})
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, checkoutRequest("abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Empty(t, first.Header().Get("Idempotent-Replay"))
	keys := mr.Keys()
	require.Len(t, keys, 1)
	stored, err := mr.Get(keys[0])
	require.NoError(t, err)
	require.Contains(t, stored, `"status":201`)
	require.Equal(t, time.Hour, mr.TTL(keys[0]))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, checkoutRequest("abc"))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.EqualValues(t, 1, calls.Load())

	other := httptest.NewRecorder()
	h.ServeHTTP(other, checkoutRequest("def"))
	require.JSONEq(t, `{"data":{"order":2}}`, other.Body.String())

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, checkoutRequest(""))
	require.EqualValues(t, 3, calls.Load())
	require.Len(t, mr.Keys(), 2)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	idem, mr := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "boom", nil)
			return
		}
		common.Data(w, http.StatusCreated, map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("retry-me"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, mr.Keys())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("retry-me"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, rec.Header().Get("Idempotent-Replay"))
	require.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	idem, _ := newIdem(t)
	started, release := make(chan struct{}), make(chan struct{})
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		common.Data(w, http.StatusCreated, map[string]string{"ok": "yes"})
	}))

	done := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, checkoutRequest("busy"))
		done <- rec.Code
	}()
	<-started

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("busy"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENT_REPLAY")

	close(release)
	require.Equal(t, http.StatusCreated, <-done)
}
