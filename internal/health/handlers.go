// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/isastore/backend/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips readiness; the API clears it when shutdown starts so load
// balancers drain before connections close.
func SetReady(v bool) { ready.Store(v) }

// Check is a named dependency probe.
type Check struct {
	Name    string
	Timeout time.Duration
	Probe   func(ctx context.Context) error
}

// Handler exposes the probes.
type Handler struct {
	Checks []Check
}

// Live handles GET /health/live.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. Every check runs concurrently with its
// own timeout.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "shutting_down"})
		return
	}
	results := make(map[string]string, len(h.Checks))
	var mu sync.Mutex
	var g errgroup.Group
	for _, c := range h.Checks {
		g.Go(func() error {
			status := "ok"
			if err := run(r.Context(), c); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[c.Name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	code, overall := http.StatusOK, "ok"
	for _, v := range results {
		if v != "ok" {
			code, overall = http.StatusServiceUnavailable, "degraded"
			break
		}
	}
	common.JSON(w, code, map[string]any{"status": overall, "checks": results})
}

func run(ctx context.Context, c Check) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Probe(ctx)
}
