// Package health provides Kubernetes-style liveness and readiness endpoints.
//
// Checks run on demand when a probe hits the endpoint, each under its own
// timeout. Readiness additionally requires the service to have declared
// itself ready via SetReady, so a draining server can fail probes while
// still serving in-flight traffic.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc probes one component. It returns nil when healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health holds the registered liveness and readiness checks.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// initialization is complete.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness check. Liveness decides whether the
// process should be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a readiness check. Readiness decides whether
// the process should receive traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the service-level readiness gate.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()
	h.respond(w, r, checks, true)
}

// ReadyEndpoint serves the readiness probe.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()
	h.respond(w, r, checks, h.ready.Load())
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) respond(w http.ResponseWriter, r *http.Request, checks []check, gate bool) {
	resp := probeResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
	healthy := gate
	if !gate {
		resp.Status = "unavailable"
	}

	for _, c := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		err := c.fn(ctx)
		cancel()
		if err != nil {
			healthy = false
			resp.Status = "unavailable"
			resp.Checks[c.name] = err.Error()
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GoroutineCountCheck returns a liveness check failing when the goroutine
// count exceeds threshold, a cheap proxy for goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines running, threshold %d", n, threshold)
		}
		return nil
	}
}
