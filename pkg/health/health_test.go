package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) (int, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadyEndpointGate(t *testing.T) {
	h := New()

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])

	h.SetReady(true)
	code, body = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyEndpointFailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	h.AddReadinessCheck("redis", time.Second, func(context.Context) error {
		return nil
	})

	code, body := probe(t, h.ReadyEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "connection refused", checks["postgres"])
	assert.Equal(t, "ok", checks["redis"])
}

func TestLiveEndpointIgnoresReadyGate(t *testing.T) {
	h := New() // never marked ready
	h.AddLivenessCheck("noop", time.Second, func(context.Context) error { return nil })

	code, _ := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	code, _ := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
