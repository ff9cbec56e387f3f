package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type requestLog struct {
	mu       sync.Mutex
	requests []string
}

func (l *requestLog) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, method+" "+path+" "+http.StatusText(status))
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "fedtpg_probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Add(3)

	rec := &requestLog{}
	h := NewHandler(reg, nil, rec, zaptest.NewLogger(t))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fedtpg_probe_total 3")

	assert.Equal(t, []string{"GET /metrics OK"}, rec.requests)
}

func TestHandler_Healthz(t *testing.T) {
	health := NewHealth()
	health.Register("database", func(context.Context) error { return nil })

	rec := &requestLog{}
	h := NewHandler(prometheus.NewRegistry(), health, rec, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok"}, resp.Checks)

	health.Register("redis", func(context.Context) error { return errors.New("connection refused") })
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["redis"])
	assert.Equal(t, "ok", resp.Checks["database"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{
		"GET /healthz OK",
		"GET /healthz Service Unavailable",
		"GET /missing Not Found",
	}, rec.requests)
}

func TestHealth_NoChecks(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealth().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "checks")
}
