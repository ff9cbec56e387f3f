package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPRecorder records served requests. *metrics.Collector implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// HealthCheck probes one dependency, for example the snapshot database.
type HealthCheck func(ctx context.Context) error

// Health aggregates named health checks for /healthz.
type Health struct {
	mu     sync.RWMutex
	checks map[string]HealthCheck
	start  time.Time
}

// NewHealth creates an empty health registry.
func NewHealth() *Health {
	return &Health{checks: make(map[string]HealthCheck), start: time.Now()}
}

// Register adds or replaces a check.
func (h *Health) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP runs every check and answers 200 when all pass, 503 otherwise.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]HealthCheck, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	resp := healthResponse{Status: "ok", Uptime: time.Since(h.start).Truncate(time.Second).String()}
	status := http.StatusOK
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for i, name := range names {
		if err := checks[i](r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// NewHandler builds the ops mux: /metrics served from gatherer (the default
// registry when nil) and /healthz from health.
func NewHandler(gatherer prometheus.Gatherer, health *Health, recorder HTTPRecorder, logger *zap.Logger) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if health == nil {
		health = NewHealth()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return instrument(mux, recorder, logger)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler, recorder HTTPRecorder, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		if recorder != nil {
			recorder.RecordHTTPRequest(r.Method, r.URL.Path, sw.status, duration)
		}
		logger.Debug("ops request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", duration),
		)
	})
}
