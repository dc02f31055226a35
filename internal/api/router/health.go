package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool and by redis clients wrapped in PingFunc.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness plus the state of each registered dependency.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: map[string]Pinger{}, timeout: 2 * time.Second}
}

// WithCheck registers a dependency; a nil pinger is ignored.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	if p != nil {
		h.checks[name] = p
	}
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	response := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			response[name] = "unavailable"
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
