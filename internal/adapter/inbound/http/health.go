package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger is implemented by storage backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthTimeout bounds the storage probe on /healthz.
const healthTimeout = 2 * time.Second

// HealthHandler reports process and storage liveness.
type HealthHandler struct {
	storage Pinger
}

// NewHealthHandler creates the health endpoint handler. A nil storage
// backend reports healthy on process liveness alone.
func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","storage":"unreachable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
