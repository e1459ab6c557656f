package handlers

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	postgres Pinger
}

func NewHealthHandler(postgres Pinger) *HealthHandler {
	return &HealthHandler{postgres: postgres}
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.postgres != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.postgres.Ping(ctx); err != nil {
			httperrors.Write(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
