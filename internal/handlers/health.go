package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// Pinger reports database reachability
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second, logger: logger}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health answers 200 when the database responds and 503 otherwise
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}
