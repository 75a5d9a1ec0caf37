package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/models"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

var startTime = time.Now()

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints
type HealthHandler struct {
	db       Pinger
	realtime Pinger
	logger   *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db, realtime Pinger, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{db: db, realtime: realtime, logger: logger}
}

// Check handles GET /api/v1/health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness probe). A realtime
// outage degrades the report but does not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	realtimeStatus := "connected"
	if h.realtime != nil {
		if err := h.realtime.Ping(ctx); err != nil {
			h.logger.Warnw("Realtime broker unreachable", "error", err)
			realtimeStatus = "disconnected"
		}
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warnw("Database unreachable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:   "not ready",
			Version:  Version,
			Database: "disconnected",
			Realtime: realtimeStatus,
		})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:   "ready",
		Version:  Version,
		Uptime:   time.Since(startTime).String(),
		Database: "connected",
		Realtime: realtimeStatus,
	})
}
