package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/services"
)

// StatusHandler serves the global status banner
type StatusHandler struct {
	svc    *services.GlobalStatusService
	logger *zap.SugaredLogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(svc *services.GlobalStatusService, logger *zap.SugaredLogger) *StatusHandler {
	return &StatusHandler{svc: svc, logger: logger}
}

// Current handles GET /api/v1/status. The body is null when no banner has
// been published.
func (h *StatusHandler) Current(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Current(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, gs)
}

// Publish handles PUT /api/v1/admin/status
func (h *StatusHandler) Publish(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in models.GlobalStatusInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, h.logger, err)
		return
	}

	gs, err := h.svc.Publish(r.Context(), actor, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, gs)
}
