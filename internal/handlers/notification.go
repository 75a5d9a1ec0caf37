package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/services"
)

// NotificationHandler handles the notification bell
type NotificationHandler struct {
	svc    *services.NotificationService
	logger *zap.SugaredLogger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *services.NotificationService, logger *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	feed, err := h.svc.List(r.Context(), actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "this notification no longer exists")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), actor, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// ClearRead handles DELETE /api/v1/notifications/read
func (h *NotificationHandler) ClearRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	n, err := h.svc.ClearRead(r.Context(), actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
