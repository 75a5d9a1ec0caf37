package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/services"
)

// AdminHandler handles the admin dashboard endpoints
type AdminHandler struct {
	tickets   *services.TicketService
	analytics *services.AnalyticsService
	logger    *zap.SugaredLogger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(ts *services.TicketService, as *services.AnalyticsService, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{tickets: ts, analytics: as, logger: logger}
}

// Queue handles GET /api/v1/admin/tickets?q=&severity=&date=
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	query := r.URL.Query()
	tickets, err := h.tickets.AdminQueue(r.Context(), actor, lifecycle.AdminFilter{
		Search:   query.Get("q"),
		Severity: query.Get("severity"),
		Date:     query.Get("date"),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// Update handles PATCH /api/v1/admin/tickets/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, msgNoTicket)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var in models.AdminUpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, h.logger, err)
		return
	}

	detail, err := h.tickets.AdminUpdate(r.Context(), actor, id, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Analytics handles GET /api/v1/admin/analytics
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	summary, err := h.analytics.Summary(r.Context(), actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
