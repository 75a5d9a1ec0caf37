package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/services"
)

const msgNoTicket = "this complaint no longer exists"

// TicketHandler handles student-facing ticket endpoints
type TicketHandler struct {
	tickets *services.TicketService
	upvotes *services.UpvoteService
	logger  *zap.SugaredLogger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ts *services.TicketService, us *services.UpvoteService, logger *zap.SugaredLogger) *TicketHandler {
	return &TicketHandler{tickets: ts, upvotes: us, logger: logger}
}

// ticketForm is the JSON shape of a submit or edit request.
type ticketForm struct {
	models.TicketContent
	RemoveAttachment bool `json:"remove_attachment,omitempty"`
}

// Submit handles POST /api/v1/tickets
func (h *TicketHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	form, upload, err := readTicketForm(w, r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	t, err := h.tickets.Submit(r.Context(), actor, form.TicketContent, upload)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// Mine handles GET /api/v1/tickets/mine
func (h *TicketHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	view, err := h.tickets.MyComplaints(r.Context(), actor)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Community handles GET /api/v1/tickets/community?q=&limit=
func (h *TicketHandler) Community(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, h.logger, apperrors.NewValidationError("limit", "limit must be a non-negative integer"))
			return
		}
	}

	entries, err := h.tickets.Community(r.Context(), actor, r.URL.Query().Get("q"), limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Get handles GET /api/v1/tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.tickets.Get(r.Context(), actor, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Edit handles PUT /api/v1/tickets/{id}
func (h *TicketHandler) Edit(w http.ResponseWriter, r *http.Request) {
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
	form, upload, err := readTicketForm(w, r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	t, err := h.tickets.Edit(r.Context(), actor, id, services.EditRequest{
		Content:          form.TicketContent,
		Upload:           upload,
		RemoveAttachment: form.RemoveAttachment,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tickets/{id}
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.tickets.Delete(r.Context(), actor, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upvote handles POST /api/v1/tickets/{id}/upvote
func (h *TicketHandler) Upvote(w http.ResponseWriter, r *http.Request) {
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

	state, err := h.upvotes.Toggle(r.Context(), actor, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Attachment handles GET /api/v1/tickets/{id}/attachment
func (h *TicketHandler) Attachment(w http.ResponseWriter, r *http.Request) {
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

	_, file, err := h.tickets.Attachment(r.Context(), actor, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	defer file.Body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file.Body); err != nil {
		h.logger.Warnw("Attachment stream interrupted", "ticket_id", id, "error", err)
	}
}

// readTicketForm accepts either a JSON body or a multipart form whose file
// part is named "attachment".
func readTicketForm(w http.ResponseWriter, r *http.Request) (ticketForm, *services.Upload, error) {
	var form ticketForm

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := decodeJSON(w, r, &form); err != nil {
			return form, nil, err
		}
		return form, nil, nil
	}

	// Slack for the text fields and multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, lifecycle.MaxAttachmentBytes+maxJSONBody)
	if err := r.ParseMultipartForm(lifecycle.MaxAttachmentBytes + maxJSONBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, nil, apperrors.NewValidationError("attachment", "file size must be less than 5MB")
		}
		return form, nil, apperrors.NewValidationError("body", "malformed multipart form")
	}

	form.Title = r.FormValue("title")
	form.Description = r.FormValue("description")
	form.Category = models.Category(r.FormValue("category"))
	form.Severity = models.Severity(r.FormValue("severity"))
	form.Visibility = models.Visibility(r.FormValue("visibility"))
	form.RemoveAttachment, _ = strconv.ParseBool(r.FormValue("remove_attachment"))

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, apperrors.NewValidationError("attachment", "could not read the attachment")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, lifecycle.MaxAttachmentBytes+1))
	if err != nil {
		return form, nil, apperrors.NewValidationError("attachment", "could not read the attachment")
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	return form, &services.Upload{Data: data, ContentType: contentType}, nil
}
