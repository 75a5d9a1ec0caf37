// Package handlers contains HTTP request handlers for the ticket API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/middleware"
)

// maxJSONBody caps request bodies that carry no attachment.
const maxJSONBody = 64 << 10

type errorBody struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Step    string `json:"step,omitempty"`
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError renders err as the error envelope. Errors outside the
// taxonomy are logged and reported as internal errors.
func respondError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		logger.Errorw("Unhandled error", "error", err)
		appErr = apperrors.NewInternalError("something went wrong", err)
	}
	if appErr.Type == apperrors.ErrorTypeTransient || appErr.Type == apperrors.ErrorTypeInternal {
		logger.Warnw("Request failed", "type", appErr.Type, "error", err)
	}

	body := errorBody{
		Type:    string(appErr.Type),
		Title:   appErr.Title(),
		Message: appErr.Message,
		Field:   appErr.Field,
	}
	if stepErr := apperrors.GetStepError(err); stepErr != nil {
		body.Step = stepErr.Step
	}
	respondJSON(w, appErr.Code, map[string]errorBody{"error": body})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("", "request body is empty")
		}
		return apperrors.NewValidationError("", "invalid request body")
	}
	return nil
}

// actorOf returns the authenticated caller. Routes are mounted behind
// middleware.Authenticate, so a missing actor is a wiring error.
func actorOf(r *http.Request) (lifecycle.Actor, error) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		return lifecycle.Actor{}, apperrors.NewUnauthorizedError("authorization required")
	}
	return a, nil
}

// pathID parses the {id} URL parameter. A malformed id cannot name an
// existing row and is reported as not found.
func pathID(r *http.Request, msg string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperrors.NewNotFoundError(msg)
	}
	return id, nil
}
