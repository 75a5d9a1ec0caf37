package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/realtime"
)

const (
	// KeepaliveInterval is how often an idle stream sends a comment line.
	KeepaliveInterval = 30 * time.Second

	// Changes queued per connection before new ones are dropped. A client
	// re-fetches on any event, so losing a burst tail is harmless.
	streamBuffer = 32
)

// RealtimeHandler streams row changes as Server-Sent Events
type RealtimeHandler struct {
	broker    realtime.Broker
	logger    *zap.SugaredLogger
	keepalive time.Duration
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(broker realtime.Broker, logger *zap.SugaredLogger) *RealtimeHandler {
	return &RealtimeHandler{broker: broker, logger: logger, keepalive: KeepaliveInterval}
}

// Stream handles GET /api/v1/realtime/{table}
func (h *RealtimeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	table, err := realtime.ParseTable(chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, h.logger, apperrors.NewNotFoundError(err.Error()))
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warnw("Could not clear write deadline", "error", err)
	}

	events := make(chan realtime.Change, streamBuffer)
	unsubscribe := h.broker.Subscribe(table, func(c realtime.Change) {
		if !c.VisibleTo(actor) {
			return
		}
		select {
		case events <- c:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warnw("Streaming not supported", "error", err)
		return
	}

	h.logger.Debugw("Realtime stream opened", "table", table, "user_id", actor.UserID)
	defer h.logger.Debugw("Realtime stream closed", "table", table, "user_id", actor.UserID)

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case c := <-events:
			payload, err := json.Marshal(c)
			if err != nil {
				h.logger.Errorw("Failed to encode change", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Op, payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
