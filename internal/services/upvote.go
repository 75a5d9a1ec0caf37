package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/store"
)

// UpvoteService toggles "Me Too" endorsements
type UpvoteService struct {
	store  store.Store
	events publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewUpvoteService creates a new upvote service
func NewUpvoteService(st store.Store, broker realtime.Broker, logger *zap.SugaredLogger) *UpvoteService {
	return &UpvoteService{
		store:  st,
		events: publisher{broker: broker, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Toggle removes the actor's upvote if present, otherwise records one. The
// returned count is recomputed from the ledger.
func (s *UpvoteService) Toggle(ctx context.Context, actor lifecycle.Actor, ticketID uuid.UUID) (models.UpvoteState, error) {
	if err := requireStudent(actor, "only students can upvote complaints"); err != nil {
		return models.UpvoteState{}, err
	}

	t, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.UpvoteState{}, storeError("load the complaint", msgTicketGone, err)
	}
	if !lifecycle.CanView(actor, t) {
		return models.UpvoteState{}, apperrors.NewNotFoundError(msgTicketGone)
	}

	state, err := s.store.ToggleUpvote(ctx, ticketID, actor.UserID)
	if errors.Is(err, store.ErrNotEligible) {
		return models.UpvoteState{}, apperrors.NewValidationError("visibility", "only public complaints can be upvoted")
	}
	if err != nil {
		return models.UpvoteState{}, storeError("update your upvote", msgTicketGone, err)
	}

	s.logger.Debugw("Upvote toggled",
		"ticket_id", ticketID,
		"user_id", actor.UserID,
		"upvoted", state.Upvoted,
		"count", state.UpvoteCount,
	)
	s.events.publish(ctx, ticketChange(t, realtime.OpUpdate, s.now().UTC()))
	return state, nil
}
