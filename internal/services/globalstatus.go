package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/store"
)

// GlobalStatusService handles the site-wide banner
type GlobalStatusService struct {
	store  store.Store
	events publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewGlobalStatusService creates a new global status service
func NewGlobalStatusService(st store.Store, broker realtime.Broker, logger *zap.SugaredLogger) *GlobalStatusService {
	return &GlobalStatusService{
		store:  st,
		events: publisher{broker: broker, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Current returns the banner, or nil when none has been published.
func (s *GlobalStatusService) Current(ctx context.Context) (*models.GlobalStatus, error) {
	gs, err := s.store.CurrentStatus(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("load the status banner", "no status has been published", err)
	}
	return gs, nil
}

// Publish updates the current banner, or creates the first one.
func (s *GlobalStatusService) Publish(ctx context.Context, actor lifecycle.Actor, in models.GlobalStatusInput) (*models.GlobalStatus, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := lifecycle.NormalizeGlobalStatus(&in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	gs, err := s.store.UpsertStatus(ctx, &models.GlobalStatus{
		ID:         uuid.New(),
		Message:    in.Message,
		StatusType: in.StatusType,
		UpdatedBy:  actor.UserID,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, storeError("publish the status banner", "no status has been published", err)
	}

	s.logger.Infow("Global status published",
		"status_id", gs.ID,
		"status_type", gs.StatusType,
		"admin_id", actor.UserID,
	)
	s.events.publish(ctx, realtime.Change{
		Table: realtime.TableGlobalStatus,
		Op:    realtime.OpUpdate,
		RowID: gs.ID,
		At:    now,
	})
	return gs, nil
}
