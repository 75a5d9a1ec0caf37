package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/store"
)

// FeedSize is how many notifications the bell shows.
const FeedSize = 10

// NotificationService handles the per-user notification bell. Opening a
// notification marks it read; read notifications stay until the user clears
// them or retention purges them.
type NotificationService struct {
	store  store.Store
	events publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(st store.Store, broker realtime.Broker, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{
		store:  st,
		events: publisher{broker: broker, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// List returns the newest notifications and the total unread count.
func (s *NotificationService) List(ctx context.Context, actor lifecycle.Actor) (*models.NotificationList, error) {
	items, err := s.store.ListNotifications(ctx, actor.UserID, FeedSize)
	if err != nil {
		return nil, storeError("load notifications", msgNotificationGone, err)
	}
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, storeError("load notifications", msgNotificationGone, err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return &models.NotificationList{Items: items, UnreadCount: unread}, nil
}

// MarkRead marks one of the actor's notifications read. Another user's
// notification is reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) error {
	if err := s.store.MarkRead(ctx, id, actor.UserID); err != nil {
		return storeError("mark the notification read", msgNotificationGone, err)
	}
	s.changed(ctx, actor, realtime.OpUpdate, id)
	return nil
}

// MarkAllRead marks every unread notification of the actor read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor lifecycle.Actor) (int, error) {
	n, err := s.store.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, storeError("mark notifications read", msgNotificationGone, err)
	}
	if n > 0 {
		s.changed(ctx, actor, realtime.OpUpdate, uuid.Nil)
	}
	return n, nil
}

// ClearRead deletes the actor's read notifications.
func (s *NotificationService) ClearRead(ctx context.Context, actor lifecycle.Actor) (int, error) {
	n, err := s.store.DeleteRead(ctx, actor.UserID)
	if err != nil {
		return 0, storeError("clear notifications", msgNotificationGone, err)
	}
	if n > 0 {
		s.logger.Debugw("Read notifications cleared", "user_id", actor.UserID, "count", n)
		s.changed(ctx, actor, realtime.OpDelete, uuid.Nil)
	}
	return n, nil
}

func (s *NotificationService) changed(ctx context.Context, actor lifecycle.Actor, op realtime.Op, id uuid.UUID) {
	s.events.publish(ctx, realtime.Change{
		Table:   realtime.TableNotifications,
		Op:      op,
		RowID:   id,
		OwnerID: actor.UserID,
		At:      s.now().UTC(),
	})
}
