// Package services contains the ticket lifecycle operations.
// Services are called by handlers; they enforce the lifecycle rules and talk
// to the store, attachment storage and the realtime broker.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/store"
)

const (
	msgTicketGone       = "this complaint no longer exists"
	msgNotificationGone = "this notification no longer exists"
)

// storeError maps a store failure to the error taxonomy handlers render.
// Anything the store cannot classify is treated as transient.
func storeError(op, missing string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError(missing)
	case apperrors.GetAppError(err) != nil:
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTransientError("the request timed out, please try again", err)
	default:
		return apperrors.NewTransientError(fmt.Sprintf("could not %s, please try again", op), err)
	}
}

func requireStudent(a lifecycle.Actor, msg string) error {
	if !a.IsStudent() {
		return apperrors.NewAuthorizationError(msg)
	}
	return nil
}

func requireAdmin(a lifecycle.Actor) error {
	if !a.IsAdmin() {
		return apperrors.NewAuthorizationError("admin access required")
	}
	return nil
}

// publisher sends realtime changes. Delivery is best effort: a failed
// publish is logged and never fails the operation that caused it.
type publisher struct {
	broker realtime.Broker
	logger *zap.SugaredLogger
}

func (p publisher) publish(ctx context.Context, c realtime.Change) {
	if p.broker == nil {
		return
	}
	if err := p.broker.Publish(ctx, c); err != nil {
		p.logger.Warnw("Realtime publish failed",
			"table", c.Table,
			"op", c.Op,
			"row_id", c.RowID,
			"error", err,
		)
	}
}

func ticketChange(t *models.Ticket, op realtime.Op, at time.Time) realtime.Change {
	return realtime.Change{
		Table:   realtime.TableTickets,
		Op:      op,
		RowID:   t.ID,
		OwnerID: t.CreatedBy,
		Public:  t.Visibility == models.VisibilityPublic,
		At:      at,
	}
}
