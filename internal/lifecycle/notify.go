package lifecycle

import (
	"fmt"

	"github.com/aawaaz/ticket-server/internal/models"
)

// UpdateOutcome records which writes an admin update actually performed.
type UpdateOutcome struct {
	StatusChanged bool
	NewStatus     models.Status
	Responded     bool
}

// Wrote reports whether the update persisted anything.
func (o UpdateOutcome) Wrote() bool {
	return o.StatusChanged || o.Responded
}

// TicketLink is the owner-facing location of a ticket.
func TicketLink(t *models.Ticket) string {
	return fmt.Sprintf("/my-complaints?ticket=%s", t.ID)
}

// NotificationFor returns the single notification an admin update owes the
// ticket owner, or nil when nothing was written or the owner is the actor.
// The returned value has no ID or timestamp; the feed assigns those.
func NotificationFor(t *models.Ticket, actor Actor, o UpdateOutcome) *models.Notification {
	if !o.Wrote() || actor.Owns(t.CreatedBy) {
		return nil
	}

	var text string
	switch {
	case o.StatusChanged && o.Responded:
		text = fmt.Sprintf("Your complaint %q is now %s and an admin responded.", t.Title, o.NewStatus.Label())
	case o.StatusChanged:
		text = fmt.Sprintf("Your complaint %q is now %s.", t.Title, o.NewStatus.Label())
	default:
		text = fmt.Sprintf("An admin responded to your complaint %q.", t.Title)
	}

	return &models.Notification{
		UserID: t.CreatedBy,
		Text:   text,
		Link:   TicketLink(t),
	}
}
