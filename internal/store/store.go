// Package store declares the persistence collaborators the lifecycle
// services depend on. internal/store/postgres backs them with Postgres;
// internal/store/memory keeps everything in process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
)

var (
	// ErrNotFound is returned when the target row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrNotEligible is returned when a new upvote targets a ticket that
	// cannot be endorsed.
	ErrNotEligible = errors.New("store: ticket cannot be upvoted")
)

// TicketStore owns tickets.
type TicketStore interface {
	InsertTicket(ctx context.Context, t *models.Ticket) error
	// UpdateTicketContent replaces the owner-editable fields and the
	// attachment reference, bumping updated_at to at least now.
	UpdateTicketContent(ctx context.Context, id uuid.UUID, c models.TicketContent, attachmentRef *string, now time.Time) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Ticket, error)
	// DeleteTicket removes the ticket with its upvotes and responses.
	DeleteTicket(ctx context.Context, id uuid.UUID) error
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	QueryTickets(ctx context.Context, q lifecycle.Query) ([]*models.Ticket, error)
	// RecountUpvotes rewrites every cached upvote_count that disagrees with
	// the ledger and returns how many tickets were corrected.
	RecountUpvotes(ctx context.Context) (int, error)
}

// ResponseStore owns admin responses.
type ResponseStore interface {
	InsertAdminResponse(ctx context.Context, r *models.AdminResponse) error
	// ListAdminResponses returns a ticket's responses oldest first.
	ListAdminResponses(ctx context.Context, ticketID uuid.UUID) ([]*models.AdminResponse, error)
}

// UpvoteLedger owns (ticket, user) endorsements.
type UpvoteLedger interface {
	// ToggleUpvote removes the pair if present, otherwise records it, and
	// returns the resulting state with the count recomputed from the ledger.
	// It is atomic per ticket. Recording requires lifecycle.CanEndorse.
	ToggleUpvote(ctx context.Context, ticketID, userID uuid.UUID) (models.UpvoteState, error)
	UpvotedTicketIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// NotificationFeed owns per-user notifications.
type NotificationFeed interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications returns the newest notifications first.
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteRead(ctx context.Context, userID uuid.UUID) (int, error)
	// PurgeRead deletes read notifications created before cutoff, for all users.
	PurgeRead(ctx context.Context, cutoff time.Time) (int, error)
}

// StatusStore owns the global status banner.
type StatusStore interface {
	// CurrentStatus returns the most recently updated banner, or ErrNotFound.
	CurrentStatus(ctx context.Context) (*models.GlobalStatus, error)
	// UpsertStatus updates the current banner in place, or inserts the first one.
	UpsertStatus(ctx context.Context, s *models.GlobalStatus) (*models.GlobalStatus, error)
}

// RoleDirectory resolves session roles.
type RoleDirectory interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (lifecycle.Role, error)
	CountByRole(ctx context.Context, role lifecycle.Role) (int, error)
}

// Store bundles every collaborator behind one backend.
type Store interface {
	TicketStore
	ResponseStore
	UpvoteLedger
	NotificationFeed
	StatusStore
	RoleDirectory
	Ping(ctx context.Context) error
	Close()
}
