// Package models defines the data structures used across the application.
// These map to the Postgres schema in internal/database/migrations.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is a filed complaint.
type Ticket struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Category      Category   `json:"category" db:"category"`
	Severity      Severity   `json:"severity" db:"severity"`
	Status        Status     `json:"status" db:"status"`
	Visibility    Visibility `json:"visibility" db:"visibility"`
	UpvoteCount   int        `json:"upvote_count" db:"upvote_count"`
	AttachmentRef *string    `json:"attachment_ref,omitempty" db:"attachment_ref"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasAttachment reports whether the ticket points at a stored file.
func (t *Ticket) HasAttachment() bool {
	return t.AttachmentRef != nil && *t.AttachmentRef != ""
}

// TicketContent is the owner-editable part of a ticket.
type TicketContent struct {
	Title       string     `json:"title" validate:"min=5,max=80"`
	Description string     `json:"description" validate:"min=10,max=5000"`
	Category    Category   `json:"category" validate:"required,oneof=academic_labs infrastructure_wifi hostel_mess sanitation_hygiene administrative other"`
	Severity    Severity   `json:"severity" validate:"required,oneof=low medium critical"`
	Visibility  Visibility `json:"visibility" validate:"required,oneof=private public"`
}

// AdminResponse is an admin's immutable reply on a ticket.
type AdminResponse struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TicketID  uuid.UUID `json:"ticket_id" db:"ticket_id"`
	AdminID   uuid.UUID `json:"admin_id" db:"admin_id"`
	Text      string    `json:"text" db:"response_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UpvoteState is the ledger state of one (ticket, user) pair after a toggle.
type UpvoteState struct {
	TicketID    uuid.UUID `json:"ticket_id"`
	Upvoted     bool      `json:"upvoted"`
	UpvoteCount int       `json:"upvote_count"`
}

// Notification is a short alert addressed to one user.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Text      string    `json:"text" db:"message"`
	Link      string    `json:"link" db:"link"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GlobalStatus is the site-wide banner message.
type GlobalStatus struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Message    string     `json:"message" db:"message"`
	StatusType StatusType `json:"status_type" db:"status_type"`
	UpdatedBy  uuid.UUID  `json:"updated_by" db:"updated_by"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// GlobalStatusInput is the request body for publishing the banner.
type GlobalStatusInput struct {
	Message    string     `json:"message" validate:"min=1,max=200"`
	StatusType StatusType `json:"status_type" validate:"required,oneof=info warning critical"`
}

// AdminUpdateInput is the request body for an admin triage action.
type AdminUpdateInput struct {
	Status   *Status `json:"status,omitempty"`
	Response string  `json:"response,omitempty"`
}

// TicketDetail is a ticket with its responses in creation order.
type TicketDetail struct {
	Ticket    *Ticket          `json:"ticket"`
	Responses []*AdminResponse `json:"responses"`
}

// OwnerView is the "My Complaints" projection.
type OwnerView struct {
	Active    []*Ticket `json:"active"`
	Resolved  []*Ticket `json:"resolved"`
	Following []*Ticket `json:"following"`
}

// CommunityEntry is a community ticket annotated for the viewer.
type CommunityEntry struct {
	*Ticket
	UpvotedByMe bool `json:"upvoted_by_me"`
}

// NotificationList is the bell feed.
type NotificationList struct {
	Items       []*Notification `json:"items"`
	UnreadCount int             `json:"unread_count"`
}

// CountBucket is one bar or slice of an analytics chart.
type CountBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AnalyticsSummary is the admin overview of platform health.
type AnalyticsSummary struct {
	TotalOpen         int           `json:"total_open"`
	ResolvedThisMonth int           `json:"resolved_this_month"`
	TotalStudents     int           `json:"total_students"`
	ByCategory        []CountBucket `json:"by_category"`
	ByStatus          []CountBucket `json:"by_status"`
	BySeverity        []CountBucket `json:"by_severity"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
	Realtime string `json:"realtime,omitempty"`
}
