package lifecycle

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/models"
)

// Filter is a conjunction of predicates over tickets. Zero-valued fields do
// not constrain the result.
type Filter struct {
	CreatedBy        *uuid.UUID
	ExcludeCreatedBy *uuid.UUID
	// RestrictIDs limits the result to IDs; with an empty IDs nothing matches.
	RestrictIDs   bool
	IDs           []uuid.UUID
	Visibility    *models.Visibility
	Statuses      []models.Status
	ExcludeStatus *models.Status
	Severity      *models.Severity
	// TitleContains is matched case-insensitively.
	TitleContains string
	// Search matches title or description, case-insensitively.
	Search       string
	CreatedFrom  *time.Time // inclusive
	CreatedUntil *time.Time // exclusive
}

// Matches reports whether t satisfies every predicate of f.
func (f Filter) Matches(t *models.Ticket) bool {
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.ExcludeCreatedBy != nil && t.CreatedBy == *f.ExcludeCreatedBy {
		return false
	}
	if f.RestrictIDs && !containsID(f.IDs, t.ID) {
		return false
	}
	if f.Visibility != nil && t.Visibility != *f.Visibility {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if f.ExcludeStatus != nil && t.Status == *f.ExcludeStatus {
		return false
	}
	if f.Severity != nil && t.Severity != *f.Severity {
		return false
	}
	if f.TitleContains != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.TitleContains)) {
		return false
	}
	if f.Search != "" && !containsFold(t.Title, f.Search) && !containsFold(t.Description, f.Search) {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedUntil != nil && !t.CreatedAt.Before(*f.CreatedUntil) {
		return false
	}
	return true
}

// Order names a result ordering policy.
type Order int

const (
	// OrderNewest sorts by created_at descending.
	OrderNewest Order = iota
	// OrderCommunity sorts by upvote_count then created_at, both descending.
	OrderCommunity
	// OrderTriage sorts by severity, upvote_count, created_at, all descending.
	OrderTriage
)

func (o Order) String() string {
	switch o {
	case OrderNewest:
		return "newest"
	case OrderCommunity:
		return "community"
	case OrderTriage:
		return "triage"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Less reports whether a sorts before b. Ties fall back to the ticket id so
// the order is total.
func (o Order) Less(a, b *models.Ticket) bool {
	if o == OrderTriage && a.Severity != b.Severity {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	if (o == OrderTriage || o == OrderCommunity) && a.UpvoteCount != b.UpvoteCount {
		return a.UpvoteCount > b.UpvoteCount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Sort orders tickets in place.
func (o Order) Sort(tickets []*models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return o.Less(tickets[i], tickets[j])
	})
}

// Query is a filtered, ordered, optionally limited ticket read.
type Query struct {
	Filter Filter
	Order  Order
	Limit  int // 0 means unlimited
}

// Apply runs q over an in-memory ticket set.
func (q Query) Apply(tickets []*models.Ticket) []*models.Ticket {
	out := make([]*models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if q.Filter.Matches(t) {
			out = append(out, t)
		}
	}
	q.Order.Sort(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// OwnerQuery selects every ticket the user filed, newest first.
func OwnerQuery(userID uuid.UUID) Query {
	return Query{
		Filter: Filter{CreatedBy: &userID},
		Order:  OrderNewest,
	}
}

// CommunityQuery selects public, unresolved tickets, most endorsed first,
// optionally narrowed to those whose title or description contains search.
func CommunityQuery(limit int, search string) Query {
	public := models.VisibilityPublic
	resolved := models.StatusResolved
	return Query{
		Filter: Filter{Visibility: &public, ExcludeStatus: &resolved, Search: strings.TrimSpace(search)},
		Order:  OrderCommunity,
		Limit:  limit,
	}
}

// FollowingQuery selects the tickets among upvoted that the user did not file
// and that are still public and active.
func FollowingQuery(userID uuid.UUID, upvoted []uuid.UUID) Query {
	public := models.VisibilityPublic
	return Query{
		Filter: Filter{
			RestrictIDs:      true,
			IDs:              upvoted,
			ExcludeCreatedBy: &userID,
			Visibility:       &public,
			Statuses:         []models.Status{models.StatusOpen, models.StatusInProgress},
		},
		Order: OrderNewest,
	}
}

// AdminFilter is the admin dashboard's search form.
type AdminFilter struct {
	Search   string
	Severity string // "" or "all" for any
	Date     string // YYYY-MM-DD, "" for any
}

// AdminQuery selects all tickets in triage order, narrowed by f. The date is
// a calendar day in loc.
func AdminQuery(f AdminFilter, loc *time.Location) (Query, error) {
	q := Query{Order: OrderTriage}

	q.Filter.TitleContains = strings.TrimSpace(f.Search)

	if f.Severity != "" && f.Severity != "all" {
		sev, err := models.ParseSeverity(f.Severity)
		if err != nil {
			return Query{}, apperrors.NewValidationError("severity", err.Error())
		}
		q.Filter.Severity = &sev
	}

	if f.Date != "" {
		if loc == nil {
			loc = time.UTC
		}
		day, err := time.ParseInLocation("2006-01-02", f.Date, loc)
		if err != nil {
			return Query{}, apperrors.NewValidationError("date", "date must be formatted as YYYY-MM-DD")
		}
		next := day.AddDate(0, 0, 1)
		q.Filter.CreatedFrom = &day
		q.Filter.CreatedUntil = &next
	}

	return q, nil
}

// SplitOwnerTickets partitions the owner's tickets into active and resolved.
func SplitOwnerTickets(tickets []*models.Ticket) (active, resolved []*models.Ticket) {
	active = []*models.Ticket{}
	resolved = []*models.Ticket{}
	for _, t := range tickets {
		switch {
		case t.Status.IsActive():
			active = append(active, t)
		case t.Status == models.StatusResolved:
			resolved = append(resolved, t)
		}
	}
	return active, resolved
}

// IsCommunityVisible is the community predicate for a single ticket.
func IsCommunityVisible(t *models.Ticket) bool {
	return t.Visibility == models.VisibilityPublic && t.Status != models.StatusResolved
}

// CanView reports whether a may read t: admins see everything, students see
// their own tickets and public ones.
func CanView(a Actor, t *models.Ticket) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Owns(t.CreatedBy) || t.Visibility == models.VisibilityPublic
}

// CanEndorse reports whether a new upvote may be recorded on t. Withdrawing
// an existing upvote is always allowed.
func CanEndorse(t *models.Ticket) bool {
	return t.Visibility == models.VisibilityPublic
}

// CheckEdit enforces owner-only edits and, under p, edits only while open.
func (p Policy) CheckEdit(a Actor, t *models.Ticket) error {
	if !a.IsStudent() || !a.Owns(t.CreatedBy) {
		return apperrors.NewAuthorizationError("only the student who filed this complaint can edit it")
	}
	if p.EditOnlyWhileOpen && t.Status != models.StatusOpen {
		return apperrors.NewValidationError("status", "only open complaints can be edited")
	}
	return nil
}

// CheckDelete enforces owner-only deletion at any status.
func CheckDelete(a Actor, t *models.Ticket) error {
	if !a.IsStudent() || !a.Owns(t.CreatedBy) {
		return apperrors.NewAuthorizationError("only the student who filed this complaint can delete it")
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.Status, s models.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
