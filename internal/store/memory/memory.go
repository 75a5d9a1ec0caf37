// Package memory is an in-process implementation of store.Store. It backs
// STORE_BACKEND=memory for local development and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/store"
)

// Store keeps every table in maps guarded by one lock.
type Store struct {
	mu            sync.RWMutex
	tickets       map[uuid.UUID]*models.Ticket
	responses     map[uuid.UUID][]*models.AdminResponse
	upvotes       map[uuid.UUID]map[uuid.UUID]struct{}
	notifications map[uuid.UUID]*models.Notification
	status        *models.GlobalStatus
	roles         map[uuid.UUID]lifecycle.Role
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		tickets:       make(map[uuid.UUID]*models.Ticket),
		responses:     make(map[uuid.UUID][]*models.AdminResponse),
		upvotes:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		notifications: make(map[uuid.UUID]*models.Notification),
		roles:         make(map[uuid.UUID]lifecycle.Role),
	}
}

// SetRole registers a user with the given role.
func (s *Store) SetRole(userID uuid.UUID, role lifecycle.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

// --- tickets ---

func (s *Store) InsertTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[t.ID]; exists {
		return fmt.Errorf("insert ticket: duplicate id %s", t.ID)
	}
	s.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (s *Store) UpdateTicketContent(ctx context.Context, id uuid.UUID, c models.TicketContent, attachmentRef *string, now time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Title = c.Title
	t.Description = c.Description
	t.Category = c.Category
	t.Severity = c.Severity
	t.Visibility = c.Visibility
	t.AttachmentRef = cloneString(attachmentRef)
	t.UpdatedAt = latest(t.UpdatedAt, now)
	return cloneTicket(t), nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = latest(t.UpdatedAt, now)
	return cloneTicket(t), nil
}

func (s *Store) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tickets, id)
	delete(s.responses, id)
	delete(s.upvotes, id)
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (s *Store) QueryTickets(ctx context.Context, q lifecycle.Query) ([]*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		all = append(all, cloneTicket(t))
	}
	return q.Apply(all), nil
}

func (s *Store) RecountUpvotes(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fixed := 0
	for id, t := range s.tickets {
		if n := len(s.upvotes[id]); t.UpvoteCount != n {
			t.UpvoteCount = n
			fixed++
		}
	}
	return fixed, nil
}

// SetUpvoteCount overwrites the cached count without touching the ledger.
func (s *Store) SetUpvoteCount(id uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		t.UpvoteCount = n
	}
}

// --- responses ---

func (s *Store) InsertAdminResponse(ctx context.Context, r *models.AdminResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[r.TicketID]; !ok {
		return store.ErrNotFound
	}
	cp := *r
	s.responses[r.TicketID] = append(s.responses[r.TicketID], &cp)
	return nil
}

func (s *Store) ListAdminResponses(ctx context.Context, ticketID uuid.UUID) ([]*models.AdminResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AdminResponse, 0, len(s.responses[ticketID]))
	for _, r := range s.responses[ticketID] {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- upvotes ---

func (s *Store) ToggleUpvote(ctx context.Context, ticketID, userID uuid.UUID) (models.UpvoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return models.UpvoteState{}, store.ErrNotFound
	}

	voters := s.upvotes[ticketID]
	_, had := voters[userID]
	if had {
		delete(voters, userID)
	} else {
		if !lifecycle.CanEndorse(t) {
			return models.UpvoteState{}, store.ErrNotEligible
		}
		if voters == nil {
			voters = make(map[uuid.UUID]struct{})
			s.upvotes[ticketID] = voters
		}
		voters[userID] = struct{}{}
	}

	t.UpvoteCount = len(voters)
	return models.UpvoteState{TicketID: ticketID, Upvoted: !had, UpvoteCount: t.UpvoteCount}, nil
}

func (s *Store) UpvotedTicketIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for ticketID, voters := range s.upvotes {
		if _, ok := voters[userID]; ok {
			out = append(out, ticketID)
		}
	}
	return out, nil
}

// LedgerSize returns the number of upvote rows for a ticket.
func (s *Store) LedgerSize(ticketID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.upvotes[ticketID])
}

// --- notifications ---

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteRead(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && n.Read {
			delete(s.notifications, id)
			count++
		}
	}
	return count, nil
}

func (s *Store) PurgeRead(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.notifications {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			count++
		}
	}
	return count, nil
}

// --- global status ---

func (s *Store) CurrentStatus(ctx context.Context) (*models.GlobalStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == nil {
		return nil, store.ErrNotFound
	}
	cp := *s.status
	return &cp, nil
}

func (s *Store) UpsertStatus(ctx context.Context, gs *models.GlobalStatus) (*models.GlobalStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == nil {
		cp := *gs
		s.status = &cp
	} else {
		s.status.Message = gs.Message
		s.status.StatusType = gs.StatusType
		s.status.UpdatedBy = gs.UpdatedBy
		s.status.UpdatedAt = latest(s.status.UpdatedAt, gs.UpdatedAt)
	}
	cp := *s.status
	return &cp, nil
}

// --- roles ---

func (s *Store) RoleOf(ctx context.Context, userID uuid.UUID) (lifecycle.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return role, nil
}

func (s *Store) CountByRole(ctx context.Context, role lifecycle.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.roles {
		if r == role {
			count++
		}
	}
	return count, nil
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	cp := *t
	cp.AttachmentRef = cloneString(t.AttachmentRef)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
