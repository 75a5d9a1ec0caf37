package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/storage"
	"github.com/aawaaz/ticket-server/internal/store/memory"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

	errBackendDown = errors.New("connection reset by peer")
)

// faultyStore wraps the memory store so individual writes can be failed.
type faultyStore struct {
	*memory.Store

	InsertTicketFunc        func(ctx context.Context, t *models.Ticket) error
	UpdateTicketStatusFunc  func(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Ticket, error)
	InsertAdminResponseFunc func(ctx context.Context, r *models.AdminResponse) error
	InsertNotificationFunc  func(ctx context.Context, n *models.Notification) error
	RecountUpvotesFunc      func(ctx context.Context) (int, error)
}

func (f *faultyStore) InsertTicket(ctx context.Context, t *models.Ticket) error {
	if f.InsertTicketFunc != nil {
		return f.InsertTicketFunc(ctx, t)
	}
	return f.Store.InsertTicket(ctx, t)
}

func (f *faultyStore) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Ticket, error) {
	if f.UpdateTicketStatusFunc != nil {
		return f.UpdateTicketStatusFunc(ctx, id, status, now)
	}
	return f.Store.UpdateTicketStatus(ctx, id, status, now)
}

func (f *faultyStore) InsertAdminResponse(ctx context.Context, r *models.AdminResponse) error {
	if f.InsertAdminResponseFunc != nil {
		return f.InsertAdminResponseFunc(ctx, r)
	}
	return f.Store.InsertAdminResponse(ctx, r)
}

func (f *faultyStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	if f.InsertNotificationFunc != nil {
		return f.InsertNotificationFunc(ctx, n)
	}
	return f.Store.InsertNotification(ctx, n)
}

func (f *faultyStore) RecountUpvotes(ctx context.Context) (int, error) {
	if f.RecountUpvotesFunc != nil {
		return f.RecountUpvotesFunc(ctx)
	}
	return f.Store.RecountUpvotes(ctx)
}

// fakeFiles is an in-memory storage.Attachments.
type fakeFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	putErr  error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string][]byte)}
}

func (f *fakeFiles) Put(ctx context.Context, ownerID uuid.UUID, data []byte, info lifecycle.AttachmentInfo) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	ref := ownerID.String() + "/" + uuid.NewString() + info.Extension
	f.files[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (f *fakeFiles) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[ref]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", nil
}

func (f *fakeFiles) Remove(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[ref]; !ok {
		return storage.ErrNotFound
	}
	delete(f.files, ref)
	f.removed = append(f.removed, ref)
	return nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// changeLog records every published change.
type changeLog struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (l *changeLog) record(c realtime.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) all() []realtime.Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]realtime.Change(nil), l.changes...)
}

type fixture struct {
	store   *faultyStore
	files   *fakeFiles
	changes *changeLog
	clock   time.Time

	tickets       *TicketService
	upvotes       *UpvoteService
	notifications *NotificationService
	status        *GlobalStatusService
	analytics     *AnalyticsService

	student lifecycle.Actor
	other   lifecycle.Actor
	admin   lifecycle.Actor
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, lifecycle.DefaultPolicy())
}

func newFixtureWithPolicy(t *testing.T, policy lifecycle.Policy) *fixture {
	t.Helper()

	f := &fixture{
		store:   &faultyStore{Store: memory.New()},
		files:   newFakeFiles(),
		changes: &changeLog{},
		clock:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		student: lifecycle.Actor{UserID: uuid.New(), Role: lifecycle.RoleStudent},
		other:   lifecycle.Actor{UserID: uuid.New(), Role: lifecycle.RoleStudent},
		admin:   lifecycle.Actor{UserID: uuid.New(), Role: lifecycle.RoleAdmin},
	}
	for _, a := range []lifecycle.Actor{f.student, f.other, f.admin} {
		f.store.SetRole(a.UserID, a.Role)
	}

	broker := realtime.NewLocalBroker()
	for _, table := range realtime.Tables {
		broker.Subscribe(table, f.changes.record)
	}

	logger := zap.NewNop().Sugar()
	now := func() time.Time { return f.clock }

	f.tickets = NewTicketService(f.store, f.files, broker, policy, time.UTC, logger)
	f.tickets.now = now
	f.upvotes = NewUpvoteService(f.store, broker, logger)
	f.upvotes.now = now
	f.notifications = NewNotificationService(f.store, broker, logger)
	f.notifications.now = now
	f.status = NewGlobalStatusService(f.store, broker, logger)
	f.status.now = now
	f.analytics = NewAnalyticsService(f.store, time.UTC, logger)
	f.analytics.now = now
	return f
}

func (f *fixture) tick() {
	f.clock = f.clock.Add(time.Minute)
}

func validContent(vis models.Visibility) models.TicketContent {
	return models.TicketContent{
		Title:       "Broken projector",
		Description: "The projector in room 204 flickers during every lecture.",
		Category:    models.CategoryAcademicLabs,
		Severity:    models.SeverityMedium,
		Visibility:  vis,
	}
}

// submit files a ticket as actor and advances the clock.
func (f *fixture) submit(t *testing.T, actor lifecycle.Actor, vis models.Visibility) *models.Ticket {
	t.Helper()
	tk, err := f.tickets.Submit(context.Background(), actor, validContent(vis), nil)
	require.NoError(t, err)
	f.tick()
	return tk
}

func (f *fixture) allTickets(t *testing.T) []*models.Ticket {
	t.Helper()
	all, err := f.store.QueryTickets(context.Background(), lifecycle.Query{})
	require.NoError(t, err)
	return all
}

func statusPtr(s models.Status) *models.Status {
	return &s
}

func ticketIDs(tickets []*models.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}
