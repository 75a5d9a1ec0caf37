package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
)

func TestSubmit_TitleBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := validContent(models.VisibilityPublic)
	content.Title = "WiFi"

	_, err := f.tickets.Submit(ctx, f.student, content, nil)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "title", appErr.Field)
	assert.Empty(t, f.allTickets(t), "a rejected submit writes nothing")
	assert.Empty(t, f.changes.all())

	content.Title = "WiFi."
	tk, err := f.tickets.Submit(ctx, f.student, content, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, tk.Status)
	assert.Zero(t, tk.UpvoteCount)
	assert.Equal(t, f.student.UserID, tk.CreatedBy)

	view, err := f.tickets.MyComplaints(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tk.ID}, ticketIDs(view.Active))
	assert.Empty(t, view.Resolved)
	assert.Empty(t, view.Following)
}

func TestSubmit_CleansMarkup(t *testing.T) {
	f := newFixture(t)

	content := validContent(models.VisibilityPrivate)
	content.Title = "  <b>Mess food</b> cold  "
	tk, err := f.tickets.Submit(context.Background(), f.student, content, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mess food cold", tk.Title)
}

func TestSubmit_OnlyStudents(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.Submit(context.Background(), f.admin, validContent(models.VisibilityPublic), nil)
	assert.True(t, apperrors.IsAuthorizationError(err))
	assert.Empty(t, f.allTickets(t))
}

func TestSubmit_Attachment(t *testing.T) {
	tests := []struct {
		name      string
		upload    *Upload
		putErr    error
		insertErr error
		check     func(t *testing.T, f *fixture, tk *models.Ticket, err error)
	}{
		{
			name:   "png stored with ticket",
			upload: &Upload{Data: pngBytes, ContentType: "image/png"},
			check: func(t *testing.T, f *fixture, tk *models.Ticket, err error) {
				require.NoError(t, err)
				require.True(t, tk.HasAttachment())
				assert.Equal(t, 1, f.files.count())
			},
		},
		{
			name:   "disallowed type rejected before any write",
			upload: &Upload{Data: []byte("GIF89a....."), ContentType: "image/gif"},
			check: func(t *testing.T, f *fixture, tk *models.Ticket, err error) {
				assert.Equal(t, "attachment", apperrors.GetAppError(err).Field)
				assert.Zero(t, f.files.count())
				assert.Empty(t, f.allTickets(t))
			},
		},
		{
			name:   "declared type must match content",
			upload: &Upload{Data: jpegBytes, ContentType: "image/png"},
			check: func(t *testing.T, f *fixture, tk *models.Ticket, err error) {
				assert.True(t, apperrors.IsValidationError(err))
				assert.Empty(t, f.allTickets(t))
			},
		},
		{
			name:   "upload failure means no insert",
			upload: &Upload{Data: pngBytes, ContentType: "image/png"},
			putErr: errBackendDown,
			check: func(t *testing.T, f *fixture, tk *models.Ticket, err error) {
				assert.True(t, apperrors.IsTransientError(err))
				assert.Empty(t, f.allTickets(t))
			},
		},
		{
			name:      "insert failure removes the uploaded file",
			upload:    &Upload{Data: pngBytes, ContentType: "image/png"},
			insertErr: errBackendDown,
			check: func(t *testing.T, f *fixture, tk *models.Ticket, err error) {
				assert.True(t, apperrors.IsTransientError(err))
				assert.Zero(t, f.files.count())
				assert.Len(t, f.files.removed, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.files.putErr = tt.putErr
			if tt.insertErr != nil {
				f.store.InsertTicketFunc = func(context.Context, *models.Ticket) error { return tt.insertErr }
			}
			tk, err := f.tickets.Submit(context.Background(), f.student, validContent(models.VisibilityPublic), tt.upload)
			tt.check(t, f, tk, err)
		})
	}
}

func TestCommunity_NeverShowsPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private := f.submit(t, f.student, models.VisibilityPrivate)
	public := f.submit(t, f.student, models.VisibilityPublic)

	for _, st := range []models.Status{models.StatusInProgress, models.StatusResolved} {
		_, err := f.tickets.AdminUpdate(ctx, f.admin, private.ID, models.AdminUpdateInput{Status: statusPtr(st)})
		require.NoError(t, err)

		entries, err := f.tickets.Community(ctx, f.other, "", 0)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, private.ID, e.ID)
		}
	}

	entries, err := f.tickets.Community(ctx, f.other, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, public.ID, entries[0].ID)
}

func TestCommunity_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	submit := func(actor lifecycle.Actor, title, description string, vis models.Visibility) *models.Ticket {
		content := validContent(vis)
		content.Title = title
		content.Description = description
		tk, err := f.tickets.Submit(ctx, actor, content, nil)
		require.NoError(t, err)
		f.tick()
		return tk
	}
	byTitle := submit(f.student, "Library WiFi drops", "Connection resets every few minutes.", models.VisibilityPublic)
	byDescription := submit(f.other, "Reading room outage", "The wifi router on floor two is dead.", models.VisibilityPublic)
	submit(f.student, "WiFi dead in my room", "Private report about the wifi.", models.VisibilityPrivate)
	submit(f.student, "Broken chair", "Chair in lab 3 has a cracked leg.", models.VisibilityPublic)

	entries, err := f.tickets.Community(ctx, f.other, "wIfI", 0)
	require.NoError(t, err)
	got := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		got[i] = e.ID
	}
	assert.ElementsMatch(t, []uuid.UUID{byTitle.ID, byDescription.ID}, got)

	entries, err = f.tickets.Community(ctx, f.other, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCommunity_MarksUpvotedByMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	liked := f.submit(t, f.student, models.VisibilityPublic)
	other := f.submit(t, f.student, models.VisibilityPublic)

	_, err := f.upvotes.Toggle(ctx, f.other, liked.ID)
	require.NoError(t, err)

	entries, err := f.tickets.Community(ctx, f.other, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, liked.ID, entries[0].ID, "most endorsed first")
	assert.True(t, entries[0].UpvotedByMe)
	assert.Equal(t, 1, entries[0].UpvoteCount)
	assert.Equal(t, other.ID, entries[1].ID)
	assert.False(t, entries[1].UpvotedByMe)
}

func TestAdminUpdate_ResolveMovesTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)

	detail, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{
		Status:   statusPtr(models.StatusResolved),
		Response: "Projector replaced.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, detail.Ticket.Status)
	assert.True(t, detail.Ticket.UpdatedAt.After(tk.UpdatedAt))
	require.Len(t, detail.Responses, 1)
	assert.Equal(t, f.admin.UserID, detail.Responses[0].AdminID)

	entries, err := f.tickets.Community(ctx, f.other, "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	view, err := f.tickets.MyComplaints(ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, view.Active)
	assert.Equal(t, []uuid.UUID{tk.ID}, ticketIDs(view.Resolved))

	feed, err := f.notifications.List(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1, "one notification per update")
	assert.Equal(t, `Your complaint "Broken projector" is now Resolved and an admin responded.`, feed.Items[0].Text)
	assert.Equal(t, "/my-complaints?ticket="+tk.ID.String(), feed.Items[0].Link)
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestAdminUpdate_NoOpWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)
	published := len(f.changes.all())

	tests := []models.AdminUpdateInput{
		{},
		{Response: "   "},
		{Status: statusPtr(models.StatusOpen)},
		{Status: statusPtr(models.StatusOpen), Response: "<p></p>"},
	}
	for _, in := range tests {
		detail, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, in)
		require.NoError(t, err)
		assert.Equal(t, tk.UpdatedAt, detail.Ticket.UpdatedAt)
		assert.Empty(t, detail.Responses)
	}

	assert.Len(t, f.changes.all(), published)
	feed, err := f.notifications.List(ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}

func TestAdminUpdate_ResponseStepFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPrivate)

	f.store.InsertAdminResponseFunc = func(context.Context, *models.AdminResponse) error { return errBackendDown }

	_, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{
		Status:   statusPtr(models.StatusInProgress),
		Response: "Looking into it",
	})
	require.Error(t, err)
	stepErr := apperrors.GetStepError(err)
	require.NotNil(t, stepErr)
	assert.Equal(t, "response", stepErr.Step)
	assert.True(t, apperrors.IsTransientError(err))

	stored, err := f.store.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status, "the status write is not rolled back")

	feed, err := f.notifications.List(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, `Your complaint "Broken projector" is now In Progress.`, feed.Items[0].Text)
}

func TestAdminUpdate_StatusStepFailureSkipsResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)

	f.store.UpdateTicketStatusFunc = func(context.Context, uuid.UUID, models.Status, time.Time) (*models.Ticket, error) {
		return nil, errBackendDown
	}

	_, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{
		Status:   statusPtr(models.StatusResolved),
		Response: "Done",
	})
	stepErr := apperrors.GetStepError(err)
	require.NotNil(t, stepErr)
	assert.Equal(t, "status", stepErr.Step)

	responses, err := f.store.ListAdminResponses(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestAdminUpdate_NotificationFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)
	f.store.InsertNotificationFunc = func(context.Context, *models.Notification) error { return errBackendDown }

	detail, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Response: "Noted"})
	require.NoError(t, err)
	assert.Len(t, detail.Responses, 1)
}

func TestAdminUpdate_Transitions(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	tk := f.submit(t, f.student, models.VisibilityPublic)
	_, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)

	_, err = f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusOpen)})
	assert.Equal(t, "status", apperrors.GetAppError(err).Field, "resolved is terminal by default")

	_, err = f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr("closed")})
	assert.True(t, apperrors.IsValidationError(err))

	lenient := newFixtureWithPolicy(t, lifecycle.Policy{StrictResolved: false, EditOnlyWhileOpen: true})
	tk = lenient.submit(t, lenient.student, models.VisibilityPublic)
	_, err = lenient.tickets.AdminUpdate(ctx, lenient.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)
	detail, err := lenient.tickets.AdminUpdate(ctx, lenient.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusOpen)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, detail.Ticket.Status)
}

func TestAdminUpdate_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	tk := f.submit(t, f.student, models.VisibilityPublic)

	_, err := f.tickets.AdminUpdate(context.Background(), f.student, tk.ID, models.AdminUpdateInput{
		Status: statusPtr(models.StatusResolved),
	})
	assert.True(t, apperrors.IsAuthorizationError(err))
}

func TestAdminUpdate_ResponsesInCreationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)

	for _, text := range []string{"first", "second", "third"} {
		_, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Response: text})
		require.NoError(t, err)
		f.tick()
	}

	detail, err := f.tickets.Get(ctx, f.student, tk.ID)
	require.NoError(t, err)
	require.Len(t, detail.Responses, 3)
	assert.Equal(t, "first", detail.Responses[0].Text)
	assert.Equal(t, "third", detail.Responses[2].Text)
}

func TestDelete_RemovesFromEveryView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)
	_, err := f.upvotes.Toggle(ctx, f.other, tk.ID)
	require.NoError(t, err)

	require.NoError(t, f.tickets.Delete(ctx, f.student, tk.ID))

	view, err := f.tickets.MyComplaints(ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, view.Active)
	following, err := f.tickets.MyComplaints(ctx, f.other)
	require.NoError(t, err)
	assert.Empty(t, following.Following)
	community, err := f.tickets.Community(ctx, f.other, "", 0)
	require.NoError(t, err)
	assert.Empty(t, community)
	queue, err := f.tickets.AdminQueue(ctx, f.admin, lifecycle.AdminFilter{})
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.upvotes.Toggle(ctx, f.other, tk.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	changes := f.changes.all()
	assert.Equal(t, realtime.OpDelete, changes[len(changes)-1].Op)
}

func TestDelete_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	public := f.submit(t, f.student, models.VisibilityPublic)
	private := f.submit(t, f.student, models.VisibilityPrivate)

	assert.True(t, apperrors.IsAuthorizationError(f.tickets.Delete(ctx, f.other, public.ID)))
	assert.True(t, apperrors.IsAuthorizationError(f.tickets.Delete(ctx, f.admin, public.ID)))
	assert.True(t, apperrors.IsNotFoundError(f.tickets.Delete(ctx, f.other, private.ID)),
		"private tickets are not disclosed")

	_, err := f.tickets.AdminUpdate(ctx, f.admin, private.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)
	assert.NoError(t, f.tickets.Delete(ctx, f.student, private.ID), "deletion is allowed at any status")
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	private := f.submit(t, f.student, models.VisibilityPrivate)

	_, err := f.tickets.Get(ctx, f.other, private.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	for _, a := range []lifecycle.Actor{f.student, f.admin} {
		detail, err := f.tickets.Get(ctx, a, private.ID)
		require.NoError(t, err)
		assert.Equal(t, private.ID, detail.Ticket.ID)
		assert.NotNil(t, detail.Responses)
	}

	_, err = f.tickets.Get(ctx, f.student, uuid.New())
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.submit(t, f.student, models.VisibilityPublic)

	content := validContent(models.VisibilityPrivate)
	content.Title = "Projector still broken"
	updated, err := f.tickets.Edit(ctx, f.student, tk.ID, EditRequest{Content: content})
	require.NoError(t, err)
	assert.Equal(t, "Projector still broken", updated.Title)
	assert.Equal(t, models.VisibilityPrivate, updated.Visibility)
	assert.True(t, updated.UpdatedAt.After(tk.UpdatedAt))
	assert.Equal(t, tk.CreatedBy, updated.CreatedBy)

	last := f.changes.all()[len(f.changes.all())-1]
	assert.True(t, last.Public, "community viewers learn the ticket went private")

	_, err = f.tickets.Edit(ctx, f.other, tk.ID, EditRequest{Content: content})
	assert.True(t, apperrors.IsNotFoundError(err))

	content.Title = "no"
	_, err = f.tickets.Edit(ctx, f.student, tk.ID, EditRequest{Content: content})
	assert.Equal(t, "title", apperrors.GetAppError(err).Field)
}

func TestEdit_OnlyWhileOpen(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	tk := f.submit(t, f.student, models.VisibilityPublic)
	_, err := f.tickets.AdminUpdate(ctx, f.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusInProgress)})
	require.NoError(t, err)
	_, err = f.tickets.Edit(ctx, f.student, tk.ID, EditRequest{Content: validContent(models.VisibilityPublic)})
	assert.Equal(t, "status", apperrors.GetAppError(err).Field)

	lenient := newFixtureWithPolicy(t, lifecycle.Policy{StrictResolved: true, EditOnlyWhileOpen: false})
	tk = lenient.submit(t, lenient.student, models.VisibilityPublic)
	_, err = lenient.tickets.AdminUpdate(ctx, lenient.admin, tk.ID, models.AdminUpdateInput{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)
	_, err = lenient.tickets.Edit(ctx, lenient.student, tk.ID, EditRequest{Content: validContent(models.VisibilityPublic)})
	assert.NoError(t, err)
}

func TestEdit_ReplacesAndRemovesAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk, err := f.tickets.Submit(ctx, f.student, validContent(models.VisibilityPublic), &Upload{Data: pngBytes, ContentType: "image/png"})
	require.NoError(t, err)
	oldRef := *tk.AttachmentRef

	updated, err := f.tickets.Edit(ctx, f.student, tk.ID, EditRequest{
		Content: validContent(models.VisibilityPublic),
		Upload:  &Upload{Data: jpegBytes, ContentType: "image/jpeg"},
	})
	require.NoError(t, err)
	require.True(t, updated.HasAttachment())
	assert.NotEqual(t, oldRef, *updated.AttachmentRef)
	assert.Equal(t, []string{oldRef}, f.files.removed)
	assert.Equal(t, 1, f.files.count())

	updated, err = f.tickets.Edit(ctx, f.student, tk.ID, EditRequest{
		Content:          validContent(models.VisibilityPublic),
		RemoveAttachment: true,
	})
	require.NoError(t, err)
	assert.False(t, updated.HasAttachment())
	assert.Zero(t, f.files.count())
}

func TestAttachment_VisibilityChecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk, err := f.tickets.Submit(ctx, f.student, validContent(models.VisibilityPrivate), &Upload{Data: pngBytes, ContentType: "image/png"})
	require.NoError(t, err)

	_, _, err = f.tickets.Attachment(ctx, f.other, tk.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	_, file, err := f.tickets.Attachment(ctx, f.admin, tk.ID)
	require.NoError(t, err)
	defer file.Body.Close()
	data, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	plain := f.submit(t, f.student, models.VisibilityPublic)
	_, _, err = f.tickets.Attachment(ctx, f.student, plain.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestAdminQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := validContent(models.VisibilityPublic)
	low.Title = "Leaking tap in hostel"
	low.Severity = models.SeverityLow
	lowTicket, err := f.tickets.Submit(ctx, f.student, low, nil)
	require.NoError(t, err)
	f.tick()

	critical := validContent(models.VisibilityPrivate)
	critical.Title = "Ragging incident in block C"
	critical.Severity = models.SeverityCritical
	criticalTicket, err := f.tickets.Submit(ctx, f.other, critical, nil)
	require.NoError(t, err)

	queue, err := f.tickets.AdminQueue(ctx, f.admin, lifecycle.AdminFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{criticalTicket.ID, lowTicket.ID}, ticketIDs(queue))

	queue, err = f.tickets.AdminQueue(ctx, f.admin, lifecycle.AdminFilter{Search: "HOSTEL"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{lowTicket.ID}, ticketIDs(queue))

	queue, err = f.tickets.AdminQueue(ctx, f.admin, lifecycle.AdminFilter{Date: "2026-03-09"})
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.tickets.AdminQueue(ctx, f.admin, lifecycle.AdminFilter{Severity: "urgent"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.tickets.AdminQueue(ctx, f.student, lifecycle.AdminFilter{})
	assert.True(t, apperrors.IsAuthorizationError(err))
}

func TestStoreErrorsAreTransient(t *testing.T) {
	f := newFixture(t)
	f.store.InsertTicketFunc = func(context.Context, *models.Ticket) error { return errBackendDown }

	_, err := f.tickets.Submit(context.Background(), f.student, validContent(models.VisibilityPublic), nil)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeTransient, appErr.Type)
	assert.ErrorIs(t, err, errBackendDown)
}
