package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/models"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func ticketFixture(owner uuid.UUID, status models.Status, vis models.Visibility) *models.Ticket {
	return &models.Ticket{
		ID:          uuid.New(),
		Title:       "Broken projector",
		Description: "Projector in room 204 flickers constantly.",
		Category:    models.CategoryInfrastructureWifi,
		Severity:    models.SeverityMedium,
		Status:      status,
		Visibility:  vis,
		CreatedBy:   owner,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
}

func ids(tickets []*models.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func TestCommunityQuery_NeverReturnsPrivate(t *testing.T) {
	owner := uuid.New()
	var all []*models.Ticket
	for _, st := range models.Statuses {
		all = append(all, ticketFixture(owner, st, models.VisibilityPrivate))
		all = append(all, ticketFixture(owner, st, models.VisibilityPublic))
	}

	got := CommunityQuery(0, "").Apply(all)

	require.Len(t, got, 2)
	for _, tk := range got {
		assert.Equal(t, models.VisibilityPublic, tk.Visibility)
		assert.NotEqual(t, models.StatusResolved, tk.Status)
		assert.True(t, IsCommunityVisible(tk))
	}
}

func TestCommunityQuery_OrderAndLimit(t *testing.T) {
	owner := uuid.New()
	popular := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)
	popular.UpvoteCount = 7
	fresh := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)
	fresh.UpvoteCount = 2
	fresh.CreatedAt = baseTime.Add(time.Hour)
	stale := ticketFixture(owner, models.StatusInProgress, models.VisibilityPublic)
	stale.UpvoteCount = 2

	got := CommunityQuery(0, "").Apply([]*models.Ticket{stale, fresh, popular})
	assert.Equal(t, []uuid.UUID{popular.ID, fresh.ID, stale.ID}, ids(got))

	got = CommunityQuery(2, "").Apply([]*models.Ticket{stale, fresh, popular})
	assert.Equal(t, []uuid.UUID{popular.ID, fresh.ID}, ids(got))
}

func TestCommunityQuery_Search(t *testing.T) {
	owner := uuid.New()
	byTitle := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)
	byTitle.Title = "Hostel WiFi down"
	byDescription := ticketFixture(owner, models.StatusInProgress, models.VisibilityPublic)
	byDescription.Description = "No signal anywhere in the hostel since Monday."
	hidden := ticketFixture(owner, models.StatusOpen, models.VisibilityPrivate)
	hidden.Title = "Hostel water leak"
	unrelated := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)

	got := CommunityQuery(0, "  HOSTEL ").Apply([]*models.Ticket{byTitle, byDescription, hidden, unrelated})

	assert.ElementsMatch(t, []uuid.UUID{byTitle.ID, byDescription.ID}, ids(got))
}

func TestAdminQuery_TriageOrder(t *testing.T) {
	owner := uuid.New()
	low := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)
	low.Severity = models.SeverityLow
	low.UpvoteCount = 50
	critical := ticketFixture(owner, models.StatusOpen, models.VisibilityPrivate)
	critical.Severity = models.SeverityCritical
	mediumPopular := ticketFixture(owner, models.StatusResolved, models.VisibilityPublic)
	mediumPopular.UpvoteCount = 3
	mediumNew := ticketFixture(owner, models.StatusOpen, models.VisibilityPrivate)
	mediumNew.CreatedAt = baseTime.Add(time.Minute)

	q, err := AdminQuery(AdminFilter{}, time.UTC)
	require.NoError(t, err)

	got := q.Apply([]*models.Ticket{low, mediumNew, critical, mediumPopular})
	assert.Equal(t, []uuid.UUID{critical.ID, mediumPopular.ID, mediumNew.ID, low.ID}, ids(got))
}

func TestAdminQuery_Filters(t *testing.T) {
	owner := uuid.New()
	wifi := ticketFixture(owner, models.StatusOpen, models.VisibilityPrivate)
	wifi.Title = "WiFi drops in hostel B"
	wifi.Severity = models.SeverityCritical
	mess := ticketFixture(owner, models.StatusOpen, models.VisibilityPublic)
	mess.Title = "Mess food cold"
	mess.CreatedAt = baseTime.AddDate(0, 0, 1)
	all := []*models.Ticket{wifi, mess}

	q, err := AdminQuery(AdminFilter{Search: "wifi"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{wifi.ID}, ids(q.Apply(all)))

	q, err = AdminQuery(AdminFilter{Severity: "critical"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{wifi.ID}, ids(q.Apply(all)))

	q, err = AdminQuery(AdminFilter{Severity: "all", Date: "2026-03-11"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mess.ID}, ids(q.Apply(all)))

	_, err = AdminQuery(AdminFilter{Severity: "urgent"}, time.UTC)
	assert.Equal(t, "severity", apperrors.GetAppError(err).Field)

	_, err = AdminQuery(AdminFilter{Date: "11/03/2026"}, time.UTC)
	assert.Equal(t, "date", apperrors.GetAppError(err).Field)
}

func TestAdminQuery_DayInBusinessTimezone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	tk := ticketFixture(uuid.New(), models.StatusOpen, models.VisibilityPublic)
	// 20:00 UTC on the 10th is 01:30 on the 11th in IST.
	tk.CreatedAt = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	q, err := AdminQuery(AdminFilter{Date: "2026-03-11"}, loc)
	require.NoError(t, err)
	assert.Len(t, q.Apply([]*models.Ticket{tk}), 1)

	q, err = AdminQuery(AdminFilter{Date: "2026-03-10"}, loc)
	require.NoError(t, err)
	assert.Empty(t, q.Apply([]*models.Ticket{tk}))
}

func TestFollowingQuery(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	mine := ticketFixture(me, models.StatusOpen, models.VisibilityPublic)
	followed := ticketFixture(other, models.StatusInProgress, models.VisibilityPublic)
	resolved := ticketFixture(other, models.StatusResolved, models.VisibilityPublic)
	nowPrivate := ticketFixture(other, models.StatusOpen, models.VisibilityPrivate)
	notUpvoted := ticketFixture(other, models.StatusOpen, models.VisibilityPublic)
	all := []*models.Ticket{mine, followed, resolved, nowPrivate, notUpvoted}

	upvoted := []uuid.UUID{mine.ID, followed.ID, resolved.ID, nowPrivate.ID}
	assert.Equal(t, []uuid.UUID{followed.ID}, ids(FollowingQuery(me, upvoted).Apply(all)))
	assert.Empty(t, FollowingQuery(me, nil).Apply(all))
}

func TestOwnerQueryAndSplit(t *testing.T) {
	me := uuid.New()
	open := ticketFixture(me, models.StatusOpen, models.VisibilityPrivate)
	progress := ticketFixture(me, models.StatusInProgress, models.VisibilityPublic)
	progress.CreatedAt = baseTime.Add(time.Hour)
	done := ticketFixture(me, models.StatusResolved, models.VisibilityPublic)
	foreign := ticketFixture(uuid.New(), models.StatusOpen, models.VisibilityPublic)

	mine := OwnerQuery(me).Apply([]*models.Ticket{open, progress, done, foreign})
	require.Len(t, mine, 3)
	assert.Equal(t, progress.ID, mine[0].ID)

	active, resolved := SplitOwnerTickets(mine)
	assert.ElementsMatch(t, []uuid.UUID{open.ID, progress.ID}, ids(active))
	assert.Equal(t, []uuid.UUID{done.ID}, ids(resolved))
}

func TestCanViewAndPermissions(t *testing.T) {
	owner := Actor{UserID: uuid.New(), Role: RoleStudent}
	stranger := Actor{UserID: uuid.New(), Role: RoleStudent}
	admin := Actor{UserID: uuid.New(), Role: RoleAdmin}

	private := ticketFixture(owner.UserID, models.StatusOpen, models.VisibilityPrivate)
	public := ticketFixture(owner.UserID, models.StatusOpen, models.VisibilityPublic)

	assert.True(t, CanView(owner, private))
	assert.True(t, CanView(admin, private))
	assert.False(t, CanView(stranger, private))
	assert.True(t, CanView(stranger, public))

	assert.True(t, CanEndorse(public))
	assert.False(t, CanEndorse(private))

	p := DefaultPolicy()
	assert.NoError(t, p.CheckEdit(owner, private))
	assert.True(t, apperrors.IsAuthorizationError(p.CheckEdit(stranger, public)))
	assert.True(t, apperrors.IsAuthorizationError(p.CheckEdit(admin, public)))

	private.Status = models.StatusInProgress
	assert.True(t, apperrors.IsValidationError(p.CheckEdit(owner, private)))
	assert.NoError(t, Policy{EditOnlyWhileOpen: false}.CheckEdit(owner, private))

	private.Status = models.StatusResolved
	assert.NoError(t, CheckDelete(owner, private))
	assert.True(t, apperrors.IsAuthorizationError(CheckDelete(stranger, public)))
	assert.True(t, apperrors.IsAuthorizationError(CheckDelete(admin, public)))
}
