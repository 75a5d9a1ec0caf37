package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/store"
)

// AnalyticsService computes the admin overview
type AnalyticsService struct {
	store  store.Store
	loc    *time.Location
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(st store.Store, loc *time.Location, logger *zap.SugaredLogger) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: st, loc: loc, logger: logger, now: time.Now}
}

// Summary aggregates every ticket. Counts are a snapshot, not a consistent
// read across tables.
func (s *AnalyticsService) Summary(ctx context.Context, actor lifecycle.Actor) (*models.AnalyticsSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	tickets, err := s.store.QueryTickets(ctx, lifecycle.Query{Order: lifecycle.OrderNewest})
	if err != nil {
		return nil, storeError("load analytics", msgTicketGone, err)
	}
	students, err := s.store.CountByRole(ctx, lifecycle.RoleStudent)
	if err != nil {
		return nil, storeError("load analytics", msgTicketGone, err)
	}

	summary := summarize(tickets, s.now().In(s.loc))
	summary.TotalStudents = students
	return summary, nil
}

// summarize is the pure part of Summary. "This month" starts at midnight on
// the first of now's month, in now's location.
func summarize(tickets []*models.Ticket, now time.Time) *models.AnalyticsSummary {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	byCategory := make(map[models.Category]int, len(models.Categories))
	bySeverity := make(map[models.Severity]int, len(models.Severities))
	var open, resolved, resolvedThisMonth int

	for _, t := range tickets {
		byCategory[t.Category]++
		bySeverity[t.Severity]++
		switch {
		case t.Status.IsActive():
			open++
		case t.Status == models.StatusResolved:
			resolved++
			if !t.UpdatedAt.Before(monthStart) {
				resolvedThisMonth++
			}
		}
	}

	summary := &models.AnalyticsSummary{
		TotalOpen:         open,
		ResolvedThisMonth: resolvedThisMonth,
		ByCategory:        make([]models.CountBucket, 0, len(models.Categories)),
		ByStatus: []models.CountBucket{
			{Label: "Open", Count: open},
			{Label: "Resolved", Count: resolved},
		},
		BySeverity: make([]models.CountBucket, 0, len(models.Severities)),
	}
	for _, c := range models.Categories {
		summary.ByCategory = append(summary.ByCategory, models.CountBucket{Label: string(c), Count: byCategory[c]})
	}
	for _, sev := range models.Severities {
		summary.BySeverity = append(summary.BySeverity, models.CountBucket{Label: string(sev), Count: bySeverity[sev]})
	}
	return summary
}
