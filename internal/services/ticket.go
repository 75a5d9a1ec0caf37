package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/storage"
	"github.com/aawaaz/ticket-server/internal/store"
)

// Upload is an attachment as received from the client.
type Upload struct {
	Data        []byte
	ContentType string
}

// TicketService handles the ticket lifecycle
type TicketService struct {
	store  store.Store
	files  storage.Attachments
	policy lifecycle.Policy
	loc    *time.Location
	events publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewTicketService creates a new ticket service. loc is the business
// timezone used by the admin day filter.
func NewTicketService(st store.Store, files storage.Attachments, broker realtime.Broker,
	policy lifecycle.Policy, loc *time.Location, logger *zap.SugaredLogger) *TicketService {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketService{
		store:  st,
		files:  files,
		policy: policy,
		loc:    loc,
		events: publisher{broker: broker, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Submit files a new ticket for a student. Content and attachment are fully
// validated before anything is written; the ticket is only inserted once the
// attachment is stored.
func (s *TicketService) Submit(ctx context.Context, actor lifecycle.Actor, content models.TicketContent, upload *Upload) (*models.Ticket, error) {
	if err := requireStudent(actor, "only students can file complaints"); err != nil {
		return nil, err
	}
	if err := lifecycle.NormalizeContent(&content); err != nil {
		return nil, err
	}
	info, err := inspectUpload(upload)
	if err != nil {
		return nil, err
	}

	var ref *string
	if upload != nil {
		stored, err := s.files.Put(ctx, actor.UserID, upload.Data, *info)
		if err != nil {
			s.logger.Errorw("Attachment upload failed", "user_id", actor.UserID, "error", err)
			return nil, apperrors.NewTransientError("could not upload the attachment, please try again", err)
		}
		ref = &stored
	}

	now := s.now().UTC()
	t := &models.Ticket{
		ID:            uuid.New(),
		Title:         content.Title,
		Description:   content.Description,
		Category:      content.Category,
		Severity:      content.Severity,
		Status:        models.StatusOpen,
		Visibility:    content.Visibility,
		UpvoteCount:   0,
		AttachmentRef: ref,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertTicket(ctx, t); err != nil {
		if ref != nil {
			s.discardAttachment(ctx, *ref)
		}
		return nil, storeError("save your complaint", msgTicketGone, err)
	}

	s.logger.Infow("Ticket submitted",
		"ticket_id", t.ID,
		"category", t.Category,
		"severity", t.Severity,
		"visibility", t.Visibility,
	)
	s.events.publish(ctx, ticketChange(t, realtime.OpInsert, now))
	return t, nil
}

// EditRequest is an owner edit. Upload replaces the attachment;
// RemoveAttachment drops it when no upload is given.
type EditRequest struct {
	Content          models.TicketContent
	Upload           *Upload
	RemoveAttachment bool
}

// Edit replaces the owner-editable fields of a ticket.
func (s *TicketService) Edit(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, req EditRequest) (*models.Ticket, error) {
	current, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckEdit(actor, current); err != nil {
		return nil, err
	}

	content := req.Content
	if err := lifecycle.NormalizeContent(&content); err != nil {
		return nil, err
	}
	info, err := inspectUpload(req.Upload)
	if err != nil {
		return nil, err
	}

	ref := current.AttachmentRef
	var uploaded *string
	switch {
	case req.Upload != nil:
		stored, err := s.files.Put(ctx, actor.UserID, req.Upload.Data, *info)
		if err != nil {
			s.logger.Errorw("Attachment upload failed", "ticket_id", id, "error", err)
			return nil, apperrors.NewTransientError("could not upload the attachment, please try again", err)
		}
		uploaded = &stored
		ref = uploaded
	case req.RemoveAttachment:
		ref = nil
	}

	now := s.now().UTC()
	updated, err := s.store.UpdateTicketContent(ctx, id, content, ref, now)
	if err != nil {
		if uploaded != nil {
			s.discardAttachment(ctx, *uploaded)
		}
		return nil, storeError("save your changes", msgTicketGone, err)
	}

	if current.HasAttachment() && (ref == nil || *ref != *current.AttachmentRef) {
		s.discardAttachment(ctx, *current.AttachmentRef)
	}

	s.logger.Infow("Ticket edited", "ticket_id", id, "visibility", updated.Visibility)

	change := ticketChange(updated, realtime.OpUpdate, now)
	// A ticket leaving the community feed must still reach community viewers.
	change.Public = change.Public || current.Visibility == models.VisibilityPublic
	s.events.publish(ctx, change)
	return updated, nil
}

// Delete removes a ticket with its upvotes and responses. Owners may delete
// at any status.
func (s *TicketService) Delete(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) error {
	t, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckDelete(actor, t); err != nil {
		return err
	}

	if err := s.store.DeleteTicket(ctx, id); err != nil {
		return storeError("delete the complaint", msgTicketGone, err)
	}
	if t.HasAttachment() {
		s.discardAttachment(ctx, *t.AttachmentRef)
	}

	s.logger.Infow("Ticket deleted", "ticket_id", id, "status", t.Status)
	s.events.publish(ctx, ticketChange(t, realtime.OpDelete, s.now().UTC()))
	return nil
}

// Get returns a ticket with its responses, oldest first.
func (s *TicketService) Get(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (*models.TicketDetail, error) {
	t, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, t)
}

// Attachment opens the stored file of a ticket the actor may view.
func (s *TicketService) Attachment(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (*models.Ticket, *storage.File, error) {
	t, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if !t.HasAttachment() {
		return nil, nil, apperrors.NewNotFoundError("this complaint has no attachment")
	}
	rc, contentType, err := s.files.Open(ctx, *t.AttachmentRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperrors.NewNotFoundError("the attachment is no longer available")
		}
		return nil, nil, apperrors.NewTransientError("could not load the attachment, please try again", err)
	}
	return t, &storage.File{Body: rc, ContentType: contentType}, nil
}

// MyComplaints returns the actor's own tickets split by status, plus the
// tickets they follow through an upvote.
func (s *TicketService) MyComplaints(ctx context.Context, actor lifecycle.Actor) (*models.OwnerView, error) {
	mine, err := s.store.QueryTickets(ctx, lifecycle.OwnerQuery(actor.UserID))
	if err != nil {
		return nil, storeError("load your complaints", msgTicketGone, err)
	}
	active, resolved := lifecycle.SplitOwnerTickets(mine)

	upvoted, err := s.store.UpvotedTicketIDs(ctx, actor.UserID)
	if err != nil {
		return nil, storeError("load followed complaints", msgTicketGone, err)
	}
	following := []*models.Ticket{}
	if len(upvoted) > 0 {
		following, err = s.store.QueryTickets(ctx, lifecycle.FollowingQuery(actor.UserID, upvoted))
		if err != nil {
			return nil, storeError("load followed complaints", msgTicketGone, err)
		}
	}

	return &models.OwnerView{Active: active, Resolved: resolved, Following: following}, nil
}

// Community returns public, unresolved tickets, most endorsed first, marked
// with whether the actor has upvoted each one. A non-empty search keeps only
// tickets whose title or description contains it.
func (s *TicketService) Community(ctx context.Context, actor lifecycle.Actor, search string, limit int) ([]*models.CommunityEntry, error) {
	tickets, err := s.store.QueryTickets(ctx, lifecycle.CommunityQuery(limit, search))
	if err != nil {
		return nil, storeError("load the community feed", msgTicketGone, err)
	}

	upvoted, err := s.store.UpvotedTicketIDs(ctx, actor.UserID)
	if err != nil {
		return nil, storeError("load the community feed", msgTicketGone, err)
	}
	mine := make(map[uuid.UUID]bool, len(upvoted))
	for _, id := range upvoted {
		mine[id] = true
	}

	entries := make([]*models.CommunityEntry, 0, len(tickets))
	for _, t := range tickets {
		if !lifecycle.IsCommunityVisible(t) {
			s.logger.Errorw("Store returned a non-community ticket for the community feed",
				"ticket_id", t.ID, "visibility", t.Visibility, "status", t.Status)
			continue
		}
		entries = append(entries, &models.CommunityEntry{Ticket: t, UpvotedByMe: mine[t.ID]})
	}
	return entries, nil
}

// AdminQueue returns every ticket in triage order, narrowed by f.
func (s *TicketService) AdminQueue(ctx context.Context, actor lifecycle.Actor, f lifecycle.AdminFilter) ([]*models.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	q, err := lifecycle.AdminQuery(f, s.loc)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.QueryTickets(ctx, q)
	if err != nil {
		return nil, storeError("load the admin queue", msgTicketGone, err)
	}
	return tickets, nil
}

// AdminUpdate changes status and/or appends a response. The status write
// happens first; a failing step is returned as a StepError and earlier
// writes stand. An update that changes nothing writes nothing.
func (s *TicketService) AdminUpdate(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, in models.AdminUpdateInput) (*models.TicketDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	response, err := lifecycle.NormalizeResponse(in.Response)
	if err != nil {
		return nil, err
	}

	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, storeError("load the complaint", msgTicketGone, err)
	}

	statusChange := in.Status != nil && *in.Status != t.Status
	if statusChange {
		if err := s.policy.CheckTransition(t.Status, *in.Status); err != nil {
			return nil, err
		}
	}
	if !statusChange && response == "" {
		return s.detail(ctx, t)
	}

	now := s.now().UTC()
	var (
		outcome lifecycle.UpdateOutcome
		stepErr error
	)

	if statusChange {
		updated, err := s.store.UpdateTicketStatus(ctx, id, *in.Status, now)
		if err != nil {
			return nil, &apperrors.StepError{Step: "status", Err: storeError("update the status", msgTicketGone, err)}
		}
		t = updated
		outcome.StatusChanged = true
		outcome.NewStatus = updated.Status
		s.logger.Infow("Ticket status changed", "ticket_id", id, "status", updated.Status, "admin_id", actor.UserID)
		s.events.publish(ctx, ticketChange(updated, realtime.OpUpdate, now))
	}

	if response != "" {
		r := &models.AdminResponse{
			ID:        uuid.New(),
			TicketID:  id,
			AdminID:   actor.UserID,
			Text:      response,
			CreatedAt: now,
		}
		if err := s.store.InsertAdminResponse(ctx, r); err != nil {
			stepErr = &apperrors.StepError{Step: "response", Err: storeError("save the response", msgTicketGone, err)}
		} else {
			outcome.Responded = true
			s.logger.Infow("Admin response added", "ticket_id", id, "admin_id", actor.UserID)
			change := ticketChange(t, realtime.OpInsert, now)
			change.Table = realtime.TableAdminResponses
			change.RowID = r.ID
			s.events.publish(ctx, change)
		}
	}

	s.notifyOwner(ctx, t, actor, outcome, now)

	if stepErr != nil {
		return nil, stepErr
	}
	return s.detail(ctx, t)
}

func (s *TicketService) notifyOwner(ctx context.Context, t *models.Ticket, actor lifecycle.Actor, outcome lifecycle.UpdateOutcome, now time.Time) {
	n := lifecycle.NotificationFor(t, actor, outcome)
	if n == nil {
		return
	}
	n.ID = uuid.New()
	n.CreatedAt = now
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.logger.Warnw("Failed to enqueue notification",
			"ticket_id", t.ID,
			"user_id", n.UserID,
			"error", err,
		)
		return
	}
	s.events.publish(ctx, realtime.Change{
		Table:   realtime.TableNotifications,
		Op:      realtime.OpInsert,
		RowID:   n.ID,
		OwnerID: n.UserID,
		At:      now,
	})
}

// visibleTicket loads a ticket, hiding private tickets the actor may not see.
func (s *TicketService) visibleTicket(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (*models.Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, storeError("load the complaint", msgTicketGone, err)
	}
	if !lifecycle.CanView(actor, t) {
		return nil, apperrors.NewNotFoundError(msgTicketGone)
	}
	return t, nil
}

func (s *TicketService) detail(ctx context.Context, t *models.Ticket) (*models.TicketDetail, error) {
	responses, err := s.store.ListAdminResponses(ctx, t.ID)
	if err != nil {
		return nil, storeError("load responses", msgTicketGone, err)
	}
	return &models.TicketDetail{Ticket: t, Responses: responses}, nil
}

func (s *TicketService) discardAttachment(ctx context.Context, ref string) {
	if err := s.files.Remove(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warnw("Failed to remove attachment", "ref", ref, "error", err)
	}
}

func inspectUpload(u *Upload) (*lifecycle.AttachmentInfo, error) {
	if u == nil {
		return nil, nil
	}
	info, err := lifecycle.InspectAttachment(u.Data, u.ContentType)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
