package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/store"
)

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var (
		t                                      models.Ticket
		category, severity, status, visibility string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &category, &severity, &status,
		&visibility, &t.UpvoteCount, &t.AttachmentRef, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Category = models.Category(category)
	t.Severity = models.Severity(severity)
	t.Status = models.Status(status)
	t.Visibility = models.Visibility(visibility)
	return &t, nil
}

func (s *Store) InsertTicket(ctx context.Context, t *models.Ticket) error {
	query := `
		INSERT INTO tickets (id, title, description, category, severity, status, visibility,
			upvote_count, attachment_ref, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4::ticket_category, $5::ticket_severity, $6::ticket_status,
			$7::ticket_visibility, $8, $9, $10, $11, $12)
	`
	_, err := s.db.Exec(ctx, query,
		t.ID, t.Title, t.Description,
		string(t.Category), string(t.Severity), string(t.Status), string(t.Visibility),
		t.UpvoteCount, t.AttachmentRef, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (s *Store) UpdateTicketContent(ctx context.Context, id uuid.UUID, c models.TicketContent, attachmentRef *string, now time.Time) (*models.Ticket, error) {
	query := `
		UPDATE tickets
		SET title = $2, description = $3, category = $4::ticket_category,
			severity = $5::ticket_severity, visibility = $6::ticket_visibility,
			attachment_ref = $7, updated_at = GREATEST(updated_at, $8)
		WHERE id = $1
		RETURNING ` + ticketColumns

	t, err := scanTicket(s.db.QueryRow(ctx, query,
		id, c.Title, c.Description,
		string(c.Category), string(c.Severity), string(c.Visibility),
		attachmentRef, now,
	))
	if err != nil {
		return nil, mapErr("update ticket content", err)
	}
	return t, nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $2::ticket_status, updated_at = GREATEST(updated_at, $3)
		WHERE id = $1
		RETURNING ` + ticketColumns

	t, err := scanTicket(s.db.QueryRow(ctx, query, id, string(status), now))
	if err != nil {
		return nil, mapErr("update ticket status", err)
	}
	return t, nil
}

// DeleteTicket relies on ON DELETE CASCADE for upvotes and responses.
func (s *Store) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	t, err := scanTicket(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr("get ticket", err)
	}
	return t, nil
}

func (s *Store) QueryTickets(ctx context.Context, q lifecycle.Query) ([]*models.Ticket, error) {
	query, args := buildTicketQuery(q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	return tickets, nil
}

func (s *Store) RecountUpvotes(ctx context.Context) (int, error) {
	query := `
		UPDATE tickets t
		SET upvote_count = c.n
		FROM (
			SELECT tk.id, COUNT(u.user_id)::int AS n
			FROM tickets tk
			LEFT JOIN ticket_upvotes u ON u.ticket_id = tk.id
			GROUP BY tk.id
		) c
		WHERE c.id = t.id AND t.upvote_count <> c.n
	`
	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recount upvotes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- responses ---

func (s *Store) InsertAdminResponse(ctx context.Context, r *models.AdminResponse) error {
	query := `
		INSERT INTO admin_responses (id, ticket_id, admin_id, response_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query, r.ID, r.TicketID, r.AdminID, r.Text, r.CreatedAt)
	return mapErr("insert admin response", err)
}

func (s *Store) ListAdminResponses(ctx context.Context, ticketID uuid.UUID) ([]*models.AdminResponse, error) {
	query := `
		SELECT id, ticket_id, admin_id, response_text, created_at
		FROM admin_responses
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list admin responses: %w", err)
	}
	defer rows.Close()

	responses := []*models.AdminResponse{}
	for rows.Next() {
		var r models.AdminResponse
		if err := rows.Scan(&r.ID, &r.TicketID, &r.AdminID, &r.Text, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin response: %w", err)
		}
		responses = append(responses, &r)
	}
	return responses, rows.Err()
}

// --- upvotes ---

// ToggleUpvote serializes togglers of one ticket on its row lock, so the
// ledger and the cached count move together.
func (s *Store) ToggleUpvote(ctx context.Context, ticketID, userID uuid.UUID) (models.UpvoteState, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.UpvoteState{}, fmt.Errorf("begin toggle: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var visibility string
	err = tx.QueryRow(ctx, `SELECT visibility::text FROM tickets WHERE id = $1 FOR UPDATE`, ticketID).Scan(&visibility)
	if err != nil {
		return models.UpvoteState{}, mapErr("lock ticket", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM ticket_upvotes WHERE ticket_id = $1 AND user_id = $2`, ticketID, userID)
	if err != nil {
		return models.UpvoteState{}, fmt.Errorf("withdraw upvote: %w", err)
	}

	upvoted := false
	if tag.RowsAffected() == 0 {
		if !lifecycle.CanEndorse(&models.Ticket{Visibility: models.Visibility(visibility)}) {
			return models.UpvoteState{}, store.ErrNotEligible
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO ticket_upvotes (ticket_id, user_id) VALUES ($1, $2)
			ON CONFLICT (ticket_id, user_id) DO NOTHING`, ticketID, userID)
		if err != nil {
			return models.UpvoteState{}, fmt.Errorf("record upvote: %w", err)
		}
		upvoted = true
	}

	var count int
	err = tx.QueryRow(ctx, `
		UPDATE tickets
		SET upvote_count = (SELECT COUNT(*) FROM ticket_upvotes WHERE ticket_id = $1)
		WHERE id = $1
		RETURNING upvote_count`, ticketID).Scan(&count)
	if err != nil {
		return models.UpvoteState{}, fmt.Errorf("recount upvotes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.UpvoteState{}, fmt.Errorf("commit toggle: %w", err)
	}
	return models.UpvoteState{TicketID: ticketID, Upvoted: upvoted, UpvoteCount: count}, nil
}

func (s *Store) UpvotedTicketIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT ticket_id FROM ticket_upvotes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list upvotes: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan upvote: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
