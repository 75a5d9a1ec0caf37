package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/models"
	"github.com/aawaaz/ticket-server/internal/store"
)

// --- notifications ---

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, message, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, query, n.ID, n.UserID, n.Text, n.Link, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	// LIMIT NULL is unlimited.
	query := `
		SELECT id, user_id, message, link, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT NULLIF($2::int, 0)
	`
	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Text, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (s *Store) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteRead(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1 AND read`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear read notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) PurgeRead(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge read notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- global status ---

const statusColumns = `id, message, status_type::text, updated_by, updated_at`

func scanStatus(row pgx.Row) (*models.GlobalStatus, error) {
	var (
		gs         models.GlobalStatus
		statusType string
	)
	if err := row.Scan(&gs.ID, &gs.Message, &statusType, &gs.UpdatedBy, &gs.UpdatedAt); err != nil {
		return nil, err
	}
	gs.StatusType = models.StatusType(statusType)
	return &gs, nil
}

func (s *Store) CurrentStatus(ctx context.Context) (*models.GlobalStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM global_status ORDER BY updated_at DESC LIMIT 1`
	gs, err := scanStatus(s.db.QueryRow(ctx, query))
	if err != nil {
		return nil, mapErr("current status", err)
	}
	return gs, nil
}

// statusLockKey is the advisory lock serializing global status writers. Row
// locks cannot cover the first insert into an empty table.
const statusLockKey int64 = 0x6773746174757301

func (s *Store) UpsertStatus(ctx context.Context, in *models.GlobalStatus) (*models.GlobalStatus, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, statusLockKey); err != nil {
		return nil, fmt.Errorf("lock status: %w", err)
	}

	var currentID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM global_status ORDER BY updated_at DESC LIMIT 1 FOR UPDATE`).Scan(&currentID)

	var gs *models.GlobalStatus
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		gs, err = scanStatus(tx.QueryRow(ctx, `
			INSERT INTO global_status (id, message, status_type, updated_by, updated_at)
			VALUES ($1, $2, $3::status_type, $4, $5)
			RETURNING `+statusColumns,
			in.ID, in.Message, string(in.StatusType), in.UpdatedBy, in.UpdatedAt))
	case err != nil:
		return nil, fmt.Errorf("lock status: %w", err)
	default:
		gs, err = scanStatus(tx.QueryRow(ctx, `
			UPDATE global_status
			SET message = $2, status_type = $3::status_type, updated_by = $4,
				updated_at = GREATEST(updated_at, $5)
			WHERE id = $1
			RETURNING `+statusColumns,
			currentID, in.Message, string(in.StatusType), in.UpdatedBy, in.UpdatedAt))
	}
	if err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return gs, nil
}

// --- roles ---

func (s *Store) RoleOf(ctx context.Context, userID uuid.UUID) (lifecycle.Role, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT role::text FROM user_roles WHERE user_id = $1`, userID).Scan(&name)
	if err != nil {
		return 0, mapErr("lookup role", err)
	}
	role, err := lifecycle.ParseRole(name)
	if err != nil {
		return 0, fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

func (s *Store) CountByRole(ctx context.Context, role lifecycle.Role) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE role = $1::app_role`, role.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return count, nil
}
