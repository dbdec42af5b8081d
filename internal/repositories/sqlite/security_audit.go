package sqlite

import (
	"context"
	"database/sql"
	"time"

	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SecurityAuditRepository implements the SecurityAuditRepository
// interface for SQLite. It doubles as the rate limiter's AuditStore:
// attempt-events are append-only rows and blocks are upserted per
// identifier+action pair.
type SecurityAuditRepository struct {
	baseRepository
}

// NewSecurityAuditRepository creates a new SQLite security audit repository
func NewSecurityAuditRepository(db *sql.DB, logger *logrus.Logger) repositories.SecurityAuditRepository {
	return &SecurityAuditRepository{
		baseRepository: newBaseRepository(db, "security_events", logger),
	}
}

// Append records one attempt-event
func (r *SecurityAuditRepository) Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error {
	var meta *string
	if metadata != "" {
		meta = &metadata
	}

	event := &models.SecurityEvent{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Action:     action,
		Metadata:   meta,
		CreatedAt:  at,
	}
	if err := event.Validate(); err != nil {
		return repositories.ValidationError("security_event", event.ID, err)
	}

	query := `
		INSERT INTO security_events (id, identifier, action, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "append", query,
		event.ID,
		event.Identifier,
		event.Action,
		event.Metadata,
		event.CreatedAt,
	)
	return err
}

// CountSince counts events for identifier+action at or after the cutoff
func (r *SecurityAuditRepository) CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM security_events
		WHERE identifier = ? AND action = ? AND created_at >= ?`

	var count int
	row := r.executeQueryRow(ctx, "count_since", query, identifier, action, cutoff)
	if err := row.Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count_since", "security_event", identifier, err)
	}

	return count, nil
}

// ActiveBlock returns the stored block for identifier+action, or nil
// when none has ever been created. Expired blocks are returned as-is.
func (r *SecurityAuditRepository) ActiveBlock(ctx context.Context, identifier, action string) (*models.SecurityBlock, error) {
	query := `
		SELECT identifier, action, expires_at, created_at
		FROM security_blocks
		WHERE identifier = ? AND action = ?`

	row := r.executeQueryRow(ctx, "active_block", query, identifier, action)

	block := &models.SecurityBlock{}
	err := row.Scan(&block.Identifier, &block.Action, &block.ExpiresAt, &block.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, repositories.NewRepositoryError("active_block", "security_block", identifier, err)
	}

	return block, nil
}

// SetBlock creates or replaces the block for identifier+action
func (r *SecurityAuditRepository) SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error {
	query := `
		INSERT INTO security_blocks (identifier, action, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identifier, action) DO UPDATE SET
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`

	_, err := r.executeExec(ctx, "set_block", query, identifier, action, expiresAt, time.Now().UTC())
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"action":     action,
		"expires_at": expiresAt,
	}).Warn("Security block set")

	return nil
}

// RecentEvents returns the latest events for an identifier, newest first
func (r *SecurityAuditRepository) RecentEvents(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, identifier, action, metadata, created_at
		FROM security_events
		WHERE identifier = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.executeQuery(ctx, "recent_events", query, identifier, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		event := &models.SecurityEvent{}
		if err := rows.Scan(&event.ID, &event.Identifier, &event.Action, &event.Metadata, &event.CreatedAt); err != nil {
			return nil, repositories.NewRepositoryError("recent_events", "security_event", identifier, err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
