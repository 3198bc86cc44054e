package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Create enqueues a notification in the outbox
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			tenant_id, claim_id, recipient_id, kind, message, status
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		n.TenantID,
		n.ClaimID,
		n.RecipientID,
		n.Kind,
		n.Message,
		entity.NotificationStatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Int64("claim_id", n.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.Status = entity.NotificationStatusPending
	return nil
}

// ListPending retrieves undelivered notifications for the dispatcher,
// oldest first
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, tenant_id, claim_id, recipient_id, kind, message,
			status, last_error, sent_at, created_at
		FROM notifications
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.NotificationStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to list pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var lastError sql.NullString
		var sentAt sql.NullTime
		if err := rows.Scan(
			&n.ID, &n.TenantID, &n.ClaimID, &n.RecipientID, &n.Kind,
			&n.Message, &n.Status, &lastError, &sentAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.LastError = lastError.String
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkSent records successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE notifications SET status = ?, sent_at = ?, last_error = NULL WHERE id = ?",
		entity.NotificationStatusSent, sentAt, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure with its error
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE notifications SET status = ?, last_error = ? WHERE id = ?",
		entity.NotificationStatusFailed, errorMsg, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *NotificationRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
