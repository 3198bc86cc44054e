package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{db: db, logger: logger}
}

// Create appends a comment to a claim's thread
func (r *CommentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	query := `
		INSERT INTO comments (
			tenant_id, claim_id, text, type,
			author_id, author_name, author_role, visible_to_employee
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		comment.TenantID,
		comment.ClaimID,
		comment.Text,
		comment.Type,
		comment.AuthorID,
		comment.AuthorName,
		comment.AuthorRole,
		comment.VisibleToEmployee,
	)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.Int64("claim_id", comment.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	return nil
}

// ListByClaim retrieves a claim's comment thread, oldest first
func (r *CommentRepository) ListByClaim(ctx context.Context, tenantID string, claimID int64, employeeView bool) ([]*entity.Comment, error) {
	query := `
		SELECT id, tenant_id, claim_id, text, type,
			author_id, author_name, author_role, visible_to_employee, created_at
		FROM comments
		WHERE tenant_id = ? AND claim_id = ?
	`
	args := []interface{}{tenantID, claimID}

	if employeeView {
		query += " AND visible_to_employee = 1"
	}
	query += " ORDER BY created_at"

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.Comment
	for rows.Next() {
		var c entity.Comment
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.ClaimID, &c.Text, &c.Type,
			&c.AuthorID, &c.AuthorName, &c.AuthorRole, &c.VisibleToEmployee, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *CommentRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.CommentRepository = (*CommentRepository)(nil)
