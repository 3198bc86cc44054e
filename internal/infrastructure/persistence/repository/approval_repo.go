package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Create appends a stage decision to a claim's approval trail
func (r *ApprovalRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (
			tenant_id, claim_id, stage, approver_id, approver_name,
			decision, notes, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		record.TenantID,
		record.ClaimID,
		record.Stage,
		nullString(record.ApproverID),
		nullString(record.ApproverName),
		record.Decision,
		nullString(record.Notes),
		record.DecidedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record", zap.Int64("claim_id", record.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// ListByClaim retrieves a claim's approval trail in decision order
func (r *ApprovalRepository) ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, tenant_id, claim_id, stage, approver_id, approver_name,
			decision, notes, decided_at, created_at
		FROM approval_records
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY decided_at, id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tenantID, claimID)
	if err != nil {
		r.logger.Error("Failed to list approval records", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		var rec entity.ApprovalRecord
		var approverID, approverName, notes sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.ClaimID, &rec.Stage,
			&approverID, &approverName, &rec.Decision, &notes,
			&rec.DecidedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		rec.ApproverID = approverID.String
		rec.ApproverName = approverName.String
		rec.Notes = notes.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *ApprovalRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
