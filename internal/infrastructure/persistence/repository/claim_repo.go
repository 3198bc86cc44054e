package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{db: db, logger: logger}
}

const claimColumns = `
	id, tenant_id, claim_number, employee_id, employee_name, department,
	claim_type, category_code, amount, currency, status,
	claim_date, submission_date, description, transaction_ref,
	returned_by, returned_at, return_reason, return_count,
	settled_at, settled_by, payment_reference, payment_method, amount_paid,
	ai_confidence, field_sources, created_at, updated_at`

// Create inserts a new claim and backfills its generated ID
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			tenant_id, claim_number, employee_id, employee_name, department,
			claim_type, category_code, amount, currency, status,
			claim_date, submission_date, description, transaction_ref,
			return_count, ai_confidence, field_sources
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	sources, err := marshalFieldSources(claim.FieldSources)
	if err != nil {
		return err
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		claim.TenantID,
		claim.ClaimNumber,
		claim.EmployeeID,
		claim.EmployeeName,
		nullString(claim.Department),
		claim.ClaimType,
		claim.CategoryCode,
		claim.Amount,
		claim.Currency,
		claim.Status,
		nullTime(claim.ClaimDate),
		nullTime(claim.SubmissionDate),
		nullString(claim.Description),
		nullString(claim.TransactionRef),
		claim.ReturnCount,
		claim.AIConfidence,
		sources,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	claim.ID = id
	return nil
}

// GetByID retrieves a claim by ID within the tenant
func (r *ClaimRepository) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims WHERE tenant_id = ? AND id = ?`

	claim, err := scanClaim(r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// GetByClaimNumber retrieves a claim by its human-facing number
func (r *ClaimRepository) GetByClaimNumber(ctx context.Context, tenantID, claimNumber string) (*entity.Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims WHERE tenant_id = ? AND claim_number = ?`

	claim, err := scanClaim(r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID, claimNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by number", zap.String("claim_number", claimNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// List retrieves the tenant's claims, newest first
func (r *ClaimRepository) List(ctx context.Context, tenantID string, filter port.ClaimFilter) ([]*entity.Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, filter.EmployeeID)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	return collectClaims(rows)
}

// Update persists the claim's editable fields; status changes go through
// UpdateStatus.
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims SET
			category_code = ?, amount = ?, currency = ?,
			claim_date = ?, description = ?, transaction_ref = ?,
			ai_confidence = ?, field_sources = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`

	sources, err := marshalFieldSources(claim.FieldSources)
	if err != nil {
		return err
	}

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		claim.CategoryCode,
		claim.Amount,
		claim.Currency,
		nullTime(claim.ClaimDate),
		nullString(claim.Description),
		nullString(claim.TransactionRef),
		claim.AIConfidence,
		sources,
		claim.TenantID,
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}
	return nil
}

// UpdateStatus persists the status and its side-effect fields, guarded by
// the status the transition was evaluated against. Zero rows affected means
// another transition won the race.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, claim *entity.Claim, expectedStatus string) error {
	query := `
		UPDATE claims SET
			status = ?, submission_date = ?,
			returned_by = ?, returned_at = ?, return_reason = ?, return_count = ?,
			settled_at = ?, settled_by = ?,
			payment_reference = ?, payment_method = ?, amount_paid = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		claim.Status,
		nullTime(claim.SubmissionDate),
		nullString(claim.ReturnedBy),
		nullTime(claim.ReturnedAt),
		nullString(claim.ReturnReason),
		claim.ReturnCount,
		nullTime(claim.SettledAt),
		nullString(claim.SettledBy),
		nullString(claim.PaymentReference),
		nullString(claim.PaymentMethod),
		nullFloat(claim.AmountPaid),
		claim.TenantID,
		claim.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: claim %d expected status %s", port.ErrStatusConflict, claim.ID, expectedStatus)
	}
	return nil
}

// CountForYear counts the tenant's claims created in the given calendar year
func (r *ClaimRepository) CountForYear(ctx context.Context, tenantID string, year int) (int64, error) {
	query := `
		SELECT COUNT(*) FROM claims
		WHERE tenant_id = ? AND strftime('%Y', created_at) = ?
	`

	var count int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID, fmt.Sprintf("%04d", year)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// FindDuplicates retrieves the employee's other claims with the same amount
// on the same calendar date. Rejected claims do not count; resubmitting a
// rejected expense is legitimate.
func (r *ClaimRepository) FindDuplicates(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error) {
	query := `SELECT` + claimColumns + `
		FROM claims
		WHERE tenant_id = ? AND employee_id = ? AND amount = ?
		  AND date(claim_date) = date(?)
		  AND status != ? AND id != ?
		ORDER BY created_at`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query,
		tenantID, employeeID, amount, claimDate, entity.StatusRejected, excludeID)
	if err != nil {
		r.logger.Error("Failed to find duplicate claims", zap.Error(err))
		return nil, fmt.Errorf("failed to find duplicate claims: %w", err)
	}
	defer rows.Close()

	return collectClaims(rows)
}

// ListSettledBetween retrieves settled claims for a reporting period
func (r *ClaimRepository) ListSettledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*entity.Claim, error) {
	query := `SELECT` + claimColumns + `
		FROM claims
		WHERE tenant_id = ? AND status = ? AND settled_at >= ? AND settled_at < ?
		ORDER BY settled_at`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tenantID, entity.StatusSettled, from, to)
	if err != nil {
		r.logger.Error("Failed to list settled claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list settled claims: %w", err)
	}
	defer rows.Close()

	return collectClaims(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var claim entity.Claim
	var department, description, transactionRef sql.NullString
	var claimDate, submissionDate, returnedAt, settledAt sql.NullTime
	var returnedBy, returnReason, settledBy sql.NullString
	var paymentReference, paymentMethod sql.NullString
	var amountPaid sql.NullFloat64
	var fieldSources sql.NullString

	err := row.Scan(
		&claim.ID,
		&claim.TenantID,
		&claim.ClaimNumber,
		&claim.EmployeeID,
		&claim.EmployeeName,
		&department,
		&claim.ClaimType,
		&claim.CategoryCode,
		&claim.Amount,
		&claim.Currency,
		&claim.Status,
		&claimDate,
		&submissionDate,
		&description,
		&transactionRef,
		&returnedBy,
		&returnedAt,
		&returnReason,
		&claim.ReturnCount,
		&settledAt,
		&settledBy,
		&paymentReference,
		&paymentMethod,
		&amountPaid,
		&claim.AIConfidence,
		&fieldSources,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.Department = department.String
	claim.Description = description.String
	claim.TransactionRef = transactionRef.String
	claim.ReturnedBy = returnedBy.String
	claim.ReturnReason = returnReason.String
	claim.SettledBy = settledBy.String
	claim.PaymentReference = paymentReference.String
	claim.PaymentMethod = paymentMethod.String
	if claimDate.Valid {
		claim.ClaimDate = &claimDate.Time
	}
	if submissionDate.Valid {
		claim.SubmissionDate = &submissionDate.Time
	}
	if returnedAt.Valid {
		claim.ReturnedAt = &returnedAt.Time
	}
	if settledAt.Valid {
		claim.SettledAt = &settledAt.Time
	}
	if amountPaid.Valid {
		claim.AmountPaid = &amountPaid.Float64
	}
	if fieldSources.Valid && fieldSources.String != "" {
		if err := json.Unmarshal([]byte(fieldSources.String), &claim.FieldSources); err != nil {
			return nil, fmt.Errorf("failed to decode field sources: %w", err)
		}
	}

	return &claim, nil
}

func collectClaims(rows *sql.Rows) ([]*entity.Claim, error) {
	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func marshalFieldSources(sources map[string]string) (sql.NullString, error) {
	if len(sources) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode field sources: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// getExecutor returns appropriate executor based on context
func (r *ClaimRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
