package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// CategoryRepository implements port.CategoryRepository
type CategoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCategoryRepository(db *sql.DB, logger *zap.Logger) port.CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

const categoryColumns = `
	id, tenant_id, category_code, category_name, category_type,
	max_amount, min_amount, currency, submission_window_days,
	receipt_required, required_document_count,
	allowed_document_types, region_codes, active, created_at, updated_at`

// Create inserts a new policy category
func (r *CategoryRepository) Create(ctx context.Context, category *entity.PolicyCategory) error {
	query := `
		INSERT INTO policy_categories (
			tenant_id, category_code, category_name, category_type,
			max_amount, min_amount, currency, submission_window_days,
			receipt_required, required_document_count,
			allowed_document_types, region_codes, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	docTypes, err := marshalStrings(category.AllowedDocumentTypes)
	if err != nil {
		return err
	}
	regions, err := marshalStrings(category.RegionCodes)
	if err != nil {
		return err
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		category.TenantID,
		category.CategoryCode,
		category.CategoryName,
		category.CategoryType,
		nullFloat(category.MaxAmount),
		nullFloat(category.MinAmount),
		category.Currency,
		nullInt(category.SubmissionWindowDays),
		category.ReceiptRequired,
		category.RequiredDocumentCount,
		docTypes,
		regions,
		category.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create category", zap.Error(err))
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	category.ID = id
	return nil
}

// GetActiveByCode retrieves the active category matching a claim's category
// code. Inactive categories are not returned; evaluation then degrades to
// warnings.
func (r *CategoryRepository) GetActiveByCode(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error) {
	query := `SELECT` + categoryColumns + `
		FROM policy_categories
		WHERE tenant_id = ? AND category_code = ? AND active = 1`

	category, err := scanCategory(r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// ListActive retrieves the categories currently offered for submissions
func (r *CategoryRepository) ListActive(ctx context.Context, tenantID string) ([]*entity.PolicyCategory, error) {
	query := `SELECT` + categoryColumns + `
		FROM policy_categories
		WHERE tenant_id = ? AND active = 1
		ORDER BY category_code`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tenantID)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*entity.PolicyCategory
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func scanCategory(row rowScanner) (*entity.PolicyCategory, error) {
	var category entity.PolicyCategory
	var maxAmount, minAmount sql.NullFloat64
	var windowDays sql.NullInt64
	var docTypes, regions sql.NullString

	err := row.Scan(
		&category.ID,
		&category.TenantID,
		&category.CategoryCode,
		&category.CategoryName,
		&category.CategoryType,
		&maxAmount,
		&minAmount,
		&category.Currency,
		&windowDays,
		&category.ReceiptRequired,
		&category.RequiredDocumentCount,
		&docTypes,
		&regions,
		&category.Active,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if maxAmount.Valid {
		category.MaxAmount = &maxAmount.Float64
	}
	if minAmount.Valid {
		category.MinAmount = &minAmount.Float64
	}
	if windowDays.Valid {
		days := int(windowDays.Int64)
		category.SubmissionWindowDays = &days
	}
	if err := unmarshalStrings(docTypes, &category.AllowedDocumentTypes); err != nil {
		return nil, err
	}
	if err := unmarshalStrings(regions, &category.RegionCodes); err != nil {
		return nil, err
	}

	return &category, nil
}

func marshalStrings(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode string list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalStrings(src sql.NullString, dst *[]string) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	return nil
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// getExecutor returns appropriate executor based on context
func (r *CategoryRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.CategoryRepository = (*CategoryRepository)(nil)
