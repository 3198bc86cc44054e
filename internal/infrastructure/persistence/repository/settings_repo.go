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

// SettingsRepository implements port.SettingsRepository
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSettingsRepository(db *sql.DB, logger *zap.Logger) port.SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// Get retrieves a tenant's workflow settings
func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (*entity.TenantSettings, error) {
	query := `
		SELECT tenant_id, fiscal_year_start_month,
			ai_processing, auto_approval_enabled, auto_approval_threshold,
			max_auto_approval_amount, auto_skip_after_manager,
			policy_compliance_threshold
		FROM tenant_settings
		WHERE tenant_id = ?
	`

	var s entity.TenantSettings
	var fiscalMonth int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, tenantID).Scan(
		&s.TenantID,
		&fiscalMonth,
		&s.AutoApproval.AIProcessing,
		&s.AutoApproval.Enabled,
		&s.AutoApproval.Threshold,
		&s.AutoApproval.MaxAutoApprovalAmount,
		&s.AutoApproval.AutoSkipAfterManager,
		&s.AutoApproval.PolicyComplianceThreshold,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tenant settings", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}

	s.FiscalYearStartMonth = time.Month(fiscalMonth)
	return &s, nil
}

// Upsert writes a tenant's workflow settings
func (r *SettingsRepository) Upsert(ctx context.Context, settings *entity.TenantSettings) error {
	query := `
		INSERT INTO tenant_settings (
			tenant_id, fiscal_year_start_month,
			ai_processing, auto_approval_enabled, auto_approval_threshold,
			max_auto_approval_amount, auto_skip_after_manager,
			policy_compliance_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			fiscal_year_start_month = excluded.fiscal_year_start_month,
			ai_processing = excluded.ai_processing,
			auto_approval_enabled = excluded.auto_approval_enabled,
			auto_approval_threshold = excluded.auto_approval_threshold,
			max_auto_approval_amount = excluded.max_auto_approval_amount,
			auto_skip_after_manager = excluded.auto_skip_after_manager,
			policy_compliance_threshold = excluded.policy_compliance_threshold,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		settings.TenantID,
		int(settings.FiscalYearStartMonth),
		settings.AutoApproval.AIProcessing,
		settings.AutoApproval.Enabled,
		settings.AutoApproval.Threshold,
		settings.AutoApproval.MaxAutoApprovalAmount,
		settings.AutoApproval.AutoSkipAfterManager,
		settings.AutoApproval.PolicyComplianceThreshold,
	)
	if err != nil {
		r.logger.Error("Failed to upsert tenant settings", zap.String("tenant_id", settings.TenantID), zap.Error(err))
		return fmt.Errorf("failed to upsert tenant settings: %w", err)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *SettingsRepository) getExecutor(ctx context.Context) executor {
	return executorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.SettingsRepository = (*SettingsRepository)(nil)
