package entity

import "time"

// AutoApprovalConfig is the validated tenant configuration feeding the
// auto-approval fast path.
type AutoApprovalConfig struct {
	AIProcessing bool `json:"ai_processing"`
	Enabled      bool `json:"auto_approval_enabled"`

	// Threshold is the minimum AI confidence score (0-100) for the fast
	// path.
	Threshold float64 `json:"auto_approval_threshold"`

	// MaxAutoApprovalAmount caps the claim amount eligible for the fast
	// path.
	MaxAutoApprovalAmount float64 `json:"max_auto_approval_amount"`

	// AutoSkipAfterManager lets an eligible claim jump straight to
	// FINANCE_APPROVED after the manager stage, bypassing HR and finance.
	AutoSkipAfterManager bool `json:"auto_skip_after_manager"`

	// PolicyComplianceThreshold is reserved for partial-compliance
	// routing; the fast path itself requires zero failing checks.
	PolicyComplianceThreshold float64 `json:"policy_compliance_threshold"`
}

// TenantSettings aggregates per-tenant workflow configuration.
type TenantSettings struct {
	TenantID string `json:"tenant_id"`

	// FiscalYearStartMonth is the month (1-12) the tenant's fiscal year
	// begins. Defaults to April.
	FiscalYearStartMonth time.Month `json:"fiscal_year_start_month"`

	AutoApproval AutoApprovalConfig `json:"auto_approval"`
}
