package entity

import "time"

// ApprovalRecord captures one stage decision in a claim's review history.
type ApprovalRecord struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	ClaimID  int64  `json:"claim_id"`

	Stage        string `json:"stage"` // MANAGER, HR, FINANCE, SYSTEM
	ApproverID   string `json:"approver_id,omitempty"`
	ApproverName string `json:"approver_name,omitempty"`

	Decision string `json:"decision"` // APPROVED, REJECTED, RETURNED, AUTO_APPROVED, SETTLED
	Notes    string `json:"notes,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
	CreatedAt time.Time `json:"created_at"`
}
