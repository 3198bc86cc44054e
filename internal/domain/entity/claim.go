package entity

import "time"

// Claim represents an employee expense or allowance request moving through
// the approval workflow. A claim is never hard-deleted; it only changes
// status.
type Claim struct {
	ID          int64  `json:"id"`
	TenantID    string `json:"tenant_id"`
	ClaimNumber string `json:"claim_number"`

	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department,omitempty"`

	ClaimType    string `json:"claim_type"` // REIMBURSEMENT or ALLOWANCE
	CategoryCode string `json:"category_code"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	Status string `json:"status"`

	ClaimDate      *time.Time `json:"claim_date,omitempty"`
	SubmissionDate *time.Time `json:"submission_date,omitempty"`

	Description string `json:"description,omitempty"`

	// TransactionRef is the payment or booking reference on the receipt.
	// Duplicate detection treats two claims sharing a reference as the same
	// expense.
	TransactionRef string `json:"transaction_ref,omitempty"`

	// Return workflow tracking. ReturnReason keeps the latest reason;
	// the full history lives in the comment thread.
	ReturnedBy   string     `json:"returned_by,omitempty"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	ReturnReason string     `json:"return_reason,omitempty"`
	ReturnCount  int        `json:"return_count"`

	// Settlement tracking, populated on the FINANCE_APPROVED -> SETTLED
	// transition.
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	SettledBy        string     `json:"settled_by,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	AmountPaid       *float64   `json:"amount_paid,omitempty"`

	// AIConfidence is the extraction confidence score (0-100) reported by
	// the receipt intake pipeline. Zero means no AI processing happened.
	AIConfidence float64 `json:"ai_confidence"`

	// FieldSources tags each editable field with its provenance:
	// "auto" for machine-extracted values, "manual" or "edited" for
	// user-supplied ones. Used for UI display only.
	FieldSources map[string]string `json:"field_sources,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminalStatus reports whether the claim can receive further review
// transitions. Comment threads stay open on terminal claims.
func (c *Claim) IsTerminalStatus() bool {
	return c.Status == StatusSettled || c.Status == StatusRejected
}
