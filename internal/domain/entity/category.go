package entity

import "time"

// PolicyCategory is a tenant-defined rule set that claims of a given
// category code are evaluated against. Nil limit fields mean unbounded.
type PolicyCategory struct {
	ID           int64  `json:"id"`
	TenantID     string `json:"tenant_id"`
	CategoryCode string `json:"category_code"`
	CategoryName string `json:"category_name"`
	CategoryType string `json:"category_type"` // ALLOWANCE or REIMBURSEMENT

	MaxAmount *float64 `json:"max_amount,omitempty"`
	MinAmount *float64 `json:"min_amount,omitempty"`
	Currency  string   `json:"currency"`

	// SubmissionWindowDays limits how old a claim may be at submission.
	// Nil means no restriction.
	SubmissionWindowDays *int `json:"submission_window_days,omitempty"`

	ReceiptRequired bool `json:"receipt_required"`

	// RequiredDocumentCount is the number of supporting documents a claim
	// needs. Zero falls back to one when ReceiptRequired is set.
	RequiredDocumentCount int `json:"required_document_count"`

	AllowedDocumentTypes []string `json:"allowed_document_types,omitempty"`

	// RegionCodes scopes the category to claimant regions. Empty means
	// unscoped.
	RegionCodes []string `json:"region_codes,omitempty"`

	// Inactive categories are not offered for new submissions, but claims
	// already referencing them remain evaluable.
	Active bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MinDocuments returns the effective supporting-document requirement.
func (pc *PolicyCategory) MinDocuments() int {
	if pc.RequiredDocumentCount > 0 {
		return pc.RequiredDocumentCount
	}
	if pc.ReceiptRequired {
		return 1
	}
	return 0
}
