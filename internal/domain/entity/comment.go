package entity

import "time"

// Comment is one entry in a claim's review thread. Comments are append-only;
// they are never mutated or deleted in normal flow.
type Comment struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	ClaimID  int64  `json:"claim_id"`

	Text string `json:"text"`
	Type string `json:"type"` // GENERAL, RETURN, REJECTION, APPROVAL, HR_CORRECTION

	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	AuthorRole string `json:"author_role"`

	// VisibleToEmployee controls whether the submitting employee sees the
	// comment or it stays internal to the approval chain.
	VisibleToEmployee bool `json:"visible_to_employee"`

	CreatedAt time.Time `json:"created_at"`
}
