package entity

import "time"

// Notification is an outbox row for a status-change message. Delivery is
// best-effort and never blocks a claim transition.
type Notification struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	ClaimID  int64  `json:"claim_id"`

	RecipientID string `json:"recipient_id"`
	Kind        string `json:"kind"` // STATUS_CHANGE, RETURN, REJECTION, SETTLEMENT
	Message     string `json:"message"`

	Status    string     `json:"status"` // PENDING, SENT, FAILED
	LastError string     `json:"last_error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
