package entity

// Status constants for Claim. These mirror the workflow states.
const (
	StatusDraft           = "DRAFT"
	StatusPendingManager  = "PENDING_MANAGER"
	StatusPendingHR       = "PENDING_HR"
	StatusPendingFinance  = "PENDING_FINANCE"
	StatusFinanceApproved = "FINANCE_APPROVED"
	StatusSettled         = "SETTLED"
	StatusRejected        = "REJECTED"
	StatusReturned        = "RETURNED_TO_EMPLOYEE"
)

// Claim type constants
const (
	ClaimTypeReimbursement = "REIMBURSEMENT"
	ClaimTypeAllowance     = "ALLOWANCE"
)

// Comment type constants
const (
	CommentTypeGeneral      = "GENERAL"
	CommentTypeReturn       = "RETURN"
	CommentTypeRejection    = "REJECTION"
	CommentTypeApproval     = "APPROVAL"
	CommentTypeHRCorrection = "HR_CORRECTION"
)

// Approval stage constants
const (
	StageEmployee = "EMPLOYEE"
	StageManager  = "MANAGER"
	StageHR       = "HR"
	StageFinance  = "FINANCE"
	StageSystem   = "SYSTEM"
)

// Approval decision constants
const (
	DecisionSubmitted    = "SUBMITTED"
	DecisionApproved     = "APPROVED"
	DecisionRejected     = "REJECTED"
	DecisionReturned     = "RETURNED"
	DecisionAutoApproved = "AUTO_APPROVED"
	DecisionSettled      = "SETTLED"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification kind constants
const (
	NotificationKindStatusChange = "STATUS_CHANGE"
	NotificationKindReturn       = "RETURN"
	NotificationKindRejection    = "REJECTION"
	NotificationKindSettlement   = "SETTLEMENT"
)

// Payment method constants for settlement
const (
	PaymentMethodNEFT   = "NEFT"
	PaymentMethodRTGS   = "RTGS"
	PaymentMethodCheque = "CHEQUE"
	PaymentMethodCash   = "CASH"
	PaymentMethodUPI    = "UPI"
)

// Field provenance tags
const (
	FieldSourceAuto   = "auto"
	FieldSourceManual = "manual"
	FieldSourceEdited = "edited"
)
