package port

import (
	"context"
	"time"

	"github.com/clearledger/claimflow/internal/domain/entity"
)

// ClaimFilter narrows claim listings. Zero values mean "no restriction".
type ClaimFilter struct {
	Status     string
	EmployeeID string
	Limit      int
	Offset     int
}

// ClaimRepository defines persistence operations for Claim. All reads and
// writes are tenant-scoped.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.Claim, error)
	GetByClaimNumber(ctx context.Context, tenantID, claimNumber string) (*entity.Claim, error)
	List(ctx context.Context, tenantID string, filter ClaimFilter) ([]*entity.Claim, error)

	// Update persists every mutable field of the claim except status.
	Update(ctx context.Context, claim *entity.Claim) error

	// UpdateStatus persists the claim's status and status-dependent fields,
	// guarded by the status the caller read before running the transition
	// guards. It returns ErrStatusConflict when the stored status no longer
	// matches, so concurrent transitions against one claim serialize.
	UpdateStatus(ctx context.Context, claim *entity.Claim, expectedStatus string) error

	// CountForYear returns how many claims the tenant created in the given
	// calendar year, used to allocate claim numbers.
	CountForYear(ctx context.Context, tenantID string, year int) (int64, error)

	// FindDuplicates returns the employee's other non-rejected claims with
	// the same amount on the same calendar date, excluding the claim with
	// excludeID.
	FindDuplicates(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error)

	ListSettledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*entity.Claim, error)
}

// CategoryRepository defines persistence operations for PolicyCategory
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.PolicyCategory) error
	GetActiveByCode(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error)
	ListActive(ctx context.Context, tenantID string) ([]*entity.PolicyCategory, error)
}

// CommentRepository defines persistence operations for Comment
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error

	// ListByClaim returns the claim's comment thread, oldest first. When
	// employeeView is true, internal-only comments are filtered out.
	ListByClaim(ctx context.Context, tenantID string, claimID int64, employeeView bool) ([]*entity.Comment, error)
}

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, tenantID string, id int64) (*entity.Document, error)
	ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.Document, error)
	CountByClaim(ctx context.Context, tenantID string, claimID int64) (int, error)
}

// ApprovalRepository defines persistence operations for ApprovalRecord
type ApprovalRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.ApprovalRecord, error)
}

// NotificationRepository defines persistence operations for the
// notification outbox
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// SettingsRepository defines persistence operations for TenantSettings
type SettingsRepository interface {
	Get(ctx context.Context, tenantID string) (*entity.TenantSettings, error)
	Upsert(ctx context.Context, settings *entity.TenantSettings) error
}

// TransactionManager runs a function inside a database transaction. The
// context handed to fn carries the transaction; repositories route their
// statements through it.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
