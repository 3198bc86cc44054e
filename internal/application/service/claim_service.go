package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/domain/workflow"
	"github.com/clearledger/claimflow/internal/lifecycle"
	"github.com/clearledger/claimflow/internal/policy"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateClaimInput carries the fields of a new claim. When Submit is set the
// claim enters the approval chain immediately instead of staying in DRAFT.
type CreateClaimInput struct {
	TenantID       string
	EmployeeID     string
	EmployeeName   string
	Department     string
	ClaimType      string
	CategoryCode   string
	Amount         float64
	Currency       string
	ClaimDate      *time.Time
	Description    string
	TransactionRef string
	Submit         bool
}

// TransitionInput is one status-change request against a claim
type TransitionInput struct {
	TenantID   string
	ClaimID    int64
	Actor      lifecycle.Actor
	ActorName  string
	Target     workflow.State
	Comment    string
	Settlement *lifecycle.Settlement
}

// CommentInput appends a comment to a claim's thread
type CommentInput struct {
	TenantID          string
	ClaimID           int64
	AuthorID          string
	AuthorName        string
	AuthorRole        string
	Text              string
	Type              string
	VisibleToEmployee bool
}

// ComplianceReport is the evaluator's output for one claim, with the
// matched category attached for display.
type ComplianceReport struct {
	Checks   []policy.Check         `json:"checks"`
	Overall  policy.CheckStatus     `json:"overall"`
	Category *entity.PolicyCategory `json:"category,omitempty"`
}

// Duplicate match types. An exact match shares a transaction reference; a
// partial match only shares employee, amount and date.
const (
	DuplicateMatchExact   = "exact"
	DuplicateMatchPartial = "partial"
)

// DuplicateReport lists the claims that look like resubmissions of the same
// expense. Duplicates never block a transition; reviewers decide.
type DuplicateReport struct {
	IsDuplicate bool            `json:"is_duplicate"`
	MatchType   string          `json:"match_type,omitempty"`
	Claims      []*entity.Claim `json:"claims,omitempty"`
}

// ClaimService orchestrates claim creation, review transitions, edits and
// compliance reporting
type ClaimService interface {
	CreateClaim(ctx context.Context, input CreateClaimInput) (*entity.Claim, error)
	GetClaim(ctx context.Context, tenantID string, id int64) (*entity.Claim, error)
	ListClaims(ctx context.Context, tenantID string, filter port.ClaimFilter) ([]*entity.Claim, error)
	Transition(ctx context.Context, input TransitionInput) (*lifecycle.Outcome, *entity.Claim, error)
	EditAndResubmit(ctx context.Context, tenantID string, claimID int64, actor lifecycle.Actor, edit lifecycle.ClaimEdit, resubmit bool) (*entity.Claim, error)
	Compliance(ctx context.Context, tenantID string, claimID int64) (*ComplianceReport, error)
	CheckDuplicates(ctx context.Context, tenantID string, claimID int64) (*DuplicateReport, error)
	GetCategory(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error)
	CreateCategory(ctx context.Context, category *entity.PolicyCategory) error
	ListCategories(ctx context.Context, tenantID string) ([]*entity.PolicyCategory, error)
	GetSettings(ctx context.Context, tenantID string) (*entity.TenantSettings, error)
	UpdateSettings(ctx context.Context, settings *entity.TenantSettings) error
	AddComment(ctx context.Context, input CommentInput) (*entity.Comment, error)
	ListComments(ctx context.Context, tenantID string, claimID int64, employeeView bool) ([]*entity.Comment, error)
	ApprovalTrail(ctx context.Context, tenantID string, claimID int64) ([]*entity.ApprovalRecord, error)
}

type claimServiceImpl struct {
	claims        port.ClaimRepository
	categories    port.CategoryRepository
	comments      port.CommentRepository
	documents     port.DocumentRepository
	approvals     port.ApprovalRepository
	notifications port.NotificationRepository
	settings      port.SettingsRepository
	txManager     port.TransactionManager
	lifecycle     *lifecycle.Manager
	defaults      entity.TenantSettings
	logger        Logger
	now           func() time.Time
}

// NewClaimService creates a new ClaimService. defaults applies to tenants
// without a saved settings row.
func NewClaimService(
	claims port.ClaimRepository,
	categories port.CategoryRepository,
	comments port.CommentRepository,
	documents port.DocumentRepository,
	approvals port.ApprovalRepository,
	notifications port.NotificationRepository,
	settings port.SettingsRepository,
	txManager port.TransactionManager,
	defaults entity.TenantSettings,
	logger Logger,
) ClaimService {
	if defaults.FiscalYearStartMonth < time.January || defaults.FiscalYearStartMonth > time.December {
		defaults.FiscalYearStartMonth = policy.DefaultFiscalYearStartMonth
	}
	return &claimServiceImpl{
		claims:        claims,
		categories:    categories,
		comments:      comments,
		documents:     documents,
		approvals:     approvals,
		notifications: notifications,
		settings:      settings,
		txManager:     txManager,
		lifecycle:     lifecycle.NewManager(),
		defaults:      defaults,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateClaim creates a claim in DRAFT, or submits it straight into
// PENDING_MANAGER. Claim numbers are allocated per tenant and calendar year
// inside the creating transaction.
func (s *claimServiceImpl) CreateClaim(ctx context.Context, input CreateClaimInput) (*entity.Claim, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: %.2f", lifecycle.ErrInvalidAmount, input.Amount)
	}
	if input.ClaimType != entity.ClaimTypeReimbursement && input.ClaimType != entity.ClaimTypeAllowance {
		return nil, fmt.Errorf("unknown claim type %q", input.ClaimType)
	}

	now := s.now()
	claim := &entity.Claim{
		TenantID:       input.TenantID,
		EmployeeID:     input.EmployeeID,
		EmployeeName:   input.EmployeeName,
		Department:     input.Department,
		ClaimType:      input.ClaimType,
		CategoryCode:   input.CategoryCode,
		Amount:         input.Amount,
		Currency:       input.Currency,
		ClaimDate:      input.ClaimDate,
		Description:    input.Description,
		TransactionRef: input.TransactionRef,
		Status:         entity.StatusDraft,
		FieldSources: map[string]string{
			"amount":      entity.FieldSourceManual,
			"claim_date":  entity.FieldSourceManual,
			"description": entity.FieldSourceManual,
		},
	}
	if claim.Currency == "" {
		claim.Currency = "INR"
	}
	if input.Submit {
		claim.Status = entity.StatusPendingManager
		claim.SubmissionDate = &now
	}

	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.claims.CountForYear(txCtx, input.TenantID, now.Year())
		if err != nil {
			return err
		}
		claim.ClaimNumber = fmt.Sprintf("CLM-%d-%06d", now.Year(), count+1)

		if err := s.claims.Create(txCtx, claim); err != nil {
			return err
		}

		if input.Submit {
			return s.approvals.Create(txCtx, &entity.ApprovalRecord{
				TenantID:     claim.TenantID,
				ClaimID:      claim.ID,
				Stage:        entity.StageEmployee,
				ApproverID:   claim.EmployeeID,
				ApproverName: claim.EmployeeName,
				Decision:     entity.DecisionSubmitted,
				DecidedAt:    now,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create claim", "tenant_id", input.TenantID, "error", err)
		return nil, fmt.Errorf("create claim: %w", err)
	}

	if input.Submit {
		s.warnOnDuplicates(ctx, claim)
	}

	s.logger.Info("Claim created",
		"tenant_id", claim.TenantID, "claim_number", claim.ClaimNumber, "status", claim.Status)
	return claim, nil
}

// GetClaim retrieves one claim within the tenant
func (s *claimServiceImpl) GetClaim(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
	claim, err := s.claims.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: claim %d", port.ErrNotFound, id)
	}
	return claim, nil
}

// ListClaims retrieves the tenant's claims
func (s *claimServiceImpl) ListClaims(ctx context.Context, tenantID string, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return s.claims.List(ctx, tenantID, filter)
}

// Transition runs a status change end to end: load the claim, evaluate
// compliance, apply the lifecycle guards and side effects, then persist the
// new status together with the approval trail, the reviewer's comment and a
// notification in one transaction. The status write is guarded by the status
// the claim was loaded with, so concurrent requests against one claim
// serialize.
func (s *claimServiceImpl) Transition(ctx context.Context, input TransitionInput) (*lifecycle.Outcome, *entity.Claim, error) {
	claim, err := s.GetClaim(ctx, input.TenantID, input.ClaimID)
	if err != nil {
		return nil, nil, err
	}

	settings, err := s.tenantSettings(ctx, input.TenantID)
	if err != nil {
		return nil, nil, err
	}

	checks, _, err := s.evaluate(ctx, claim, settings)
	if err != nil {
		return nil, nil, err
	}

	expected := claim.Status
	outcome, err := s.lifecycle.Transition(claim, lifecycle.TransitionRequest{
		Actor:        input.Actor,
		Target:       input.Target,
		Comment:      input.Comment,
		Settlement:   input.Settlement,
		Checks:       checks,
		AutoApproval: settings.AutoApproval,
		Now:          s.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.UpdateStatus(txCtx, claim, expected); err != nil {
			return err
		}

		for _, step := range outcome.Steps {
			record := &entity.ApprovalRecord{
				TenantID:   claim.TenantID,
				ClaimID:    claim.ID,
				Stage:      step.Stage,
				ApproverID: step.ActorID,
				Decision:   step.Decision,
				Notes:      step.Comment,
				DecidedAt:  step.At,
			}
			if step.ActorID == input.Actor.ID {
				record.ApproverName = input.ActorName
			}
			if err := s.approvals.Create(txCtx, record); err != nil {
				return err
			}
		}

		if input.Comment != "" {
			if err := s.comments.Create(txCtx, &entity.Comment{
				TenantID:          claim.TenantID,
				ClaimID:           claim.ID,
				Text:              input.Comment,
				Type:              commentTypeFor(input.Target),
				AuthorID:          input.Actor.ID,
				AuthorName:        input.ActorName,
				AuthorRole:        string(input.Actor.Role),
				VisibleToEmployee: true,
			}); err != nil {
				return err
			}
		}

		return s.notifications.Create(txCtx, &entity.Notification{
			TenantID:    claim.TenantID,
			ClaimID:     claim.ID,
			RecipientID: claim.EmployeeID,
			Kind:        notificationKindFor(outcome.To),
			Message:     notificationMessage(claim, outcome),
		})
	})
	if err != nil {
		s.logger.Error("Failed to persist transition",
			"claim_id", claim.ID, "from", outcome.From, "to", outcome.To, "error", err)
		return nil, nil, fmt.Errorf("persist transition: %w", err)
	}

	s.logger.Info("Claim transitioned",
		"claim_id", claim.ID, "claim_number", claim.ClaimNumber,
		"from", outcome.From, "to", outcome.To, "auto_advanced", outcome.AutoAdvanced)
	return outcome, claim, nil
}

// EditAndResubmit updates a returned claim's fields and, when resubmit is
// set, sends it back into PENDING_MANAGER.
func (s *claimServiceImpl) EditAndResubmit(ctx context.Context, tenantID string, claimID int64, actor lifecycle.Actor, edit lifecycle.ClaimEdit, resubmit bool) (*entity.Claim, error) {
	claim, err := s.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}

	if err := s.lifecycle.Edit(claim, actor, edit, s.now()); err != nil {
		return nil, err
	}

	if err := s.claims.Update(ctx, claim); err != nil {
		s.logger.Error("Failed to persist claim edit", "claim_id", claim.ID, "error", err)
		return nil, fmt.Errorf("persist edit: %w", err)
	}

	if !resubmit {
		return claim, nil
	}

	_, claim, err = s.Transition(ctx, TransitionInput{
		TenantID: tenantID,
		ClaimID:  claimID,
		Actor:    actor,
		Target:   workflow.StatePendingManager,
	})
	return claim, err
}

// Compliance evaluates the claim against its matched policy category
func (s *claimServiceImpl) Compliance(ctx context.Context, tenantID string, claimID int64) (*ComplianceReport, error) {
	claim, err := s.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}

	settings, err := s.tenantSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	checks, category, err := s.evaluate(ctx, claim, settings)
	if err != nil {
		return nil, err
	}

	return &ComplianceReport{
		Checks:   checks,
		Overall:  policy.Overall(checks),
		Category: category,
	}, nil
}

// CheckDuplicates reports the employee's other claims that look like the
// same expense: same amount on the same date, with a transaction reference
// match upgrading the result to an exact duplicate.
func (s *claimServiceImpl) CheckDuplicates(ctx context.Context, tenantID string, claimID int64) (*DuplicateReport, error) {
	claim, err := s.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		return nil, err
	}
	return s.duplicatesFor(ctx, claim)
}

func (s *claimServiceImpl) duplicatesFor(ctx context.Context, claim *entity.Claim) (*DuplicateReport, error) {
	report := &DuplicateReport{}
	if claim.ClaimDate == nil {
		return report, nil
	}

	matches, err := s.claims.FindDuplicates(ctx, claim.TenantID, claim.EmployeeID,
		claim.Amount, *claim.ClaimDate, claim.ID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return report, nil
	}

	report.IsDuplicate = true
	report.MatchType = DuplicateMatchPartial
	ref := strings.ToLower(strings.TrimSpace(claim.TransactionRef))
	for _, match := range matches {
		other := strings.ToLower(strings.TrimSpace(match.TransactionRef))
		if ref != "" && ref == other {
			report.MatchType = DuplicateMatchExact
			report.Claims = append([]*entity.Claim{match}, report.Claims...)
			continue
		}
		report.Claims = append(report.Claims, match)
	}
	return report, nil
}

// warnOnDuplicates surfaces likely duplicates at submission time without
// blocking; the review chain makes the call.
func (s *claimServiceImpl) warnOnDuplicates(ctx context.Context, claim *entity.Claim) {
	report, err := s.duplicatesFor(ctx, claim)
	if err != nil {
		s.logger.Error("Duplicate check failed", "claim_id", claim.ID, "error", err)
		return
	}
	if report.IsDuplicate {
		s.logger.Info("Possible duplicate claim submitted",
			"claim_number", claim.ClaimNumber,
			"match_type", report.MatchType,
			"matches", len(report.Claims))
	}
}

// GetCategory resolves an active policy category by code
func (s *claimServiceImpl) GetCategory(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error) {
	category, err := s.categories.GetActiveByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnresolvedPolicy, code)
	}
	return category, nil
}

// CreateCategory registers a new policy category for the tenant
func (s *claimServiceImpl) CreateCategory(ctx context.Context, category *entity.PolicyCategory) error {
	if category.TenantID == "" || category.CategoryCode == "" || category.CategoryName == "" {
		return fmt.Errorf("tenant, category code and name are required")
	}
	if category.MinAmount != nil && category.MaxAmount != nil && *category.MinAmount > *category.MaxAmount {
		return fmt.Errorf("category %s: min amount %.2f exceeds max amount %.2f",
			category.CategoryCode, *category.MinAmount, *category.MaxAmount)
	}
	category.Active = true

	if err := s.categories.Create(ctx, category); err != nil {
		s.logger.Error("Failed to create category",
			"tenant_id", category.TenantID, "category_code", category.CategoryCode, "error", err)
		return fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("Policy category created",
		"tenant_id", category.TenantID, "category_code", category.CategoryCode)
	return nil
}

// ListCategories retrieves the tenant's active policy categories
func (s *claimServiceImpl) ListCategories(ctx context.Context, tenantID string) ([]*entity.PolicyCategory, error) {
	return s.categories.ListActive(ctx, tenantID)
}

// GetSettings returns the tenant's workflow settings, falling back to the
// service-level defaults for unconfigured tenants.
func (s *claimServiceImpl) GetSettings(ctx context.Context, tenantID string) (*entity.TenantSettings, error) {
	return s.tenantSettings(ctx, tenantID)
}

// UpdateSettings saves the tenant's workflow settings
func (s *claimServiceImpl) UpdateSettings(ctx context.Context, settings *entity.TenantSettings) error {
	if settings.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if settings.FiscalYearStartMonth < time.January || settings.FiscalYearStartMonth > time.December {
		return fmt.Errorf("fiscal year start month %d is out of range", settings.FiscalYearStartMonth)
	}
	if settings.AutoApproval.Threshold < 0 || settings.AutoApproval.Threshold > 100 {
		return fmt.Errorf("auto-approval threshold %.1f must be between 0 and 100", settings.AutoApproval.Threshold)
	}
	if settings.AutoApproval.Enabled && settings.AutoApproval.MaxAutoApprovalAmount <= 0 {
		return fmt.Errorf("auto-approval requires a positive max amount")
	}

	if err := s.settings.Upsert(ctx, settings); err != nil {
		s.logger.Error("Failed to save tenant settings", "tenant_id", settings.TenantID, "error", err)
		return fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("Tenant settings saved",
		"tenant_id", settings.TenantID,
		"auto_approval_enabled", settings.AutoApproval.Enabled)
	return nil
}

// AddComment appends to a claim's thread. Threads stay open on terminal
// claims.
func (s *claimServiceImpl) AddComment(ctx context.Context, input CommentInput) (*entity.Comment, error) {
	if _, err := s.GetClaim(ctx, input.TenantID, input.ClaimID); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		TenantID:          input.TenantID,
		ClaimID:           input.ClaimID,
		Text:              input.Text,
		Type:              input.Type,
		AuthorID:          input.AuthorID,
		AuthorName:        input.AuthorName,
		AuthorRole:        input.AuthorRole,
		VisibleToEmployee: input.VisibleToEmployee,
	}
	if comment.Type == "" {
		comment.Type = entity.CommentTypeGeneral
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments retrieves a claim's comment thread
func (s *claimServiceImpl) ListComments(ctx context.Context, tenantID string, claimID int64, employeeView bool) ([]*entity.Comment, error) {
	return s.comments.ListByClaim(ctx, tenantID, claimID, employeeView)
}

// ApprovalTrail retrieves a claim's stage decisions
func (s *claimServiceImpl) ApprovalTrail(ctx context.Context, tenantID string, claimID int64) ([]*entity.ApprovalRecord, error) {
	return s.approvals.ListByClaim(ctx, tenantID, claimID)
}

// tenantSettings loads the tenant's workflow settings, falling back to the
// configured service defaults for unconfigured tenants.
func (s *claimServiceImpl) tenantSettings(ctx context.Context, tenantID string) (*entity.TenantSettings, error) {
	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := s.defaults
		defaults.TenantID = tenantID
		settings = &defaults
	}
	return settings, nil
}

func (s *claimServiceImpl) evaluate(ctx context.Context, claim *entity.Claim, settings *entity.TenantSettings) ([]policy.Check, *entity.PolicyCategory, error) {
	category, err := s.categories.GetActiveByCode(ctx, claim.TenantID, claim.CategoryCode)
	if err != nil {
		return nil, nil, err
	}

	docCount, err := s.documents.CountByClaim(ctx, claim.TenantID, claim.ID)
	if err != nil {
		return nil, nil, err
	}

	evaluator := policy.NewEvaluator(settings.FiscalYearStartMonth)
	checks := evaluator.Evaluate(policy.ClaimSnapshot{
		Amount:        claim.Amount,
		ClaimDate:     claim.ClaimDate,
		Description:   claim.Description,
		CategoryCode:  claim.CategoryCode,
		DocumentCount: docCount,
	}, category, s.now())

	return checks, category, nil
}

func commentTypeFor(target workflow.State) string {
	switch target {
	case workflow.StateRejected:
		return entity.CommentTypeRejection
	case workflow.StateReturned:
		return entity.CommentTypeReturn
	default:
		return entity.CommentTypeApproval
	}
}

func notificationKindFor(to workflow.State) string {
	switch to {
	case workflow.StateRejected:
		return entity.NotificationKindRejection
	case workflow.StateReturned:
		return entity.NotificationKindReturn
	case workflow.StateSettled:
		return entity.NotificationKindSettlement
	default:
		return entity.NotificationKindStatusChange
	}
}

func notificationMessage(claim *entity.Claim, outcome *lifecycle.Outcome) string {
	switch outcome.To {
	case workflow.StateRejected:
		reason := ""
		if n := len(outcome.Steps); n > 0 {
			reason = outcome.Steps[n-1].Comment
		}
		return fmt.Sprintf("Claim %s was rejected: %s", claim.ClaimNumber, reason)
	case workflow.StateReturned:
		return fmt.Sprintf("Claim %s was returned for correction: %s", claim.ClaimNumber, claim.ReturnReason)
	case workflow.StateSettled:
		return fmt.Sprintf("Claim %s has been settled", claim.ClaimNumber)
	default:
		return fmt.Sprintf("Claim %s moved to %s", claim.ClaimNumber, outcome.To)
	}
}
