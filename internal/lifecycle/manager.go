// Package lifecycle applies transition requests to claims. The Manager is
// the single write path for claim status: it runs the workflow guards,
// performs the status-dependent side effects (return tracking, settlement
// details, submission timestamps) and drives the auto-approval fast path.
// It mutates the claim in memory only; persistence belongs to the caller.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/domain/workflow"
	"github.com/clearledger/claimflow/internal/policy"
)

var (
	// ErrInvalidPaymentMethod is returned when a settlement request names a
	// payment method outside the supported set
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidAmount is returned when an edit would set a non-positive
	// claim amount
	ErrInvalidAmount = errors.New("claim amount must be positive")
)

// Actor identifies who is requesting an operation.
type Actor struct {
	ID   string
	Role workflow.Role
}

// Settlement carries the payment details recorded on the transition to
// SETTLED.
type Settlement struct {
	PaymentReference string
	PaymentMethod    string
	AmountPaid       *float64
}

// TransitionRequest is one attempt to move a claim to a new status. Checks
// and AutoApproval feed the fast path; callers that disable auto-approval
// may leave them zero-valued.
type TransitionRequest struct {
	Actor        Actor
	Target       workflow.State
	Comment      string
	Settlement   *Settlement
	Checks       []policy.Check
	AutoApproval entity.AutoApprovalConfig
	Now          time.Time
}

// Step is one entry of the approval trail produced by a transition.
type Step struct {
	From     workflow.State
	To       workflow.State
	Stage    string
	Decision string
	ActorID  string
	Comment  string
	At       time.Time
}

// Outcome describes what a successful transition did to the claim.
type Outcome struct {
	From         workflow.State
	To           workflow.State
	Steps        []Step
	AutoAdvanced bool
}

// ClaimEdit is a partial update of the employee-editable claim fields. Nil
// fields are left unchanged.
type ClaimEdit struct {
	Amount       *float64
	ClaimDate    *time.Time
	Description  *string
	CategoryCode *string
}

// Manager validates and applies claim transitions.
type Manager struct {
	machine *workflow.Machine
}

func NewManager() *Manager {
	return &Manager{machine: workflow.NewClaimMachine()}
}

// Transition moves the claim to the requested status. The operation is
// all-or-nothing: every guard runs before the first field is touched, and a
// guard failure leaves the claim exactly as it was. When the tenant's
// auto-approval configuration and the compliance checks allow it, a manager
// approval is extended along the fast path, either straight to
// FINANCE_APPROVED or stage by stage with eligibility re-checked at each
// boundary.
func (m *Manager) Transition(claim *entity.Claim, req TransitionRequest) (*Outcome, error) {
	from := workflow.State(claim.Status)
	if !from.IsValid() {
		return nil, fmt.Errorf("%w: claim %d has status %q", workflow.ErrInvalidState, claim.ID, claim.Status)
	}

	if req.Actor.Role == workflow.RoleEmployee && req.Actor.ID != claim.EmployeeID {
		return nil, fmt.Errorf("%w: claim %d does not belong to actor %s",
			workflow.ErrInvalidTransition, claim.ID, req.Actor.ID)
	}

	if err := m.machine.Authorize(from, req.Actor.Role, req.Target, req.Comment); err != nil {
		return nil, err
	}

	if req.Target == workflow.StateSettled {
		if err := validateSettlement(req.Settlement); err != nil {
			return nil, err
		}
	}

	outcome := &Outcome{From: from, To: req.Target}

	// Manager approval with skip enabled jumps straight to FINANCE_APPROVED
	// when the claim qualifies; the manager's own approval is recorded first.
	if from == workflow.StatePendingManager &&
		req.Actor.Role == workflow.RoleManager &&
		req.Target == workflow.StatePendingHR &&
		req.AutoApproval.AutoSkipAfterManager &&
		Eligible(claim, req.AutoApproval, req.Checks) {

		outcome.Steps = append(outcome.Steps, Step{
			From: from, To: req.Target,
			Stage: entity.StageManager, Decision: entity.DecisionApproved,
			ActorID: req.Actor.ID, Comment: req.Comment, At: req.Now,
		})
		m.apply(claim, req, workflow.StateFinanceApproved)
		outcome.To = workflow.StateFinanceApproved
		outcome.AutoAdvanced = true
		outcome.Steps = append(outcome.Steps, Step{
			From: from, To: workflow.StateFinanceApproved,
			Stage: entity.StageSystem, Decision: entity.DecisionAutoApproved,
			At: req.Now,
		})
		return outcome, nil
	}

	m.apply(claim, req, req.Target)
	outcome.Steps = append(outcome.Steps, Step{
		From: from, To: req.Target,
		Stage:    stageForRole(req.Actor.Role),
		Decision: decisionFor(req.Actor.Role, req.Target),
		ActorID:  req.Actor.ID, Comment: req.Comment, At: req.Now,
	})

	m.autoAdvance(claim, req, outcome)
	return outcome, nil
}

// autoAdvance walks the claim through the remaining review stages one at a
// time while the fast path conditions keep holding.
func (m *Manager) autoAdvance(claim *entity.Claim, req TransitionRequest, outcome *Outcome) {
	for {
		from := workflow.State(claim.Status)

		var next workflow.State
		switch from {
		case workflow.StatePendingHR:
			next = workflow.StatePendingFinance
		case workflow.StatePendingFinance:
			next = workflow.StateFinanceApproved
		default:
			return
		}

		if !Eligible(claim, req.AutoApproval, req.Checks) {
			return
		}
		if !m.machine.CanTransition(from, workflow.RoleSystem, next) {
			return
		}

		m.apply(claim, req, next)
		outcome.To = next
		outcome.AutoAdvanced = true
		outcome.Steps = append(outcome.Steps, Step{
			From: from, To: next,
			Stage: entity.StageSystem, Decision: entity.DecisionAutoApproved,
			At: req.Now,
		})
	}
}

// apply performs the status change and its side effects. All guards have
// already passed by the time apply runs.
func (m *Manager) apply(claim *entity.Claim, req TransitionRequest, target workflow.State) {
	now := req.Now

	switch target {
	case workflow.StatePendingManager:
		claim.SubmissionDate = &now

	case workflow.StateReturned:
		claim.ReturnCount++
		claim.ReturnedBy = req.Actor.ID
		claim.ReturnedAt = &now
		claim.ReturnReason = req.Comment

	case workflow.StateSettled:
		claim.SettledAt = &now
		claim.SettledBy = req.Actor.ID
		if s := req.Settlement; s != nil {
			claim.PaymentReference = s.PaymentReference
			claim.PaymentMethod = s.PaymentMethod
			claim.AmountPaid = s.AmountPaid
		}
	}

	claim.Status = string(target)
	claim.UpdatedAt = now
}

// AuthorizeEdit checks whether the actor may edit the claim's fields. Only
// the owning employee may edit, and only while the claim sits in
// RETURNED_TO_EMPLOYEE.
func (m *Manager) AuthorizeEdit(claim *entity.Claim, actor Actor) error {
	if claim.Status != entity.StatusReturned {
		return fmt.Errorf("%w: claim %d has status %s", workflow.ErrClaimNotEditable, claim.ID, claim.Status)
	}
	if actor.Role != workflow.RoleEmployee || actor.ID != claim.EmployeeID {
		return fmt.Errorf("%w: claim %d does not belong to actor %s",
			workflow.ErrClaimNotEditable, claim.ID, actor.ID)
	}
	return nil
}

// Edit applies a partial field update to a returned claim. Edited fields are
// re-tagged in the claim's provenance map. The claim's status is unchanged;
// a follow-up Transition to PENDING_MANAGER resubmits it.
func (m *Manager) Edit(claim *entity.Claim, actor Actor, edit ClaimEdit, now time.Time) error {
	if err := m.AuthorizeEdit(claim, actor); err != nil {
		return err
	}
	if edit.Amount != nil && *edit.Amount <= 0 {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, *edit.Amount)
	}

	if claim.FieldSources == nil {
		claim.FieldSources = make(map[string]string)
	}
	if edit.Amount != nil {
		claim.Amount = *edit.Amount
		claim.FieldSources["amount"] = entity.FieldSourceEdited
	}
	if edit.ClaimDate != nil {
		d := *edit.ClaimDate
		claim.ClaimDate = &d
		claim.FieldSources["claim_date"] = entity.FieldSourceEdited
	}
	if edit.Description != nil {
		claim.Description = *edit.Description
		claim.FieldSources["description"] = entity.FieldSourceEdited
	}
	if edit.CategoryCode != nil {
		claim.CategoryCode = *edit.CategoryCode
		claim.FieldSources["category_code"] = entity.FieldSourceEdited
	}
	claim.UpdatedAt = now
	return nil
}

// Eligible reports whether the claim qualifies for the auto-approval fast
// path: auto-approval enabled, AI confidence at or above the tenant
// threshold, amount within the auto-approval cap, and no failing compliance
// check.
func Eligible(claim *entity.Claim, cfg entity.AutoApprovalConfig, checks []policy.Check) bool {
	return cfg.Enabled &&
		claim.AIConfidence >= cfg.Threshold &&
		claim.Amount <= cfg.MaxAutoApprovalAmount &&
		!policy.HasFailures(checks)
}

func validateSettlement(s *Settlement) error {
	if s == nil || s.PaymentMethod == "" {
		return nil
	}
	switch s.PaymentMethod {
	case entity.PaymentMethodNEFT, entity.PaymentMethodRTGS, entity.PaymentMethodCheque,
		entity.PaymentMethodCash, entity.PaymentMethodUPI:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s.PaymentMethod)
}

func stageForRole(role workflow.Role) string {
	switch role {
	case workflow.RoleEmployee:
		return entity.StageEmployee
	case workflow.RoleManager:
		return entity.StageManager
	case workflow.RoleHR:
		return entity.StageHR
	case workflow.RoleFinance:
		return entity.StageFinance
	default:
		return entity.StageSystem
	}
}

func decisionFor(role workflow.Role, target workflow.State) string {
	switch target {
	case workflow.StatePendingManager:
		return entity.DecisionSubmitted
	case workflow.StateRejected:
		return entity.DecisionRejected
	case workflow.StateReturned:
		return entity.DecisionReturned
	case workflow.StateSettled:
		return entity.DecisionSettled
	default:
		if role == workflow.RoleSystem {
			return entity.DecisionAutoApproved
		}
		return entity.DecisionApproved
	}
}
