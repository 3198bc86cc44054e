package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/domain/workflow"
	"github.com/clearledger/claimflow/internal/policy"
)

var now = time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)

func newClaim(status string) *entity.Claim {
	return &entity.Claim{
		ID:           42,
		TenantID:     "acme",
		ClaimNumber:  "CLM-2026-000042",
		EmployeeID:   "emp-1",
		EmployeeName: "Priya Nair",
		ClaimType:    entity.ClaimTypeReimbursement,
		CategoryCode: "TRAVEL",
		Amount:       1000,
		Currency:     "INR",
		Status:       status,
	}
}

func allPassChecks() []policy.Check {
	ids := []policy.CheckID{
		policy.CheckCategory, policy.CheckAmount, policy.CheckDate,
		policy.CheckDocuments, policy.CheckFinancialYear, policy.CheckDescription,
	}
	checks := make([]policy.Check, len(ids))
	for i, id := range ids {
		checks[i] = policy.Check{ID: id, Status: policy.StatusPass}
	}
	return checks
}

func withOneFail() []policy.Check {
	checks := allPassChecks()
	checks[1].Status = policy.StatusFail
	return checks
}

func fastPathConfig() entity.AutoApprovalConfig {
	return entity.AutoApprovalConfig{
		AIProcessing:          true,
		Enabled:               true,
		Threshold:             95,
		MaxAutoApprovalAmount: 5000,
		AutoSkipAfterManager:  true,
	}
}

func TestTransition_EmployeeSubmitsDraft(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusDraft)

	outcome, err := m.Transition(claim, TransitionRequest{
		Actor:  Actor{ID: "emp-1", Role: workflow.RoleEmployee},
		Target: workflow.StatePendingManager,
		Now:    now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingManager, claim.Status)
	require.NotNil(t, claim.SubmissionDate)
	assert.Equal(t, now, *claim.SubmissionDate)
	assert.Equal(t, workflow.StateDraft, outcome.From)
	assert.Equal(t, workflow.StatePendingManager, outcome.To)
	require.Len(t, outcome.Steps, 1)
	assert.Equal(t, entity.StageEmployee, outcome.Steps[0].Stage)
	assert.Equal(t, entity.DecisionSubmitted, outcome.Steps[0].Decision)
}

func TestTransition_OwnershipGuard(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusDraft)

	_, err := m.Transition(claim, TransitionRequest{
		Actor:  Actor{ID: "emp-2", Role: workflow.RoleEmployee},
		Target: workflow.StatePendingManager,
		Now:    now,
	})

	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Equal(t, entity.StatusDraft, claim.Status, "failed transition must not change state")
}

func TestTransition_RejectWithoutComment(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)

	_, err := m.Transition(claim, TransitionRequest{
		Actor:  Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target: workflow.StateRejected,
		Now:    now,
	})

	assert.ErrorIs(t, err, workflow.ErrMissingRequiredComment)
	assert.Equal(t, entity.StatusPendingManager, claim.Status)
}

func TestTransition_RejectWithComment(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)

	outcome, err := m.Transition(claim, TransitionRequest{
		Actor:   Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:  workflow.StateRejected,
		Comment: "duplicate of CLM-2026-000041",
		Now:     now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, claim.Status)
	require.Len(t, outcome.Steps, 1)
	assert.Equal(t, entity.DecisionRejected, outcome.Steps[0].Decision)
	assert.Equal(t, "duplicate of CLM-2026-000041", outcome.Steps[0].Comment)
}

func TestTransition_ReturnTracksReasonAndCount(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingHR)
	claim.ReturnCount = 1

	_, err := m.Transition(claim, TransitionRequest{
		Actor:   Actor{ID: "hr-1", Role: workflow.RoleHR},
		Target:  workflow.StateReturned,
		Comment: "receipt is illegible, please reattach",
		Now:     now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusReturned, claim.Status)
	assert.Equal(t, 2, claim.ReturnCount)
	assert.Equal(t, "hr-1", claim.ReturnedBy)
	assert.Equal(t, "receipt is illegible, please reattach", claim.ReturnReason)
	require.NotNil(t, claim.ReturnedAt)
	assert.Equal(t, now, *claim.ReturnedAt)
}

func TestTransition_ReturnCountMonotonic(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusDraft)

	steps := []struct {
		actor   Actor
		target  workflow.State
		comment string
	}{
		{Actor{"emp-1", workflow.RoleEmployee}, workflow.StatePendingManager, ""},
		{Actor{"mgr-1", workflow.RoleManager}, workflow.StateReturned, "wrong category"},
		{Actor{"emp-1", workflow.RoleEmployee}, workflow.StatePendingManager, ""},
		{Actor{"mgr-1", workflow.RoleManager}, workflow.StatePendingHR, ""},
		{Actor{"hr-1", workflow.RoleHR}, workflow.StateReturned, "missing invoice number"},
		{Actor{"emp-1", workflow.RoleEmployee}, workflow.StatePendingManager, ""},
	}

	prev := 0
	for _, s := range steps {
		_, err := m.Transition(claim, TransitionRequest{
			Actor: s.actor, Target: s.target, Comment: s.comment, Now: now,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, claim.ReturnCount, prev, "return count must never decrease")
		prev = claim.ReturnCount
	}
	assert.Equal(t, 2, claim.ReturnCount, "one increment per entry into RETURNED_TO_EMPLOYEE")
}

func TestTransition_ResubmitKeepsReturnHistory(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusReturned)
	claim.ReturnCount = 1
	claim.ReturnReason = "wrong category"

	_, err := m.Transition(claim, TransitionRequest{
		Actor:  Actor{ID: "emp-1", Role: workflow.RoleEmployee},
		Target: workflow.StatePendingManager,
		Now:    now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingManager, claim.Status)
	assert.Equal(t, 1, claim.ReturnCount)
	assert.Equal(t, "wrong category", claim.ReturnReason)
}

func TestTransition_Settle(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusFinanceApproved)
	paid := 1000.0

	_, err := m.Transition(claim, TransitionRequest{
		Actor:  Actor{ID: "fin-1", Role: workflow.RoleFinance},
		Target: workflow.StateSettled,
		Settlement: &Settlement{
			PaymentReference: "UTR-990122",
			PaymentMethod:    entity.PaymentMethodNEFT,
			AmountPaid:       &paid,
		},
		Now: now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusSettled, claim.Status)
	assert.Equal(t, "fin-1", claim.SettledBy)
	require.NotNil(t, claim.SettledAt)
	assert.Equal(t, now, *claim.SettledAt)
	assert.Equal(t, "UTR-990122", claim.PaymentReference)
	assert.Equal(t, entity.PaymentMethodNEFT, claim.PaymentMethod)
	require.NotNil(t, claim.AmountPaid)
	assert.Equal(t, 1000.0, *claim.AmountPaid)
}

func TestTransition_SettleRejectsUnknownPaymentMethod(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusFinanceApproved)

	_, err := m.Transition(claim, TransitionRequest{
		Actor:      Actor{ID: "fin-1", Role: workflow.RoleFinance},
		Target:     workflow.StateSettled,
		Settlement: &Settlement{PaymentMethod: "BARTER"},
		Now:        now,
	})

	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.Equal(t, entity.StatusFinanceApproved, claim.Status)
	assert.Nil(t, claim.SettledAt)
}

func TestTransition_AutoSkipAfterManager(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)
	claim.AIConfidence = 97

	outcome, err := m.Transition(claim, TransitionRequest{
		Actor:        Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:       workflow.StatePendingHR,
		Checks:       allPassChecks(),
		AutoApproval: fastPathConfig(),
		Now:          now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinanceApproved, claim.Status)
	assert.True(t, outcome.AutoAdvanced)
	assert.Equal(t, workflow.StatePendingManager, outcome.From)
	assert.Equal(t, workflow.StateFinanceApproved, outcome.To)
	require.Len(t, outcome.Steps, 2)
	assert.Equal(t, entity.DecisionApproved, outcome.Steps[0].Decision)
	assert.Equal(t, entity.StageSystem, outcome.Steps[1].Stage)
	assert.Equal(t, entity.DecisionAutoApproved, outcome.Steps[1].Decision)
}

func TestTransition_AutoAdvanceStageByStage(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)
	claim.AIConfidence = 97
	cfg := fastPathConfig()
	cfg.AutoSkipAfterManager = false

	outcome, err := m.Transition(claim, TransitionRequest{
		Actor:        Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:       workflow.StatePendingHR,
		Checks:       allPassChecks(),
		AutoApproval: cfg,
		Now:          now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinanceApproved, claim.Status)
	assert.True(t, outcome.AutoAdvanced)
	require.Len(t, outcome.Steps, 3)
	assert.Equal(t, workflow.StatePendingHR, outcome.Steps[1].From)
	assert.Equal(t, workflow.StatePendingFinance, outcome.Steps[1].To)
	assert.Equal(t, workflow.StatePendingFinance, outcome.Steps[2].From)
	assert.Equal(t, workflow.StateFinanceApproved, outcome.Steps[2].To)
}

func TestTransition_FastPathDoesNotSettle(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)
	claim.AIConfidence = 99

	_, err := m.Transition(claim, TransitionRequest{
		Actor:        Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:       workflow.StatePendingHR,
		Checks:       allPassChecks(),
		AutoApproval: fastPathConfig(),
		Now:          now,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinanceApproved, claim.Status,
		"settlement is a separate finance operation, never automatic")
}

func TestTransition_FastPathIneligible(t *testing.T) {
	tests := []struct {
		name  string
		setup func(claim *entity.Claim, cfg *entity.AutoApprovalConfig, checks *[]policy.Check)
	}{
		{"auto-approval disabled", func(_ *entity.Claim, cfg *entity.AutoApprovalConfig, _ *[]policy.Check) {
			cfg.Enabled = false
		}},
		{"confidence below threshold", func(claim *entity.Claim, _ *entity.AutoApprovalConfig, _ *[]policy.Check) {
			claim.AIConfidence = 90
		}},
		{"amount above cap", func(claim *entity.Claim, _ *entity.AutoApprovalConfig, _ *[]policy.Check) {
			claim.Amount = 9000
		}},
		{"failing compliance check", func(_ *entity.Claim, _ *entity.AutoApprovalConfig, checks *[]policy.Check) {
			*checks = withOneFail()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			claim := newClaim(entity.StatusPendingManager)
			claim.AIConfidence = 97
			cfg := fastPathConfig()
			checks := allPassChecks()
			tt.setup(claim, &cfg, &checks)

			outcome, err := m.Transition(claim, TransitionRequest{
				Actor:        Actor{ID: "mgr-1", Role: workflow.RoleManager},
				Target:       workflow.StatePendingHR,
				Checks:       checks,
				AutoApproval: cfg,
				Now:          now,
			})

			require.NoError(t, err)
			assert.Equal(t, entity.StatusPendingHR, claim.Status,
				"ineligible claims proceed through normal review")
			assert.False(t, outcome.AutoAdvanced)
		})
	}
}

func TestTransition_BoundaryThresholds(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusPendingManager)
	claim.AIConfidence = 95
	claim.Amount = 5000

	outcome, err := m.Transition(claim, TransitionRequest{
		Actor:        Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:       workflow.StatePendingHR,
		Checks:       allPassChecks(),
		AutoApproval: fastPathConfig(),
		Now:          now,
	})

	require.NoError(t, err)
	assert.True(t, outcome.AutoAdvanced, "thresholds are inclusive")
}

func TestEdit_OnlyReturnedClaims(t *testing.T) {
	m := NewManager()
	owner := Actor{ID: "emp-1", Role: workflow.RoleEmployee}
	desc := "corrected description for the hotel stay"

	for _, status := range []string{
		entity.StatusDraft, entity.StatusPendingManager, entity.StatusPendingHR,
		entity.StatusPendingFinance, entity.StatusFinanceApproved,
		entity.StatusSettled, entity.StatusRejected,
	} {
		t.Run(status, func(t *testing.T) {
			claim := newClaim(status)
			err := m.Edit(claim, owner, ClaimEdit{Description: &desc}, now)
			assert.ErrorIs(t, err, workflow.ErrClaimNotEditable)
		})
	}
}

func TestEdit_OwnershipRequired(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusReturned)
	desc := "updated"

	err := m.Edit(claim, Actor{ID: "emp-2", Role: workflow.RoleEmployee}, ClaimEdit{Description: &desc}, now)
	assert.ErrorIs(t, err, workflow.ErrClaimNotEditable)

	err = m.Edit(claim, Actor{ID: "mgr-1", Role: workflow.RoleManager}, ClaimEdit{Description: &desc}, now)
	assert.ErrorIs(t, err, workflow.ErrClaimNotEditable)
}

func TestEdit_AppliesFieldsAndProvenance(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusReturned)
	claim.FieldSources = map[string]string{"amount": entity.FieldSourceAuto}

	amount := 1450.0
	date := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	desc := "taxi fare including the return leg"

	err := m.Edit(claim, Actor{ID: "emp-1", Role: workflow.RoleEmployee}, ClaimEdit{
		Amount:      &amount,
		ClaimDate:   &date,
		Description: &desc,
	}, now)

	require.NoError(t, err)
	assert.Equal(t, 1450.0, claim.Amount)
	assert.Equal(t, date, *claim.ClaimDate)
	assert.Equal(t, desc, claim.Description)
	assert.Equal(t, entity.FieldSourceEdited, claim.FieldSources["amount"])
	assert.Equal(t, entity.FieldSourceEdited, claim.FieldSources["claim_date"])
	assert.Equal(t, entity.FieldSourceEdited, claim.FieldSources["description"])
	assert.Equal(t, entity.StatusReturned, claim.Status, "editing does not resubmit")
}

func TestEdit_RejectsNonPositiveAmount(t *testing.T) {
	m := NewManager()
	claim := newClaim(entity.StatusReturned)
	zero := 0.0

	err := m.Edit(claim, Actor{ID: "emp-1", Role: workflow.RoleEmployee}, ClaimEdit{Amount: &zero}, now)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 1000.0, claim.Amount)
}

func TestEligible(t *testing.T) {
	claim := newClaim(entity.StatusPendingManager)
	claim.AIConfidence = 97

	assert.True(t, Eligible(claim, fastPathConfig(), allPassChecks()))
	assert.False(t, Eligible(claim, fastPathConfig(), withOneFail()))

	warned := allPassChecks()
	warned[3].Status = policy.StatusWarning
	assert.True(t, Eligible(claim, fastPathConfig(), warned),
		"warnings do not block the fast path, only failures do")
}
