package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/domain/workflow"
	"github.com/clearledger/claimflow/internal/lifecycle"
)

// Mock repositories

type mockClaimRepo struct {
	createFunc             func(ctx context.Context, claim *entity.Claim) error
	getByIDFunc            func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error)
	getByClaimNumberFunc   func(ctx context.Context, tenantID, claimNumber string) (*entity.Claim, error)
	listFunc               func(ctx context.Context, tenantID string, filter port.ClaimFilter) ([]*entity.Claim, error)
	updateFunc             func(ctx context.Context, claim *entity.Claim) error
	updateStatusFunc       func(ctx context.Context, claim *entity.Claim, expectedStatus string) error
	countForYearFunc       func(ctx context.Context, tenantID string, year int) (int64, error)
	findDuplicatesFunc     func(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error)
	listSettledBetweenFunc func(ctx context.Context, tenantID string, from, to time.Time) ([]*entity.Claim, error)
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	claim.ID = 1
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, tenantID, id)
	}
	return nil, nil
}

func (m *mockClaimRepo) GetByClaimNumber(ctx context.Context, tenantID, claimNumber string) (*entity.Claim, error) {
	if m.getByClaimNumberFunc != nil {
		return m.getByClaimNumberFunc(ctx, tenantID, claimNumber)
	}
	return nil, nil
}

func (m *mockClaimRepo) List(ctx context.Context, tenantID string, filter port.ClaimFilter) ([]*entity.Claim, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, tenantID, filter)
	}
	return nil, nil
}

func (m *mockClaimRepo) Update(ctx context.Context, claim *entity.Claim) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, claim)
	}
	return nil
}

func (m *mockClaimRepo) UpdateStatus(ctx context.Context, claim *entity.Claim, expectedStatus string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, claim, expectedStatus)
	}
	return nil
}

func (m *mockClaimRepo) CountForYear(ctx context.Context, tenantID string, year int) (int64, error) {
	if m.countForYearFunc != nil {
		return m.countForYearFunc(ctx, tenantID, year)
	}
	return 0, nil
}

func (m *mockClaimRepo) FindDuplicates(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error) {
	if m.findDuplicatesFunc != nil {
		return m.findDuplicatesFunc(ctx, tenantID, employeeID, amount, claimDate, excludeID)
	}
	return nil, nil
}

func (m *mockClaimRepo) ListSettledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*entity.Claim, error) {
	if m.listSettledBetweenFunc != nil {
		return m.listSettledBetweenFunc(ctx, tenantID, from, to)
	}
	return nil, nil
}

type mockCategoryRepo struct {
	getActiveByCodeFunc func(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error)
	created             []*entity.PolicyCategory
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *entity.PolicyCategory) error {
	m.created = append(m.created, category)
	return nil
}

func (m *mockCategoryRepo) GetActiveByCode(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error) {
	if m.getActiveByCodeFunc != nil {
		return m.getActiveByCodeFunc(ctx, tenantID, code)
	}
	return nil, nil
}

func (m *mockCategoryRepo) ListActive(ctx context.Context, tenantID string) ([]*entity.PolicyCategory, error) {
	return nil, nil
}

type mockCommentRepo struct {
	createFunc func(ctx context.Context, comment *entity.Comment) error
	created    []*entity.Comment
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *entity.Comment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, comment)
	}
	m.created = append(m.created, comment)
	return nil
}

func (m *mockCommentRepo) ListByClaim(ctx context.Context, tenantID string, claimID int64, employeeView bool) ([]*entity.Comment, error) {
	return m.created, nil
}

type mockDocumentRepo struct {
	countByClaimFunc func(ctx context.Context, tenantID string, claimID int64) (int, error)
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error { return nil }

func (m *mockDocumentRepo) GetByID(ctx context.Context, tenantID string, id int64) (*entity.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepo) ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepo) CountByClaim(ctx context.Context, tenantID string, claimID int64) (int, error) {
	if m.countByClaimFunc != nil {
		return m.countByClaimFunc(ctx, tenantID, claimID)
	}
	return 1, nil
}

type mockApprovalRepo struct {
	created []*entity.ApprovalRecord
}

func (m *mockApprovalRepo) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	m.created = append(m.created, record)
	return nil
}

func (m *mockApprovalRepo) ListByClaim(ctx context.Context, tenantID string, claimID int64) ([]*entity.ApprovalRecord, error) {
	return m.created, nil
}

type mockNotificationRepo struct {
	created []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	return m.created, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return nil
}

type mockSettingsRepo struct {
	getFunc  func(ctx context.Context, tenantID string) (*entity.TenantSettings, error)
	upserted []*entity.TenantSettings
}

func (m *mockSettingsRepo) Get(ctx context.Context, tenantID string) (*entity.TenantSettings, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *entity.TenantSettings) error {
	m.upserted = append(m.upserted, settings)
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type fixture struct {
	claims        *mockClaimRepo
	categories    *mockCategoryRepo
	comments      *mockCommentRepo
	documents     *mockDocumentRepo
	approvals     *mockApprovalRepo
	notifications *mockNotificationRepo
	settings      *mockSettingsRepo
	service       ClaimService
}

func newFixture() *fixture {
	f := &fixture{
		claims:        &mockClaimRepo{},
		categories:    &mockCategoryRepo{},
		comments:      &mockCommentRepo{},
		documents:     &mockDocumentRepo{},
		approvals:     &mockApprovalRepo{},
		notifications: &mockNotificationRepo{},
		settings:      &mockSettingsRepo{},
	}
	f.service = NewClaimService(
		f.claims, f.categories, f.comments, f.documents,
		f.approvals, f.notifications, f.settings,
		&mockTxManager{}, testDefaults(), &mockLogger{},
	)
	return f
}

func testDefaults() entity.TenantSettings {
	return entity.TenantSettings{FiscalYearStartMonth: time.April}
}

func pendingManagerClaim() *entity.Claim {
	claimDate := time.Now()
	return &entity.Claim{
		ID:           7,
		TenantID:     "acme",
		ClaimNumber:  "CLM-2026-000007",
		EmployeeID:   "emp-1",
		EmployeeName: "Priya Nair",
		ClaimType:    entity.ClaimTypeReimbursement,
		CategoryCode: "TRAVEL",
		Amount:       1200,
		Currency:     "INR",
		Status:       entity.StatusPendingManager,
		ClaimDate:    &claimDate,
		Description:  "Airport transfer for the quarterly review",
	}
}

func TestClaimService_CreateClaim(t *testing.T) {
	f := newFixture()
	f.claims.countForYearFunc = func(ctx context.Context, tenantID string, year int) (int64, error) {
		return 41, nil
	}

	claim, err := f.service.CreateClaim(context.Background(), CreateClaimInput{
		TenantID:     "acme",
		EmployeeID:   "emp-1",
		EmployeeName: "Priya Nair",
		ClaimType:    entity.ClaimTypeReimbursement,
		CategoryCode: "TRAVEL",
		Amount:       1200,
		Description:  "Airport transfer",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, claim.Status)
	assert.Equal(t, "INR", claim.Currency)
	assert.Regexp(t, `^CLM-\d{4}-000042$`, claim.ClaimNumber)
	assert.Empty(t, f.approvals.created)
}

func TestClaimService_CreateClaimSubmitted(t *testing.T) {
	f := newFixture()

	claim, err := f.service.CreateClaim(context.Background(), CreateClaimInput{
		TenantID:     "acme",
		EmployeeID:   "emp-1",
		EmployeeName: "Priya Nair",
		ClaimType:    entity.ClaimTypeReimbursement,
		CategoryCode: "TRAVEL",
		Amount:       1200,
		Submit:       true,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingManager, claim.Status)
	assert.NotNil(t, claim.SubmissionDate)
	require.Len(t, f.approvals.created, 1)
	assert.Equal(t, entity.DecisionSubmitted, f.approvals.created[0].Decision)
}

func TestClaimService_CreateClaimValidation(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateClaim(context.Background(), CreateClaimInput{
		TenantID:  "acme",
		ClaimType: entity.ClaimTypeReimbursement,
		Amount:    0,
	})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidAmount)

	_, err = f.service.CreateClaim(context.Background(), CreateClaimInput{
		TenantID:  "acme",
		ClaimType: "GIFT",
		Amount:    100,
	})
	assert.Error(t, err)
}

func TestClaimService_TransitionPersistsEverything(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	var gotExpected string
	f.claims.updateStatusFunc = func(ctx context.Context, c *entity.Claim, expectedStatus string) error {
		gotExpected = expectedStatus
		return nil
	}

	outcome, updated, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID:  "acme",
		ClaimID:   7,
		Actor:     lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		ActorName: "Arun Mehta",
		Target:    workflow.StateReturned,
		Comment:   "attach the invoice for the toll charges",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusReturned, updated.Status)
	assert.Equal(t, entity.StatusPendingManager, gotExpected,
		"status write must be guarded by the pre-transition status")
	assert.Equal(t, 1, updated.ReturnCount)

	require.Len(t, f.approvals.created, 1)
	assert.Equal(t, entity.DecisionReturned, f.approvals.created[0].Decision)
	assert.Equal(t, "Arun Mehta", f.approvals.created[0].ApproverName)

	require.Len(t, f.comments.created, 1)
	assert.Equal(t, entity.CommentTypeReturn, f.comments.created[0].Type)
	assert.True(t, f.comments.created[0].VisibleToEmployee)

	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, entity.NotificationKindReturn, f.notifications.created[0].Kind)
	assert.Equal(t, "emp-1", f.notifications.created[0].RecipientID)

	assert.Equal(t, workflow.StateReturned, outcome.To)
}

func TestClaimService_TransitionGuardFailureWritesNothing(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	_, _, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID: "acme",
		ClaimID:  7,
		Actor:    lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:   workflow.StateRejected,
	})

	assert.ErrorIs(t, err, workflow.ErrMissingRequiredComment)
	assert.Equal(t, entity.StatusPendingManager, claim.Status)
	assert.Empty(t, f.approvals.created)
	assert.Empty(t, f.comments.created)
	assert.Empty(t, f.notifications.created)
}

func TestClaimService_TransitionClaimNotFound(t *testing.T) {
	f := newFixture()

	_, _, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID: "acme",
		ClaimID:  99,
		Actor:    lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:   workflow.StatePendingHR,
	})

	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestClaimService_TransitionStatusConflict(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}
	f.claims.updateStatusFunc = func(ctx context.Context, c *entity.Claim, expectedStatus string) error {
		return port.ErrStatusConflict
	}

	_, _, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID: "acme",
		ClaimID:  7,
		Actor:    lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:   workflow.StatePendingHR,
	})

	assert.ErrorIs(t, err, port.ErrStatusConflict)
}

func TestClaimService_TransitionAutoApproval(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.AIConfidence = 97
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}
	f.categories.getActiveByCodeFunc = func(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error) {
		maxAmount := 5000.0
		window := 30
		return &entity.PolicyCategory{
			CategoryCode:         "TRAVEL",
			CategoryName:         "Travel",
			MaxAmount:            &maxAmount,
			SubmissionWindowDays: &window,
		}, nil
	}
	f.settings.getFunc = func(ctx context.Context, tenantID string) (*entity.TenantSettings, error) {
		return &entity.TenantSettings{
			TenantID:             tenantID,
			FiscalYearStartMonth: time.April,
			AutoApproval: entity.AutoApprovalConfig{
				Enabled:               true,
				Threshold:             95,
				MaxAutoApprovalAmount: 5000,
				AutoSkipAfterManager:  true,
			},
		}, nil
	}

	outcome, updated, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID: "acme",
		ClaimID:  7,
		Actor:    lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:   workflow.StatePendingHR,
	})

	require.NoError(t, err)
	assert.True(t, outcome.AutoAdvanced)
	assert.Equal(t, entity.StatusFinanceApproved, updated.Status)
	require.Len(t, f.approvals.created, 2)
	assert.Equal(t, entity.DecisionAutoApproved, f.approvals.created[1].Decision)
}

func TestClaimService_EditAndResubmit(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.Status = entity.StatusReturned
	claim.ReturnCount = 1
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	newAmount := 900.0
	updated, err := f.service.EditAndResubmit(context.Background(), "acme", 7,
		lifecycle.Actor{ID: "emp-1", Role: workflow.RoleEmployee},
		lifecycle.ClaimEdit{Amount: &newAmount}, true)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingManager, updated.Status)
	assert.Equal(t, 900.0, updated.Amount)
	assert.Equal(t, entity.FieldSourceEdited, updated.FieldSources["amount"])
}

func TestClaimService_EditRejectedForNonOwner(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.Status = entity.StatusReturned
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	newAmount := 900.0
	_, err := f.service.EditAndResubmit(context.Background(), "acme", 7,
		lifecycle.Actor{ID: "emp-2", Role: workflow.RoleEmployee},
		lifecycle.ClaimEdit{Amount: &newAmount}, false)

	assert.ErrorIs(t, err, workflow.ErrClaimNotEditable)
}

func TestClaimService_Compliance(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	report, err := f.service.Compliance(context.Background(), "acme", 7)

	require.NoError(t, err)
	require.Len(t, report.Checks, 6)
	assert.Nil(t, report.Category, "no active category matched")
}

func TestClaimService_GetCategoryUnresolved(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetCategory(context.Background(), "acme", "UNKNOWN")
	assert.ErrorIs(t, err, workflow.ErrUnresolvedPolicy)
}

func TestClaimService_AddCommentOnSettledClaim(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.Status = entity.StatusSettled
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	comment, err := f.service.AddComment(context.Background(), CommentInput{
		TenantID:   "acme",
		ClaimID:    7,
		AuthorID:   "emp-1",
		AuthorRole: string(workflow.RoleEmployee),
		Text:       "thanks, received the payment",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.CommentTypeGeneral, comment.Type,
		"comment threads stay open on terminal claims")
}

func TestClaimService_AddCommentMissingClaim(t *testing.T) {
	f := newFixture()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return nil, nil
	}

	_, err := f.service.AddComment(context.Background(), CommentInput{TenantID: "acme", ClaimID: 1})
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestClaimService_ConfiguredDefaultsApplyToUnconfiguredTenant(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.AIConfidence = 97
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}
	f.categories.getActiveByCodeFunc = func(ctx context.Context, tenantID, code string) (*entity.PolicyCategory, error) {
		maxAmount := 5000.0
		return &entity.PolicyCategory{CategoryCode: "TRAVEL", CategoryName: "Travel", MaxAmount: &maxAmount}, nil
	}

	// No settings row for the tenant; the service-level defaults decide.
	f.service = NewClaimService(
		f.claims, f.categories, f.comments, f.documents,
		f.approvals, f.notifications, f.settings,
		&mockTxManager{}, entity.TenantSettings{
			FiscalYearStartMonth: time.April,
			AutoApproval: entity.AutoApprovalConfig{
				Enabled:               true,
				Threshold:             95,
				MaxAutoApprovalAmount: 5000,
				AutoSkipAfterManager:  true,
			},
		}, &mockLogger{},
	)

	outcome, updated, err := f.service.Transition(context.Background(), TransitionInput{
		TenantID: "acme",
		ClaimID:  7,
		Actor:    lifecycle.Actor{ID: "mgr-1", Role: workflow.RoleManager},
		Target:   workflow.StatePendingHR,
	})

	require.NoError(t, err)
	assert.True(t, outcome.AutoAdvanced)
	assert.Equal(t, entity.StatusFinanceApproved, updated.Status)
}

func TestClaimService_DefaultsFallBackToAprilFiscalYear(t *testing.T) {
	f := newFixture()
	f.service = NewClaimService(
		f.claims, f.categories, f.comments, f.documents,
		f.approvals, f.notifications, f.settings,
		&mockTxManager{}, entity.TenantSettings{FiscalYearStartMonth: 0}, &mockLogger{},
	)

	settings, err := f.service.GetSettings(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "acme", settings.TenantID)
	assert.Equal(t, time.April, settings.FiscalYearStartMonth)
}

func TestClaimService_CheckDuplicates(t *testing.T) {
	f := newFixture()
	claim := pendingManagerClaim()
	claim.TransactionRef = "TXN-4471"
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return claim, nil
	}

	t.Run("no matches", func(t *testing.T) {
		report, err := f.service.CheckDuplicates(context.Background(), "acme", 7)

		require.NoError(t, err)
		assert.False(t, report.IsDuplicate)
		assert.Empty(t, report.Claims)
	})

	t.Run("partial match on amount and date", func(t *testing.T) {
		f.claims.findDuplicatesFunc = func(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error) {
			assert.Equal(t, "acme", tenantID)
			assert.Equal(t, "emp-1", employeeID)
			assert.Equal(t, 1200.0, amount)
			assert.Equal(t, int64(7), excludeID)
			return []*entity.Claim{{ID: 3, Amount: 1200}}, nil
		}

		report, err := f.service.CheckDuplicates(context.Background(), "acme", 7)

		require.NoError(t, err)
		assert.True(t, report.IsDuplicate)
		assert.Equal(t, DuplicateMatchPartial, report.MatchType)
		require.Len(t, report.Claims, 1)
	})

	t.Run("exact match on transaction reference", func(t *testing.T) {
		f.claims.findDuplicatesFunc = func(ctx context.Context, tenantID, employeeID string, amount float64, claimDate time.Time, excludeID int64) ([]*entity.Claim, error) {
			return []*entity.Claim{
				{ID: 3, Amount: 1200},
				{ID: 4, Amount: 1200, TransactionRef: " txn-4471 "},
			}, nil
		}

		report, err := f.service.CheckDuplicates(context.Background(), "acme", 7)

		require.NoError(t, err)
		assert.True(t, report.IsDuplicate)
		assert.Equal(t, DuplicateMatchExact, report.MatchType)
		require.Len(t, report.Claims, 2)
		assert.Equal(t, int64(4), report.Claims[0].ID,
			"reference matches sort ahead of amount-only matches")
	})

	t.Run("no claim date means no report", func(t *testing.T) {
		claim.ClaimDate = nil
		report, err := f.service.CheckDuplicates(context.Background(), "acme", 7)

		require.NoError(t, err)
		assert.False(t, report.IsDuplicate)
	})
}

func TestClaimService_CreateCategory(t *testing.T) {
	f := newFixture()

	err := f.service.CreateCategory(context.Background(), &entity.PolicyCategory{
		TenantID:     "acme",
		CategoryCode: "MEALS",
		CategoryName: "Meals",
		CategoryType: entity.ClaimTypeReimbursement,
	})

	require.NoError(t, err)
	require.Len(t, f.categories.created, 1)
	assert.True(t, f.categories.created[0].Active)
}

func TestClaimService_CreateCategoryValidation(t *testing.T) {
	f := newFixture()

	err := f.service.CreateCategory(context.Background(), &entity.PolicyCategory{
		TenantID: "acme",
	})
	assert.Error(t, err)

	minAmount, maxAmount := 500.0, 100.0
	err = f.service.CreateCategory(context.Background(), &entity.PolicyCategory{
		TenantID:     "acme",
		CategoryCode: "MEALS",
		CategoryName: "Meals",
		MinAmount:    &minAmount,
		MaxAmount:    &maxAmount,
	})
	assert.Error(t, err)
	assert.Empty(t, f.categories.created)
}

func TestClaimService_UpdateSettings(t *testing.T) {
	f := newFixture()

	err := f.service.UpdateSettings(context.Background(), &entity.TenantSettings{
		TenantID:             "acme",
		FiscalYearStartMonth: time.January,
		AutoApproval: entity.AutoApprovalConfig{
			Enabled:               true,
			Threshold:             90,
			MaxAutoApprovalAmount: 2000,
		},
	})

	require.NoError(t, err)
	require.Len(t, f.settings.upserted, 1)
	assert.Equal(t, time.January, f.settings.upserted[0].FiscalYearStartMonth)
}

func TestClaimService_UpdateSettingsValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name     string
		settings entity.TenantSettings
	}{
		{"missing tenant", entity.TenantSettings{FiscalYearStartMonth: time.April}},
		{"month out of range", entity.TenantSettings{TenantID: "acme", FiscalYearStartMonth: 13}},
		{"threshold above 100", entity.TenantSettings{
			TenantID:             "acme",
			FiscalYearStartMonth: time.April,
			AutoApproval:         entity.AutoApprovalConfig{Threshold: 120},
		}},
		{"auto-approval without max amount", entity.TenantSettings{
			TenantID:             "acme",
			FiscalYearStartMonth: time.April,
			AutoApproval:         entity.AutoApprovalConfig{Enabled: true, Threshold: 95},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := tt.settings
			assert.Error(t, f.service.UpdateSettings(context.Background(), &settings))
		})
	}
	assert.Empty(t, f.settings.upserted)
}

func TestClaimService_RepoErrorPropagates(t *testing.T) {
	f := newFixture()
	f.claims.getByIDFunc = func(ctx context.Context, tenantID string, id int64) (*entity.Claim, error) {
		return nil, errors.New("disk on fire")
	}

	_, err := f.service.GetClaim(context.Background(), "acme", 7)
	assert.Error(t, err)
}
