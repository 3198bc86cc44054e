package policy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/claimflow/internal/domain/entity"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var testToday = time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)

func travelCategory() *entity.PolicyCategory {
	return &entity.PolicyCategory{
		CategoryCode:         "TRAVEL",
		CategoryName:         "Travel",
		CategoryType:         entity.ClaimTypeReimbursement,
		MaxAmount:            floatPtr(5000),
		Currency:             "INR",
		SubmissionWindowDays: intPtr(30),
		ReceiptRequired:      true,
		Active:               true,
	}
}

func compliantSnapshot() ClaimSnapshot {
	return ClaimSnapshot{
		Amount:        1200,
		ClaimDate:     datePtr(2026, time.January, 5),
		Description:   "Taxi from airport to client site",
		CategoryCode:  "TRAVEL",
		DocumentCount: 1,
	}
}

func TestEvaluate_FixedOrderAndLength(t *testing.T) {
	e := NewEvaluator(time.April)

	checks := e.Evaluate(compliantSnapshot(), travelCategory(), testToday)
	require.Len(t, checks, 6)

	wantOrder := []CheckID{
		CheckCategory, CheckAmount, CheckDate,
		CheckDocuments, CheckFinancialYear, CheckDescription,
	}
	for i, id := range wantOrder {
		assert.Equal(t, id, checks[i].ID)
	}
}

func TestEvaluate_AllPassForCompliantClaim(t *testing.T) {
	e := NewEvaluator(time.April)

	checks := e.Evaluate(compliantSnapshot(), travelCategory(), testToday)
	for _, c := range checks {
		assert.Equal(t, StatusPass, c.Status, "check %s: %s", c.ID, c.Message)
	}
	assert.Equal(t, StatusPass, Overall(checks))
	assert.False(t, HasFailures(checks))
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	category := travelCategory()

	first := e.Evaluate(snap, category, testToday)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Evaluate(snap, category, testToday))
	}
}

func TestEvaluate_AmountOverLimit(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	snap.Amount = 6000

	checks := e.Evaluate(snap, travelCategory(), testToday)

	amount := checks[1]
	assert.Equal(t, CheckAmount, amount.ID)
	assert.Equal(t, StatusFail, amount.Status)
	assert.Contains(t, amount.Message, "6000.00")
	assert.Contains(t, amount.Message, "5000.00")
}

func TestEvaluate_AmountBoundary(t *testing.T) {
	e := NewEvaluator(time.April)

	tests := []struct {
		amount float64
		want   CheckStatus
	}{
		{4999.99, StatusPass},
		{5000, StatusPass},
		{5000.01, StatusFail},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.amount), func(t *testing.T) {
			snap := compliantSnapshot()
			snap.Amount = tt.amount
			checks := e.Evaluate(snap, travelCategory(), testToday)
			assert.Equal(t, tt.want, checks[1].Status)
		})
	}
}

func TestEvaluate_AmountWithoutCategory(t *testing.T) {
	e := NewEvaluator(time.April)

	checks := e.Evaluate(compliantSnapshot(), nil, testToday)
	assert.Equal(t, StatusWarning, checks[1].Status)
	assert.Equal(t, StatusWarning, checks[2].Status)
}

func TestEvaluate_AmountWithoutLimit(t *testing.T) {
	e := NewEvaluator(time.April)
	category := travelCategory()
	category.MaxAmount = nil

	checks := e.Evaluate(compliantSnapshot(), category, testToday)
	assert.Equal(t, StatusPass, checks[1].Status)
	assert.Contains(t, checks[1].Message, "No amount limit")
}

func TestEvaluate_AmountUnset(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	snap.Amount = 0

	checks := e.Evaluate(snap, travelCategory(), testToday)
	assert.Equal(t, StatusChecking, checks[1].Status)
}

func TestEvaluate_SubmissionWindowExceeded(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	old := testToday.AddDate(0, 0, -40)
	snap.ClaimDate = &old

	checks := e.Evaluate(snap, travelCategory(), testToday)

	date := checks[2]
	assert.Equal(t, StatusFail, date.Status)
	assert.Contains(t, date.Message, "40 days old")
	assert.Contains(t, date.Message, "30-day")
}

func TestEvaluate_SubmissionWindowBoundary(t *testing.T) {
	e := NewEvaluator(time.April)

	tests := []struct {
		daysOld int
		want    CheckStatus
	}{
		{0, StatusPass},
		{29, StatusPass},
		{30, StatusPass},
		{31, StatusFail},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.daysOld), func(t *testing.T) {
			snap := compliantSnapshot()
			d := testToday.AddDate(0, 0, -tt.daysOld)
			snap.ClaimDate = &d
			checks := e.Evaluate(snap, travelCategory(), testToday)
			assert.Equal(t, tt.want, checks[2].Status, checks[2].Message)
		})
	}
}

func TestEvaluate_DateUnset(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	snap.ClaimDate = nil

	checks := e.Evaluate(snap, travelCategory(), testToday)
	assert.Equal(t, StatusChecking, checks[2].Status)
	assert.Equal(t, StatusChecking, checks[4].Status)
}

func TestEvaluate_NoSubmissionWindow(t *testing.T) {
	e := NewEvaluator(time.April)
	category := travelCategory()
	category.SubmissionWindowDays = nil

	checks := e.Evaluate(compliantSnapshot(), category, testToday)
	assert.Equal(t, StatusPass, checks[2].Status)
	assert.Contains(t, checks[2].Message, "No submission window")
}

func TestEvaluate_Documents(t *testing.T) {
	e := NewEvaluator(time.April)

	tests := []struct {
		name     string
		count    int
		required int
		want     CheckStatus
	}{
		{"none attached", 0, 1, StatusWarning},
		{"one attached", 1, 1, StatusPass},
		{"several attached", 3, 1, StatusPass},
		{"short of configured bound", 1, 2, StatusWarning},
		{"meets configured bound", 2, 2, StatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := compliantSnapshot()
			snap.DocumentCount = tt.count
			category := travelCategory()
			category.RequiredDocumentCount = tt.required

			checks := e.Evaluate(snap, category, testToday)
			assert.Equal(t, tt.want, checks[3].Status, checks[3].Message)
		})
	}
}

func TestEvaluate_NoDocumentsMessage(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	snap.DocumentCount = 0

	checks := e.Evaluate(snap, travelCategory(), testToday)
	assert.Equal(t, "No documents attached", checks[3].Message)
}

func TestEvaluate_FinancialYear(t *testing.T) {
	e := NewEvaluator(time.April)

	tests := []struct {
		name      string
		claimDate *time.Time
		want      CheckStatus
	}{
		{"within current FY", datePtr(2025, time.June, 10), StatusPass},
		{"start of current FY", datePtr(2025, time.April, 1), StatusPass},
		{"end of current FY", datePtr(2026, time.March, 31), StatusPass},
		{"previous FY", datePtr(2025, time.March, 31), StatusFail},
		{"next FY", datePtr(2026, time.April, 1), StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := compliantSnapshot()
			snap.ClaimDate = tt.claimDate
			checks := e.Evaluate(snap, travelCategory(), testToday)
			assert.Equal(t, tt.want, checks[4].Status, checks[4].Message)
			assert.Contains(t, checks[4].Message, "FY 2025-26")
		})
	}
}

func TestEvaluate_Description(t *testing.T) {
	e := NewEvaluator(time.April)

	tests := []struct {
		name        string
		description string
		want        CheckStatus
	}{
		{"adequate", "Team lunch with the platform group", StatusPass},
		{"too short", "Lunch", StatusWarning},
		{"empty", "", StatusWarning},
		{"exactly ten characters", "abcdefghij", StatusWarning},
		{"eleven characters", "abcdefghijk", StatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := compliantSnapshot()
			snap.Description = tt.description
			checks := e.Evaluate(snap, travelCategory(), testToday)
			assert.Equal(t, tt.want, checks[5].Status)
		})
	}
}

func TestEvaluate_CategoryNotSet(t *testing.T) {
	e := NewEvaluator(time.April)
	snap := compliantSnapshot()
	snap.CategoryCode = ""

	checks := e.Evaluate(snap, nil, testToday)
	assert.Equal(t, StatusWarning, checks[0].Status)
	assert.Equal(t, "Category not set", checks[0].Message)
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		want   CheckStatus
	}{
		{"all pass", []Check{{Status: StatusPass}, {Status: StatusPass}}, StatusPass},
		{"warning present", []Check{{Status: StatusPass}, {Status: StatusWarning}}, StatusWarning},
		{"checking counts as warning", []Check{{Status: StatusPass}, {Status: StatusChecking}}, StatusWarning},
		{"fail dominates", []Check{{Status: StatusWarning}, {Status: StatusFail}}, StatusFail},
		{"empty", nil, StatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overall(tt.checks))
		})
	}
}
