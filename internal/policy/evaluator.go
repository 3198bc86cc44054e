// Package policy implements the compliance evaluation of claims against
// tenant policy categories. The evaluator is a pure function of its inputs:
// the caller supplies the claim snapshot, the matched category and today's
// date, so identical inputs always yield identical check lists.
package policy

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/clearledger/claimflow/internal/domain/entity"
)

// CheckStatus is the verdict of a single compliance check
type CheckStatus string

const (
	StatusPass     CheckStatus = "pass"
	StatusFail     CheckStatus = "fail"
	StatusWarning  CheckStatus = "warning"
	StatusChecking CheckStatus = "checking"
)

// CheckID is the stable identifier of a compliance check
type CheckID string

const (
	CheckCategory      CheckID = "category"
	CheckAmount        CheckID = "amount"
	CheckDate          CheckID = "date"
	CheckDocuments     CheckID = "docs"
	CheckFinancialYear CheckID = "financial_year"
	CheckDescription   CheckID = "description"
)

// Check is one named verdict produced by an evaluation. Checks are ephemeral
// and recomputed on every call; they are never persisted.
type Check struct {
	ID      CheckID     `json:"id"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// ClaimSnapshot carries the claim fields the evaluator inspects.
type ClaimSnapshot struct {
	Amount        float64
	ClaimDate     *time.Time
	Description   string
	CategoryCode  string
	DocumentCount int
}

// Descriptions shorter than this are flagged as inadequate.
const minDescriptionLength = 10

// Evaluator produces compliance reports for claim snapshots. The fiscal
// year start month is tenant configuration fixed at construction time.
type Evaluator struct {
	fiscalYearStart time.Month
}

// NewEvaluator creates an evaluator for a tenant's fiscal year convention.
// Out-of-range months fall back to the April default.
func NewEvaluator(fiscalYearStart time.Month) *Evaluator {
	if fiscalYearStart < time.January || fiscalYearStart > time.December {
		fiscalYearStart = DefaultFiscalYearStartMonth
	}
	return &Evaluator{fiscalYearStart: fiscalYearStart}
}

// Evaluate runs all compliance checks against the snapshot. The category may
// be nil when no active policy category matches the claim's category code;
// limit checks then degrade to warnings rather than failing. The returned
// list always has six checks in fixed order: category, amount, date,
// documents, financial year, description.
func (e *Evaluator) Evaluate(snap ClaimSnapshot, category *entity.PolicyCategory, today time.Time) []Check {
	return []Check{
		e.checkCategory(snap, category),
		e.checkAmount(snap, category),
		e.checkDate(snap, category, today),
		e.checkDocuments(snap, category),
		e.checkFinancialYear(snap, today),
		e.checkDescription(snap),
	}
}

func (e *Evaluator) checkCategory(snap ClaimSnapshot, category *entity.PolicyCategory) Check {
	if snap.CategoryCode == "" {
		return Check{CheckCategory, StatusWarning, "Category not set"}
	}
	if category != nil {
		return Check{CheckCategory, StatusPass, fmt.Sprintf("Matched policy category %s", category.CategoryName)}
	}
	return Check{CheckCategory, StatusPass, fmt.Sprintf("Category %s set", snap.CategoryCode)}
}

func (e *Evaluator) checkAmount(snap ClaimSnapshot, category *entity.PolicyCategory) Check {
	if category == nil {
		return Check{CheckAmount, StatusWarning, "No policy limits configured for this category"}
	}
	if category.MaxAmount == nil {
		return Check{CheckAmount, StatusPass, "No amount limit defined for this category"}
	}
	if snap.Amount <= 0 {
		return Check{CheckAmount, StatusChecking, "Awaiting claim amount"}
	}
	if snap.Amount > *category.MaxAmount {
		return Check{CheckAmount, StatusFail,
			fmt.Sprintf("Amount %.2f exceeds the category limit of %.2f", snap.Amount, *category.MaxAmount)}
	}
	return Check{CheckAmount, StatusPass,
		fmt.Sprintf("Amount %.2f is within the limit of %.2f", snap.Amount, *category.MaxAmount)}
}

func (e *Evaluator) checkDate(snap ClaimSnapshot, category *entity.PolicyCategory, today time.Time) Check {
	if category == nil {
		return Check{CheckDate, StatusWarning, "No submission window configured for this category"}
	}
	if category.SubmissionWindowDays == nil {
		return Check{CheckDate, StatusPass, "No submission window restriction"}
	}
	if snap.ClaimDate == nil {
		return Check{CheckDate, StatusChecking, "Awaiting claim date"}
	}

	window := *category.SubmissionWindowDays
	days := daysBetween(*snap.ClaimDate, today)
	if days > window {
		return Check{CheckDate, StatusFail,
			fmt.Sprintf("Claim is %d days old, exceeds the %d-day submission window", days, window)}
	}
	return Check{CheckDate, StatusPass,
		fmt.Sprintf("Claim is %d days old, within the %d-day submission window", days, window)}
}

func (e *Evaluator) checkDocuments(snap ClaimSnapshot, category *entity.PolicyCategory) Check {
	required := 1
	if category != nil {
		if min := category.MinDocuments(); min > required {
			required = min
		}
	}

	switch {
	case snap.DocumentCount == 0:
		return Check{CheckDocuments, StatusWarning, "No documents attached"}
	case snap.DocumentCount < required:
		return Check{CheckDocuments, StatusWarning,
			fmt.Sprintf("Only %d of %d required documents attached", snap.DocumentCount, required)}
	default:
		return Check{CheckDocuments, StatusPass,
			fmt.Sprintf("%d supporting document(s) attached", snap.DocumentCount)}
	}
}

func (e *Evaluator) checkFinancialYear(snap ClaimSnapshot, today time.Time) Check {
	if snap.ClaimDate == nil {
		return Check{CheckFinancialYear, StatusChecking, "Awaiting claim date"}
	}

	fy := CurrentFiscalYear(today, e.fiscalYearStart)
	date := snap.ClaimDate.Format("2006-01-02")
	if fy.Contains(*snap.ClaimDate) {
		return Check{CheckFinancialYear, StatusPass,
			fmt.Sprintf("Claim date %s falls within the current %s", date, fy.Label())}
	}
	return Check{CheckFinancialYear, StatusFail,
		fmt.Sprintf("Claim date %s is outside the current %s", date, fy.Label())}
}

func (e *Evaluator) checkDescription(snap ClaimSnapshot) Check {
	if utf8.RuneCountInString(snap.Description) > minDescriptionLength {
		return Check{CheckDescription, StatusPass, "Description provided"}
	}
	return Check{CheckDescription, StatusWarning, "Description is too brief"}
}

// daysBetween returns the whole number of days from one date to another,
// ignoring the time of day on both.
func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// HasFailures reports whether any check failed. A single failure blocks the
// auto-approval fast path.
func HasFailures(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// Overall collapses a check list into one verdict: fail if anything failed,
// warning if anything is a warning or still checking, pass otherwise.
func Overall(checks []Check) CheckStatus {
	overall := StatusPass
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return StatusFail
		case StatusWarning, StatusChecking:
			overall = StatusWarning
		}
	}
	return overall
}
