package policy

import (
	"fmt"
	"strings"
	"time"
)

// DefaultFiscalYearStartMonth is used when a tenant has not configured a
// fiscal year start. April matches the most common regional convention of
// the deployments this system serves.
const DefaultFiscalYearStartMonth = time.April

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// MonthFromName resolves a configured month name ("april", "Jan") to a
// time.Month.
func MonthFromName(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// FiscalYear is a tenant's 12-month accounting period.
type FiscalYear struct {
	Start time.Time
	End   time.Time
}

// CurrentFiscalYear returns the fiscal year containing today for the given
// start month. A fiscal year starting in April runs from April 1 through
// March 31 of the following calendar year.
func CurrentFiscalYear(today time.Time, startMonth time.Month) FiscalYear {
	if startMonth < time.January || startMonth > time.December {
		startMonth = DefaultFiscalYearStartMonth
	}

	startYear := today.Year()
	if today.Month() < startMonth {
		startYear--
	}

	start := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, today.Location())
	end := start.AddDate(1, 0, -1)

	return FiscalYear{Start: start, End: end}
}

// Contains reports whether the given date falls within the fiscal year.
// Only the calendar date matters, not the time of day.
func (fy FiscalYear) Contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, fy.Start.Location())
	return !day.Before(fy.Start) && !day.After(fy.End)
}

// Label renders the fiscal year in the reporting form "FY 2025-26". The
// second component is always the year after the start year, so a
// January-start period covering calendar 2026 reads "FY 2026-27".
func (fy FiscalYear) Label() string {
	return fmt.Sprintf("FY %d-%02d", fy.Start.Year(), (fy.Start.Year()+1)%100)
}
