package yukyu_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hasIssue(res yukyu.ValidationResult, code string) bool {
	for _, issue := range res.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// consistentEmployee builds an employee whose derived state matches its
// periods exactly.
func consistentEmployee(asOf yukyu.Date) yukyu.Employee {
	e := hiredEmployee("emp-ok", date(2021, time.May, 10))
	e.Periods = append(e.Periods, yukyu.DuePeriods(e, asOf)...)
	yukyu.Aggregate(&e, asOf)
	return e
}

// =============================================================================
// TIER 1: SOURCE OF TRUTH
// =============================================================================

func TestValidate_HireDateButNoPeriods_Critical(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := hiredEmployee("emp-1", date(2021, time.May, 10))

	res := yukyu.ValidateEmployee(e, asOf)

	assert.True(t, res.HasCritical)
	assert.True(t, hasIssue(res, yukyu.IssueNoPeriods))
	assert.True(t, res.NeedsRepair())
}

func TestValidate_PeriodsButNoAggregates_Critical(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := hiredEmployee("emp-1", date(2021, time.May, 10))
	e.Periods = yukyu.DuePeriods(e, asOf)
	// Aggregate never ran: Current is nil.

	res := yukyu.ValidateEmployee(e, asOf)

	assert.True(t, res.HasCritical)
	assert.True(t, hasIssue(res, yukyu.IssueMissingAggregates))
}

// =============================================================================
// TIER 2: ARITHMETIC
// =============================================================================

func TestValidate_NegativeBalance_Error(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Current.Balance = dec(-2)

	res := yukyu.ValidateEmployee(e, asOf)

	assert.True(t, res.HasError)
	assert.True(t, hasIssue(res, yukyu.IssueNegativeBalance))
}

func TestValidate_BalanceIdentity_ToleratesOneDay(t *testing.T) {
	// GIVEN: balance differs from granted-used by exactly one day
	// THEN: No finding; imported payroll figures round
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Current.Balance = e.Current.Balance.Sub(dec(1))

	res := yukyu.ValidateEmployee(e, asOf)
	assert.False(t, hasIssue(res, yukyu.IssueBalanceIdentity))

	// A two-day gap is out of tolerance
	e.Current.Balance = e.Current.Balance.Sub(dec(1))
	res = yukyu.ValidateEmployee(e, asOf)
	assert.True(t, hasIssue(res, yukyu.IssueBalanceIdentity))
}

func TestValidate_CapExceeded_Error(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Current.Balance = dec(41)
	e.Current.Granted = dec(42)
	e.Balance = e.Current.Balance
	e.Granted = e.Current.Granted

	res := yukyu.ValidateEmployee(e, asOf)
	assert.True(t, hasIssue(res, yukyu.IssueCapExceeded))
}

func TestValidate_UsedExceedsGranted_Error(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Current.Used = e.Current.Granted.Add(dec(5))

	res := yukyu.ValidateEmployee(e, asOf)
	assert.True(t, hasIssue(res, yukyu.IssueUsedExceedsGranted))
}

// =============================================================================
// TIER 3: DRIFT
// =============================================================================

func TestValidate_LegacyDrift_Warning(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Balance = e.Balance.Add(dec(3)) // mirror drifted

	res := yukyu.ValidateEmployee(e, asOf)

	assert.True(t, res.HasWarning)
	assert.False(t, res.NeedsRepair(), "warnings alone do not trigger repair")
	assert.True(t, hasIssue(res, yukyu.IssueLegacyDrift))
}

func TestValidate_DateCountDrift_ToleratesThree(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)

	// Three dates against zero used: inside tolerance
	e.LeaveDates = []yukyu.Date{
		date(2024, time.December, 2), date(2024, time.December, 3), date(2024, time.December, 4),
	}
	res := yukyu.ValidateEmployee(e, asOf)
	assert.False(t, hasIssue(res, yukyu.IssueDateCountDrift))

	// Four dates: out of tolerance
	e.LeaveDates = append(e.LeaveDates, date(2024, time.December, 5))
	res = yukyu.ValidateEmployee(e, asOf)
	assert.True(t, hasIssue(res, yukyu.IssueDateCountDrift))
}

func TestValidate_StaleGranted_Warning(t *testing.T) {
	// GIVEN: Aggregates computed before a period lapsed
	// WHEN: Validated at a later date where reclassification changes the sum
	// THEN: The stored current granted is flagged stale
	earlier := date(2025, time.January, 3)
	e := consistentEmployee(earlier)

	later := date(2025, time.December, 1) // the 30-month grant lapsed 2025-11-10
	res := yukyu.ValidateEmployee(e, later)

	assert.True(t, hasIssue(res, yukyu.IssueStaleGranted))
}

// =============================================================================
// TIER 4: INFO
// =============================================================================

func TestValidate_InfoFindings(t *testing.T) {
	asOf := date(2025, time.January, 3)
	e := yukyu.Employee{ID: "emp-1", Status: yukyu.StatusActive}

	res := yukyu.ValidateEmployee(e, asOf)

	assert.True(t, hasIssue(res, yukyu.IssueNoHireDate))
	assert.True(t, hasIssue(res, yukyu.IssueNoLeaveDates))
	assert.False(t, res.NeedsRepair())
}

// =============================================================================
// FLEET REPORT
// =============================================================================

func TestValidateAll_CountsAndFiltering(t *testing.T) {
	asOf := date(2025, time.January, 3)

	broken := hiredEmployee("emp-broken", date(2021, time.May, 10)) // no periods: critical
	ok := consistentEmployee(asOf)
	ok.LeaveDates = []yukyu.Date{date(2024, time.June, 1)}

	report := yukyu.ValidateAll([]yukyu.Employee{broken, ok}, asOf)

	assert.Equal(t, 2, report.Checked)
	assert.True(t, report.HasBlockingIssues())
	assert.GreaterOrEqual(t, report.Counts[yukyu.SeverityCritical], 1)

	// Only employees with findings appear in Results; the consistent one
	// has none at all.
	require.Len(t, report.Results, 1)
	assert.Equal(t, "emp-broken", report.Results[0].EmployeeID)
}
