/*
validate.go - Consistency checks over stored derived state

PURPOSE:
  Inspects an employee's STORED derived fields - which may be stale
  relative to what Aggregate would compute fresh - and emits typed
  findings by severity. The validator never mutates and never throws:
  the caller decides policy (repair on critical/error, log the rest).

SEVERITY LADDER:
  Critical: the source of truth itself is broken (hire date but no
            periods; periods but no computed aggregates)
  Error:    the stored numbers are arithmetically impossible
  Warning:  drift between mirrors/caches and derived values
  Info:     notable but harmless absences

TOLERANCES:
  Balance identity allows a 1-day gap (rounding in imported payroll
  figures); the consumption-date count allows a 3-day gap (dates can
  straddle a period boundary during regeneration).

SEE ALSO:
  - reconcile.go: The repair path for what this file finds
*/
package yukyu

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FINDINGS
// =============================================================================

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is one validator finding. Code is stable; Message is for humans.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
}

// Finding codes.
const (
	IssueNoPeriods                = "NO_PERIODS"
	IssueMissingAggregates        = "MISSING_AGGREGATES"
	IssueNegativeBalance          = "NEGATIVE_BALANCE"
	IssueGrantedExceedsHistorical = "GRANTED_EXCEEDS_HISTORICAL"
	IssueUsedExceedsGranted       = "USED_EXCEEDS_GRANTED"
	IssueBalanceIdentity          = "BALANCE_IDENTITY"
	IssueCapExceeded              = "CAP_EXCEEDED"
	IssueLegacyDrift              = "LEGACY_DRIFT"
	IssueDateCountDrift           = "DATE_COUNT_DRIFT"
	IssueStaleGranted             = "STALE_GRANTED"
	IssueNoHireDate               = "NO_HIRE_DATE"
	IssueNoLeaveDates             = "NO_LEAVE_DATES"
)

// ValidationResult is the full issue list for one employee plus flags a
// caller can branch on without walking the list.
type ValidationResult struct {
	EmployeeID string
	Issues     []Issue

	HasCritical bool
	HasError    bool
	HasWarning  bool
}

func (r *ValidationResult) add(sev Severity, code, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Message: msg})
	switch sev {
	case SeverityCritical:
		r.HasCritical = true
	case SeverityError:
		r.HasError = true
	case SeverityWarning:
		r.HasWarning = true
	}
}

// NeedsRepair reports whether the standard auto-repair policy applies.
func (r ValidationResult) NeedsRepair() bool { return r.HasCritical || r.HasError }

// =============================================================================
// PER-EMPLOYEE VALIDATION
// =============================================================================

var balanceTolerance = decimal.NewFromInt(1)

const dateCountTolerance = 3

// ValidateEmployee runs the four-tier check list against one employee's
// stored state. Read-only.
func ValidateEmployee(e Employee, asOf Date) ValidationResult {
	res := ValidationResult{EmployeeID: e.ID}

	// Tier 1: source-of-truth integrity.
	if e.HireDate != nil && len(e.Periods) == 0 {
		res.add(SeverityCritical, IssueNoPeriods,
			fmt.Sprintf("hire date %s present but no accrual periods derived", e.HireDate))
	}
	if len(e.Periods) > 0 && e.Current == nil {
		res.add(SeverityCritical, IssueMissingAggregates,
			fmt.Sprintf("%d periods present but current totals never computed", len(e.Periods)))
	}

	// Tier 2: arithmetic impossibilities in the stored numbers.
	if e.Current != nil {
		cur := *e.Current
		if cur.Balance.IsNegative() {
			res.add(SeverityError, IssueNegativeBalance,
				fmt.Sprintf("current balance is negative: %s", cur.Balance))
		}
		if e.Historical != nil && cur.Granted.GreaterThan(e.Historical.Granted) {
			res.add(SeverityError, IssueGrantedExceedsHistorical,
				fmt.Sprintf("current granted %s exceeds historical granted %s", cur.Granted, e.Historical.Granted))
		}
		if cur.Used.GreaterThan(cur.Granted) {
			res.add(SeverityError, IssueUsedExceedsGranted,
				fmt.Sprintf("current used %s exceeds current granted %s", cur.Used, cur.Granted))
		}
		identityGap := cur.Balance.Sub(cur.Granted.Sub(cur.Used)).Abs()
		if identityGap.GreaterThan(balanceTolerance) {
			res.add(SeverityError, IssueBalanceIdentity,
				fmt.Sprintf("balance %s differs from granted-used %s by more than 1 day",
					cur.Balance, cur.Granted.Sub(cur.Used)))
		}
		if cur.Balance.GreaterThan(StatutoryCap) {
			res.add(SeverityError, IssueCapExceeded,
				fmt.Sprintf("current balance %s exceeds the statutory %s-day cap", cur.Balance, StatutoryCap))
		}
	}

	// Tier 3: drift between caches and derived values.
	if e.Current != nil {
		if !e.Granted.Equal(e.Current.Granted) || !e.Balance.Equal(e.Current.Balance) {
			res.add(SeverityWarning, IssueLegacyDrift,
				fmt.Sprintf("legacy granted/balance %s/%s drifted from current %s/%s",
					e.Granted, e.Balance, e.Current.Granted, e.Current.Balance))
		}
		gap := decimal.NewFromInt(int64(len(e.LeaveDates))).Sub(e.Current.Used).Abs()
		if gap.GreaterThan(decimal.NewFromInt(dateCountTolerance)) {
			res.add(SeverityWarning, IssueDateCountDrift,
				fmt.Sprintf("%d consumption dates recorded but current used is %s",
					len(e.LeaveDates), e.Current.Used))
		}
		if fresh := recomputeCurrentGranted(e, asOf); !fresh.Equal(e.Current.Granted) {
			res.add(SeverityWarning, IssueStaleGranted,
				fmt.Sprintf("stored current granted %s, fresh reclassification yields %s",
					e.Current.Granted, fresh))
		}
	}
	if e.Historical != nil && !e.Used.Equal(e.Historical.Used) {
		res.add(SeverityWarning, IssueLegacyDrift,
			fmt.Sprintf("legacy used %s drifted from historical used %s", e.Used, e.Historical.Used))
	}

	// Tier 4: harmless absences worth surfacing.
	if e.HireDate == nil {
		res.add(SeverityInfo, IssueNoHireDate, "no hire date: schedule cannot be derived")
	}
	if len(e.LeaveDates) == 0 {
		res.add(SeverityInfo, IssueNoLeaveDates, "no consumption dates recorded")
	}

	return res
}

// recomputeCurrentGranted re-derives the active granted sum with a fresh
// classification pass, without touching the stored employee.
func recomputeCurrentGranted(e Employee, asOf Date) decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.Periods {
		if !IsExpired(p, asOf) {
			total = total.Add(p.Granted)
		}
	}
	return total
}

// =============================================================================
// FLEET REPORT
// =============================================================================

// FleetReport aggregates validation across a collection at one timestamp.
type FleetReport struct {
	GeneratedAt time.Time
	Checked     int
	Counts      map[Severity]int
	Results     []ValidationResult
}

// HasBlockingIssues reports whether anything critical or error level was
// found anywhere in the fleet.
func (r FleetReport) HasBlockingIssues() bool {
	return r.Counts[SeverityCritical] > 0 || r.Counts[SeverityError] > 0
}

// ValidateAll validates every employee; results only include employees
// with at least one finding.
func ValidateAll(employees []Employee, asOf Date) FleetReport {
	report := FleetReport{
		GeneratedAt: time.Now().UTC(),
		Checked:     len(employees),
		Counts:      map[Severity]int{},
	}
	for _, e := range employees {
		res := ValidateEmployee(e, asOf)
		if len(res.Issues) == 0 {
			continue
		}
		for _, issue := range res.Issues {
			report.Counts[issue.Severity]++
		}
		report.Results = append(report.Results, res)
	}
	return report
}
