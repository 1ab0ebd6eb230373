/*
schedule.go - Statutory grant schedule derivation

PURPOSE:
  Derives, from a hire date and an as-of date, the accrual periods that
  should exist but don't yet. The statutory table is fixed by the Labor
  Standards Act: a first grant after 6 months of tenure, then yearly
  grants of increasing size up to 20 days, held at 20 days per year
  indefinitely from 6.5 years on.

MILESTONE TABLE (elapsed whole months since hire -> days granted):
   6 -> 10    42 -> 14    78 -> 20
  18 -> 11    54 -> 16    then +12 months -> 20, forever
  30 -> 12    66 -> 18

IDEMPOTENCY:
  The elapsed-months marker is the generation key. A milestone already
  present among the employee's periods is never synthesized again, so
  appending the result and calling DuePeriods again yields an empty
  second result. Indices continue from max(existing)+1 and are never
  reused across regenerations.

ERROR CONDITIONS:
  None. No hire date, or not enough tenure for any grant, yields an
  empty slice - never an error.

SEE ALSO:
  - aggregate.go: Classifies and sums the generated periods
*/
package yukyu

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUTORY CONSTANTS
// =============================================================================

// statutoryGrant maps a tenure milestone, in whole months since hire, to
// the days granted at that milestone.
type statutoryGrant struct {
	Months int
	Days   int64
}

var statutoryTable = []statutoryGrant{
	{6, 10},
	{18, 11},
	{30, 12},
	{42, 14},
	{54, 16},
	{66, 18},
	{78, 20},
}

const (
	// expiryMonths is the statutory lapse window: every grant dies
	// exactly two years after its grant date.
	expiryMonths = 24

	// extensionStepMonths / extensionDays: beyond the table, one 20-day
	// grant every additional 12 months, indefinitely.
	extensionStepMonths = 12
	extensionDays       = 20
)

// StatutoryCap is the maximum carryable current balance in days. Excess
// above it is forfeited, not carried.
var StatutoryCap = decimal.NewFromInt(40)

// =============================================================================
// SCHEDULE GENERATOR
// =============================================================================

// DuePeriods returns the periods that should exist for the employee as of
// the given date but are not yet in its period list. The employee is not
// mutated; the caller appends the result. Employees without a hire date
// never qualify for derivation (manual/legacy data only).
func DuePeriods(e Employee, asOf Date) []AccrualPeriod {
	if e.HireDate == nil {
		return nil
	}

	elapsed := MonthsBetween(*e.HireDate, asOf)
	if elapsed < statutoryTable[0].Months {
		return nil
	}

	nextIndex := 0
	for _, p := range e.Periods {
		if p.Index >= nextIndex {
			nextIndex = p.Index + 1
		}
	}

	var due []AccrualPeriod
	synth := func(milestone int, days int64) {
		if milestone > elapsed || e.HasMilestone(milestone) {
			return
		}
		for _, p := range due {
			if p.ElapsedMonths == milestone {
				return
			}
		}
		grantDate := e.HireDate.AddMonths(milestone)
		due = append(due, AccrualPeriod{
			Index:         nextIndex + len(due),
			Name:          MilestoneName(milestone),
			ElapsedMonths: milestone,
			GrantDate:     grantDate,
			ExpiryDate:    grantDate.AddMonths(expiryMonths),
			Granted:       decimal.NewFromInt(days),
			Used:          decimal.Zero,
			Balance:       decimal.NewFromInt(days),
			ExpiredDays:   decimal.Zero,
			Expired:       !asOf.Before(grantDate.AddMonths(expiryMonths)),
			Source:        "generated",
			SyncedAt:      time.Now().UTC(),
		})
	}

	for _, grant := range statutoryTable {
		synth(grant.Months, grant.Days)
	}

	// Past the table: one 20-day grant per extra year of tenure.
	last := statutoryTable[len(statutoryTable)-1].Months
	for milestone := last + extensionStepMonths; milestone <= elapsed; milestone += extensionStepMonths {
		synth(milestone, extensionDays)
	}

	return due
}

// MilestoneName renders the human label for a tenure milestone: the first
// grant is "initial (6 months)", later ones "N years" or "N years M months".
func MilestoneName(elapsedMonths int) string {
	if elapsedMonths == statutoryTable[0].Months {
		return "initial (6 months)"
	}
	years := elapsedMonths / 12
	months := elapsedMonths % 12

	yearLabel := fmt.Sprintf("%d years", years)
	if years == 1 {
		yearLabel = "1 year"
	}
	if months == 0 {
		return yearLabel
	}
	monthLabel := fmt.Sprintf("%d months", months)
	if months == 1 {
		monthLabel = "1 month"
	}
	return yearLabel + " " + monthLabel
}
