/*
Package yukyu implements the accrual, expiration and reconciliation engine
for Japanese statutory paid leave (yukyu kyuka).

PURPOSE:
  Japanese labor law grants paid-leave days at fixed tenure milestones
  (10 days after 6 months, rising to 20 days per year from 6.5 years on).
  Each grant lives for exactly two years and then lapses. This package
  derives the full grant schedule from a hire date, classifies each grant
  as active or expired, aggregates balances under the statutory 40-day
  carry cap, detects drift between cached and derived numbers, repairs it,
  and gates leave-request approval against the live balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee:      Identity, tenure anchor, and the period list that is
                   the single source of truth for all derived numbers
  - AccrualPeriod: One statutory grant with its own two-year expiry window
  - Totals:        A derived granted/used/balance/expired view, computed
                   as either "current" (active periods only, capped) or
                   "historical" (lifetime, uncapped)
  - LeaveRecord:   A leave request with a one-way pending -> approved or
                   pending -> rejected lifecycle

DESIGN PRINCIPLES:
  1. Periods are the source of truth. Every aggregate on Employee is a
     projection recomputed from the period list, never hand-edited.
  2. Absence is typed. A missing hire date is a nil pointer, not a zero
     date silently flowing through month arithmetic.
  3. The engine is synchronous and side-effect free beyond the employee
     snapshot handed to it; callers own persistence and serialization.
  4. Precision: amounts are decimal.Decimal - imported payroll data
     carries half days.

SEE ALSO:
  - schedule.go:  Grant schedule derivation from a hire date
  - aggregate.go: Expiration classification and totals
  - validate.go:  Consistency checks over stored derived state
  - reconcile.go: Drift repair by re-derivation
  - approval.go:  Request approval gate and batch coordinator
*/
package yukyu

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// EmploymentStatus distinguishes active staff from separated (retired or
// resigned) staff, whose pending requests can no longer be approved.
type EmploymentStatus string

const (
	StatusActive    EmploymentStatus = "active"
	StatusSeparated EmploymentStatus = "separated"
)

// Employee is the unit the engine operates on. The period list is ordered
// by insertion and never shrinks; LeaveDates is the sorted-unique union of
// all per-period consumption dates.
//
// Current and Historical are derived projections: nil means they have never
// been computed for this employee (freshly imported data), which the
// validator reports as a critical finding when periods exist.
//
// The flat Granted/Used/Balance/Expired/UsageRate scalars are the legacy
// mirror kept for consumers of the original flat employee shape. They are
// written only by Aggregate; any other writer is a bug the validator
// surfaces as mirror drift.
type Employee struct {
	ID          string
	EmployeeNum string
	Name        string
	Haken       string // dispatch agency, carried from import
	HireDate    *Date  // nil: no schedule can ever be derived
	Status      EmploymentStatus

	Periods    []AccrualPeriod
	LeaveDates []Date

	Current    *Totals
	Historical *Totals

	// Legacy mirror. Granted and Balance mirror the current view, Used and
	// Expired mirror the historical view: "used" is a lifetime concept for
	// legacy consumers while granted/balance describe present entitlement.
	Granted   decimal.Decimal
	Used      decimal.Decimal
	Balance   decimal.Decimal
	Expired   decimal.Decimal
	UsageRate decimal.Decimal
	Year      int
}

// ActivePeriods returns the non-expired periods, in insertion order.
// Classify must have run for the flags to be meaningful.
func (e *Employee) ActivePeriods() []AccrualPeriod {
	var active []AccrualPeriod
	for _, p := range e.Periods {
		if !p.Expired {
			active = append(active, p)
		}
	}
	return active
}

// HasMilestone reports whether a period for the given elapsed-months
// marker already exists. The marker is the idempotency key for schedule
// generation: one period per milestone, ever.
func (e *Employee) HasMilestone(elapsedMonths int) bool {
	for _, p := range e.Periods {
		if p.ElapsedMonths == elapsedMonths {
			return true
		}
	}
	return false
}

// =============================================================================
// ACCRUAL PERIOD
// =============================================================================

// AccrualPeriod is one discrete statutory grant. Index is monotonic across
// regenerations and never reused. ExpiredDays is an externally supplied
// lapse count from payroll import; when positive it marks the period
// expired even if the local expiry date has not arrived (the import is
// trusted over locally computed dates).
type AccrualPeriod struct {
	Index         int
	Name          string
	ElapsedMonths int
	GrantDate     Date
	ExpiryDate    Date

	Granted     decimal.Decimal
	Used        decimal.Decimal
	Balance     decimal.Decimal // derived: Granted - Used
	ExpiredDays decimal.Decimal

	Expired       bool // derived by Classify
	CurrentPeriod bool // derived: the latest active period

	Dates []Date // consumption dates charged to this period

	Source   string // "generated" or "import"
	SyncedAt time.Time
}

// Remaining is the consumable balance of this period.
func (p AccrualPeriod) Remaining() decimal.Decimal {
	return p.Granted.Sub(p.Used)
}

// =============================================================================
// TOTALS - Derived aggregate view
// =============================================================================

// Totals is one derived granted/used/balance/expired group. The current
// view carries Forfeited: days lost to the 40-day statutory cap. The
// historical view never caps, so its Forfeited is always zero.
type Totals struct {
	Granted   decimal.Decimal
	Used      decimal.Decimal
	Balance   decimal.Decimal
	Expired   decimal.Decimal
	Forfeited decimal.Decimal
}

// =============================================================================
// LEAVE RECORD
// =============================================================================

type LeaveKind string

const (
	LeavePaid    LeaveKind = "paid"
	LeaveSpecial LeaveKind = "special"
	LeaveUnpaid  LeaveKind = "unpaid"
)

type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordApproved RecordStatus = "approved"
	RecordRejected RecordStatus = "rejected"
)

// LeaveRecord is a leave request. Date is kept as the raw submitted string
// and only parsed at approval time; a record with a malformed date is
// rejectable data, not a reason to fail loading a whole collection.
//
// The lifecycle is one-way: pending -> approved or pending -> rejected,
// both terminal. Only paid records touch the balance model.
type LeaveRecord struct {
	ID         string
	EmployeeID string
	Date       string
	Kind       LeaveKind
	Duration   string // "full", "am", "pm" - informational, see DESIGN.md
	Note       string
	Status     RecordStatus
	CreatedAt  time.Time

	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectionReason *string
}
