/*
approval.go - Request approval gate and batch coordinator

PURPOSE:
  Validates a single leave request against the live balance and state
  before allowing its one-way status transition, and applies the gate
  across a batch with per-item outcomes.

STATE MACHINE:
  pending -> approved   (terminal)
  pending -> rejected   (terminal)
  Anything else is a no-op that reports failure; nothing throws.

PRECONDITIONS (checked in order, first failure wins):
  1. Referenced employee exists                 EMPLOYEE_NOT_FOUND
  2. Employee is not separated                  EMPLOYEE_RETIRED
  3. Request date parses                        INVALID_DATE
     (a FUTURE date is logged, not rejected - future-dating is tolerated)
  4. Paid requests only:
     a. live current balance >= 1 day           INSUFFICIENT_BALANCE
     b. date not already consumed               DUPLICATE_DATE

  The balance in 4a comes from a fresh Aggregate pass over the period
  list, never from a cached scalar.

BATCH SEMANTICS:
  Not atomic. Records are processed strictly in input order, each
  re-evaluated against the balance as mutated by earlier successes in
  the same batch: approving record N can legitimately starve record
  N+1 for the same employee. Failures carry the record id, a reason,
  and a stable code.
*/
package yukyu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

var oneDay = decimal.NewFromInt(1)

// =============================================================================
// APPROVAL GATE
// =============================================================================

// Gate approves and rejects leave records against an employee snapshot.
// The caller must serialize access to the snapshot for the duration of a
// call; the gate assumes exclusive access and mutates in place.
type Gate struct {
	Logger *slog.Logger

	// Now stamps approvals/rejections; overridable for tests.
	Now func() time.Time
}

func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{Logger: logger, Now: time.Now}
}

// Approve validates the record against the employee snapshot and, on
// success, transitions it to approved. For paid records the consumption
// date is appended (sorted, unique), charged to the oldest active period
// with remaining balance, and all derived fields are refreshed.
func (g *Gate) Approve(employees map[string]*Employee, rec *LeaveRecord, approver string, asOf Date) error {
	if rec.Status != RecordPending {
		return &ApprovalError{
			Code:     CodeNotPending,
			RecordID: rec.ID,
			Reason:   fmt.Sprintf("record is %s, only pending records can transition", rec.Status),
		}
	}

	emp, ok := employees[rec.EmployeeID]
	if !ok {
		return &ApprovalError{
			Code:     CodeEmployeeNotFound,
			RecordID: rec.ID,
			Reason:   fmt.Sprintf("employee %s not found", rec.EmployeeID),
		}
	}

	if emp.Status == StatusSeparated {
		return &ApprovalError{
			Code:     CodeEmployeeRetired,
			RecordID: rec.ID,
			Reason:   fmt.Sprintf("employee %s is separated", rec.EmployeeID),
		}
	}

	day, err := ParseDate(rec.Date)
	if err != nil {
		return &ApprovalError{
			Code:     CodeInvalidDate,
			RecordID: rec.ID,
			Reason:   fmt.Sprintf("request date %q is not a valid calendar date", rec.Date),
		}
	}
	if day.After(asOf) {
		// Tolerated: requests are often filed ahead of the leave itself.
		g.logger().Warn("approving future-dated leave request",
			"record", rec.ID, "employee", rec.EmployeeID, "date", rec.Date)
	}

	if rec.Kind == LeavePaid {
		// Live numbers only. The cached scalar may be stale or tampered;
		// balance authority is always the period list.
		balance := ComputeBalance(emp, asOf)
		if balance.LessThan(oneDay) {
			return &ApprovalError{
				Code:     CodeInsufficientBalance,
				RecordID: rec.ID,
				Reason:   fmt.Sprintf("current balance %s is below 1 day", balance),
			}
		}
		if ContainsDate(emp.LeaveDates, day) {
			return &ApprovalError{
				Code:     CodeDuplicateDate,
				RecordID: rec.ID,
				Reason:   fmt.Sprintf("date %s is already consumed", day),
			}
		}

		g.consume(emp, day, asOf)
	}

	now := g.Now()
	rec.Status = RecordApproved
	rec.ApprovedAt = &now
	rec.ApprovedBy = &approver
	return nil
}

// Reject transitions a pending record to rejected with a reason.
func (g *Gate) Reject(rec *LeaveRecord, reason string) error {
	if rec.Status != RecordPending {
		return &ApprovalError{
			Code:     CodeNotPending,
			RecordID: rec.ID,
			Reason:   fmt.Sprintf("record is %s, only pending records can transition", rec.Status),
		}
	}
	now := g.Now()
	rec.Status = RecordRejected
	rec.ApprovedAt = &now
	rec.RejectionReason = &reason
	return nil
}

// consume charges one day against the employee: union date list, the
// oldest-expiring active period with remaining balance, and a full
// re-aggregation so every derived field reflects the new consumption.
func (g *Gate) consume(emp *Employee, day Date, asOf Date) {
	emp.LeaveDates = InsertDate(emp.LeaveDates, day)

	// Oldest grant first: statutory convention is to burn the period that
	// lapses soonest.
	target := -1
	for i := range emp.Periods {
		p := &emp.Periods[i]
		if p.Expired || !p.Remaining().IsPositive() {
			continue
		}
		if target < 0 || p.ExpiryDate.Before(emp.Periods[target].ExpiryDate) {
			target = i
		}
	}
	if target >= 0 {
		emp.Periods[target].Used = emp.Periods[target].Used.Add(oneDay)
		emp.Periods[target].Dates = InsertDate(emp.Periods[target].Dates, day)
	}

	Aggregate(emp, asOf)
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// =============================================================================
// BATCH COORDINATOR
// =============================================================================

// BatchFailure is one non-approved record in a batch, with its stable code.
type BatchFailure struct {
	RecordID string
	Code     string
	Reason   string
}

// BatchResult holds the two disjoint outcome lists of a batch call.
type BatchResult struct {
	Approved []string
	Failed   []BatchFailure
}

// ApproveBatch applies the gate independently to each record, in input
// order. A failure never rolls back or blocks the others; the employee
// balance is re-evaluated per record, so earlier approvals in the batch
// are visible to later ones.
func (g *Gate) ApproveBatch(employees map[string]*Employee, records []*LeaveRecord, approver string, asOf Date) BatchResult {
	var result BatchResult
	for _, rec := range records {
		if err := g.Approve(employees, rec, approver, asOf); err != nil {
			reason := err.Error()
			code := ApprovalCode(err)
			if apprErr, ok := err.(*ApprovalError); ok {
				reason = apprErr.Reason
			}
			result.Failed = append(result.Failed, BatchFailure{
				RecordID: rec.ID,
				Code:     code,
				Reason:   reason,
			})
			continue
		}
		result.Approved = append(result.Approved, rec.ID)
	}
	return result
}
