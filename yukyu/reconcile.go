/*
reconcile.go - Drift repair by re-derivation

PURPOSE:
  Recomputes every derived field from the period list exactly as
  Aggregate would, and reports a field-level diff of what changed, each
  change paired with a specific reason. Running it twice in a row
  produces zero changes the second time - idempotence is part of the
  contract, not an accident.

WHAT IT CANNOT FIX:
  An employee with no period list has no source of truth to re-derive
  from; the reconciler is a no-op there. That case stays a validator
  finding for a human or an upstream import fix.

FLEET PASS:
  RepairFleet runs per-employee reconciliation over a collection and
  returns the merged collection plus only the subset that actually
  changed; callers persist the merged result.
*/
package yukyu

import "fmt"

// =============================================================================
// FIELD CHANGES
// =============================================================================

// FieldChange records one corrected field: stored value, recomputed value,
// and why the recomputed value is right.
type FieldChange struct {
	Field  string
	Old    string
	New    string
	Reason string
}

// RepairedEmployee pairs a corrected employee with its change list.
type RepairedEmployee struct {
	Employee Employee
	Changes  []FieldChange
}

// =============================================================================
// PER-EMPLOYEE RECONCILIATION
// =============================================================================

// Reconcile re-derives every current/historical/legacy field on the
// employee from its period list and returns the changes applied. Employees
// without periods are left untouched.
func Reconcile(e *Employee, asOf Date) []FieldChange {
	if len(e.Periods) == 0 {
		return nil
	}

	before := snapshotDerived(*e)
	Aggregate(e, asOf)
	after := snapshotDerived(*e)

	activeCount := 0
	for _, p := range e.Periods {
		if !p.Expired {
			activeCount++
		}
	}
	baseReason := fmt.Sprintf("recalculated from %d active periods", activeCount)

	var changes []FieldChange
	for _, field := range derivedFieldOrder {
		oldVal, hadOld := before[field]
		newVal := after[field]
		if hadOld && oldVal == newVal {
			continue
		}
		if !hadOld {
			oldVal = "(unset)"
		}
		reason := baseReason
		if field == "current.balance" && e.Current.Forfeited.IsPositive() {
			raw := e.Current.Balance.Add(e.Current.Forfeited)
			reason = fmt.Sprintf("statutory cap applied (raw: %s)", raw)
		}
		changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal, Reason: reason})
	}
	return changes
}

var derivedFieldOrder = []string{
	"current.granted", "current.used", "current.balance", "current.forfeited",
	"historical.granted", "historical.used", "historical.balance", "historical.expired",
	"legacy.granted", "legacy.used", "legacy.balance", "legacy.expired", "legacy.usageRate",
}

// snapshotDerived flattens the derived fields into comparable strings.
// Decimal string form is canonical, so equal values compare equal.
func snapshotDerived(e Employee) map[string]string {
	snap := map[string]string{
		"legacy.granted":   e.Granted.String(),
		"legacy.used":      e.Used.String(),
		"legacy.balance":   e.Balance.String(),
		"legacy.expired":   e.Expired.String(),
		"legacy.usageRate": e.UsageRate.String(),
	}
	if e.Current != nil {
		snap["current.granted"] = e.Current.Granted.String()
		snap["current.used"] = e.Current.Used.String()
		snap["current.balance"] = e.Current.Balance.String()
		snap["current.forfeited"] = e.Current.Forfeited.String()
	}
	if e.Historical != nil {
		snap["historical.granted"] = e.Historical.Granted.String()
		snap["historical.used"] = e.Historical.Used.String()
		snap["historical.balance"] = e.Historical.Balance.String()
		snap["historical.expired"] = e.Historical.Expired.String()
	}
	return snap
}

// =============================================================================
// FLEET REPAIR
// =============================================================================

// RepairFleet reconciles every employee in the collection. It returns the
// merged collection (changed employees replace their originals, unchanged
// ones pass through untouched) and the changed subset with their diffs.
func RepairFleet(employees []Employee, asOf Date) ([]Employee, []RepairedEmployee) {
	merged := make([]Employee, len(employees))
	var repaired []RepairedEmployee

	for i, e := range employees {
		candidate := cloneEmployee(e)
		changes := Reconcile(&candidate, asOf)
		if len(changes) == 0 {
			merged[i] = e
			continue
		}
		merged[i] = candidate
		repaired = append(repaired, RepairedEmployee{Employee: candidate, Changes: changes})
	}
	return merged, repaired
}

// cloneEmployee deep-copies the mutable parts so reconciliation of a
// candidate never aliases the caller's slices.
func cloneEmployee(e Employee) Employee {
	clone := e
	clone.Periods = make([]AccrualPeriod, len(e.Periods))
	copy(clone.Periods, e.Periods)
	for i := range clone.Periods {
		clone.Periods[i].Dates = append([]Date(nil), e.Periods[i].Dates...)
	}
	clone.LeaveDates = append([]Date(nil), e.LeaveDates...)
	if e.Current != nil {
		cur := *e.Current
		clone.Current = &cur
	}
	if e.Historical != nil {
		hist := *e.Historical
		clone.Historical = &hist
	}
	return clone
}
