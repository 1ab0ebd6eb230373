package yukyu_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// PER-EMPLOYEE RECONCILIATION
// =============================================================================

func TestReconcile_RepairsTamperedMirror(t *testing.T) {
	// GIVEN: A consistent employee whose legacy balance was overwritten
	// WHEN: Reconciled
	// THEN: Exactly that field changes, with a recalculation reason
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Balance = dec(99)

	changes := yukyu.Reconcile(&e, asOf)

	require.Len(t, changes, 1)
	assert.Equal(t, "legacy.balance", changes[0].Field)
	assert.Equal(t, "99", changes[0].Old)
	assert.Equal(t, "26", changes[0].New)
	assert.Equal(t, "recalculated from 2 active periods", changes[0].Reason)
	assert.True(t, e.Balance.Equal(dec(26)))
}

func TestReconcile_Idempotent(t *testing.T) {
	// GIVEN: An employee just reconciled
	// WHEN: Reconciled again at the same date
	// THEN: Zero changes; idempotence is part of the contract
	asOf := date(2025, time.January, 3)
	e := consistentEmployee(asOf)
	e.Balance = dec(99)
	e.Used = dec(50)

	first := yukyu.Reconcile(&e, asOf)
	require.NotEmpty(t, first)

	second := yukyu.Reconcile(&e, asOf)
	assert.Empty(t, second)
}

func TestReconcile_UnsetAggregates(t *testing.T) {
	// GIVEN: Imported periods with aggregates never computed
	// THEN: Every derived field is filled in, old values reported as unset
	asOf := date(2025, time.January, 3)
	e := hiredEmployee("emp-1", date(2021, time.May, 10))
	e.Periods = yukyu.DuePeriods(e, asOf)

	changes := yukyu.Reconcile(&e, asOf)

	require.NotEmpty(t, changes)
	byField := map[string]yukyu.FieldChange{}
	for _, ch := range changes {
		byField[ch.Field] = ch
	}
	cur, ok := byField["current.granted"]
	require.True(t, ok)
	assert.Equal(t, "(unset)", cur.Old)
	assert.Equal(t, "26", cur.New)
}

func TestReconcile_CapReason(t *testing.T) {
	// GIVEN: Active periods worth 46 days and no stored aggregates
	// THEN: The current balance change carries the cap reason with the raw sum
	asOf := date(2025, time.January, 3)
	e := yukyu.Employee{
		ID: "emp-1",
		Periods: []yukyu.AccrualPeriod{
			activePeriod(1, 20, 0, date(2025, time.June, 1)),
			activePeriod(2, 20, 0, date(2026, time.June, 1)),
			activePeriod(3, 6, 0, date(2026, time.December, 1)),
		},
	}

	changes := yukyu.Reconcile(&e, asOf)

	var balanceChange *yukyu.FieldChange
	for i := range changes {
		if changes[i].Field == "current.balance" {
			balanceChange = &changes[i]
		}
	}
	require.NotNil(t, balanceChange)
	assert.Equal(t, "40", balanceChange.New)
	assert.Equal(t, "statutory cap applied (raw: 46)", balanceChange.Reason)
}

func TestReconcile_NoPeriods_NoOp(t *testing.T) {
	// GIVEN: No period list to re-derive from
	// THEN: Nothing to do; imported scalars survive untouched
	asOf := date(2025, time.January, 3)
	e := yukyu.Employee{ID: "emp-1", Balance: dec(7), Granted: dec(10)}

	changes := yukyu.Reconcile(&e, asOf)

	assert.Empty(t, changes)
	assert.True(t, e.Balance.Equal(dec(7)))
	assert.Nil(t, e.Current)
}

// =============================================================================
// FLEET REPAIR
// =============================================================================

func TestRepairFleet_MergesAndReportsChangedOnly(t *testing.T) {
	asOf := date(2025, time.January, 3)

	clean := consistentEmployee(asOf)
	clean.ID = "emp-clean"

	drifted := consistentEmployee(asOf)
	drifted.ID = "emp-drifted"
	drifted.Balance = dec(0)

	merged, repaired := yukyu.RepairFleet([]yukyu.Employee{clean, drifted}, asOf)

	require.Len(t, merged, 2)
	assert.Equal(t, "emp-clean", merged[0].ID, "order preserved")
	assert.True(t, merged[1].Balance.Equal(dec(26)), "drift repaired in merged result")

	require.Len(t, repaired, 1)
	assert.Equal(t, "emp-drifted", repaired[0].Employee.ID)
	require.Len(t, repaired[0].Changes, 1)
	assert.Equal(t, "legacy.balance", repaired[0].Changes[0].Field)
}

func TestRepairFleet_DoesNotAliasInput(t *testing.T) {
	// GIVEN: A drifted employee
	// WHEN: RepairFleet runs
	// THEN: The input slice's employee is untouched; only the merged copy changes
	asOf := date(2025, time.January, 3)
	drifted := consistentEmployee(asOf)
	drifted.Balance = dec(0)
	input := []yukyu.Employee{drifted}

	merged, _ := yukyu.RepairFleet(input, asOf)

	assert.True(t, input[0].Balance.Equal(dec(0)))
	assert.True(t, merged[0].Balance.Equal(dec(26)))
}
