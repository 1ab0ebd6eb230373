/*
aggregate.go - Expiration classification and derived totals

PURPOSE:
  Turns the period list (source of truth) into the derived numbers the
  rest of the system reads: the current view (active periods only,
  balance capped at the statutory 40 days), the historical lifetime
  view, and the legacy mirror scalars for consumers of the flat
  employee shape.

EXPIRATION RULE:
  A period is expired if EITHER its externally supplied expired-day
  count is positive OR the as-of date is on or past its expiry date.
  The external signal wins even when the local date has not arrived:
  payroll systems reconcile lapses on their own calendar, and import
  skew must not resurrect a period the payroll side already closed.
  This precedence is a deliberate trust decision - do not reorder it.

CAP:
  Current balance is min(sum of active balances, 40). The excess is
  recorded as Forfeited, not silently dropped: reporting wants to show
  days lost to the cap.

LEGACY MIRROR:
  legacy granted/balance := current view, legacy used/expired :=
  historical view. "Used" is a lifetime concept for legacy consumers;
  granted and balance describe present entitlement. Intentional, keep.

This file never reads the wall clock; time always comes from the caller.
*/
package yukyu

import "github.com/shopspring/decimal"

// =============================================================================
// EXPIRATION CLASSIFIER
// =============================================================================

// IsExpired decides active/expired for one period. Pure and total: every
// period gets a boolean regardless of data quality.
func IsExpired(p AccrualPeriod, asOf Date) bool {
	// External lapse signal wins over the locally computed date.
	if p.ExpiredDays.IsPositive() {
		return true
	}
	return !asOf.Before(p.ExpiryDate)
}

// Classify stamps the derived Expired flag onto every period and marks the
// latest active period as the current one.
func Classify(periods []AccrualPeriod, asOf Date) {
	currentIdx := -1
	for i := range periods {
		periods[i].Expired = IsExpired(periods[i], asOf)
		periods[i].CurrentPeriod = false
		if !periods[i].Expired {
			if currentIdx < 0 || periods[i].ElapsedMonths > periods[currentIdx].ElapsedMonths {
				currentIdx = i
			}
		}
	}
	if currentIdx >= 0 {
		periods[currentIdx].CurrentPeriod = true
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregate recomputes every derived field on the employee from its period
// list: per-period balances, expiry flags, the current and historical
// totals, and the legacy mirror. It is the ONLY writer of those fields.
func Aggregate(e *Employee, asOf Date) {
	Classify(e.Periods, asOf)

	var current, historical Totals
	for i := range e.Periods {
		p := &e.Periods[i]
		p.Balance = p.Granted.Sub(p.Used)

		historical.Granted = historical.Granted.Add(p.Granted)
		historical.Used = historical.Used.Add(p.Used)
		historical.Balance = historical.Balance.Add(p.Balance)
		historical.Expired = historical.Expired.Add(p.ExpiredDays)

		if !p.Expired {
			current.Granted = current.Granted.Add(p.Granted)
			current.Used = current.Used.Add(p.Used)
			current.Balance = current.Balance.Add(p.Balance)
		}
	}

	// Statutory cap: anything above 40 days is forfeited, and the loss is
	// kept visible rather than discarded.
	if current.Balance.GreaterThan(StatutoryCap) {
		current.Forfeited = current.Balance.Sub(StatutoryCap)
		current.Balance = StatutoryCap
	}
	// A period included in the current view is, by construction, not
	// expired, so the current expired count is zero by definition.
	current.Expired = decimal.Zero

	e.Current = &current
	e.Historical = &historical

	e.Granted = current.Granted
	e.Used = historical.Used
	e.Balance = current.Balance
	e.Expired = historical.Expired
	e.UsageRate = usageRate(current)
}

// ComputeBalance is the single balance authority: every call site that
// needs "how many days does this employee have right now" - approval
// gate, validator, reporting - goes through here instead of reading a
// cached scalar.
func ComputeBalance(e *Employee, asOf Date) decimal.Decimal {
	// Legacy rows carry imported scalars and no period list; aggregating
	// an empty list would zero those scalars out. No periods, no balance.
	if len(e.Periods) == 0 {
		return decimal.Zero
	}
	Aggregate(e, asOf)
	return e.Current.Balance
}

// usageRate is consumed days as a fraction of current entitlement,
// rounded to two decimals. Zero entitlement yields zero, not a division
// error.
func usageRate(current Totals) decimal.Decimal {
	if current.Granted.IsZero() {
		return decimal.Zero
	}
	return current.Used.Div(current.Granted).Round(2)
}
