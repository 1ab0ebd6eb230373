/*
pipeline.go - The load-flow entry point

PURPOSE:
  The one orchestration the integration boundary calls when a collection
  is loaded: derive due periods for every employee, classify and
  aggregate, validate, and - as an explicit policy decision made here
  rather than a side effect buried in a loader - repair and re-validate
  when anything critical or error level was found.

FAILURE ISOLATION:
  One employee with corrupt data never blocks the rest. Derivation and
  aggregation are per-employee, validation collects findings instead of
  failing, and repair only touches what it can re-derive.
*/
package yukyu

import "log/slog"

// Pipeline runs the load flow over in-memory snapshots. Synchronous and
// single-threaded; the caller serializes snapshot access.
type Pipeline struct {
	Logger *slog.Logger

	// AutoRepair controls whether blocking findings trigger reconciliation
	// inside Process. On by default via NewPipeline.
	AutoRepair bool
}

func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, AutoRepair: true}
}

// Process takes the full employee collection and returns the updated
// collection plus the final validation report. The input slice is not
// shared with the result; callers persist the returned collection.
//
// Flow: generate due periods -> classify + aggregate -> validate ->
// repair and re-validate when blocking issues exist.
func (p *Pipeline) Process(employees []Employee, asOf Date) ([]Employee, FleetReport) {
	out := make([]Employee, len(employees))
	for i, e := range employees {
		emp := cloneEmployee(e)

		if due := DuePeriods(emp, asOf); len(due) > 0 {
			p.Logger.Info("derived accrual periods",
				"employee", emp.ID, "new", len(due), "total", len(emp.Periods)+len(due))
			emp.Periods = append(emp.Periods, due...)
		}

		// Employees without periods carry imported legacy scalars only;
		// aggregating an empty list would zero them out.
		if len(emp.Periods) > 0 {
			Aggregate(&emp, asOf)
		}
		out[i] = emp
	}

	report := ValidateAll(out, asOf)
	if p.AutoRepair && report.HasBlockingIssues() {
		merged, repaired := RepairFleet(out, asOf)
		p.Logger.Warn("blocking validation issues, reconciled",
			"critical", report.Counts[SeverityCritical],
			"errors", report.Counts[SeverityError],
			"repaired", len(repaired))
		out = merged
		report = ValidateAll(out, asOf)
	}

	return out, report
}
