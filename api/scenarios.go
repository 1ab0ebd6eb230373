/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario builds a small fleet that
	demonstrates a specific engine behavior.

AVAILABLE SCENARIOS:

	fresh-fleet:     Employees at different tenure points, schedules generated
	veteran-cap:     Long-tenured employee hitting the 40-day statutory cap
	drifted-import:  Imported data with stale aggregates, then auto-repaired

HOW SCENARIOS WORK:
 1. Build the employee snapshot in memory
 2. Run it through the pipeline (generation, aggregation, repair)
 3. Replace the stored collection
 4. Seed a few pending leave records

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "veteran-cap"}

NOTE:

	Loading a scenario replaces the employee collection. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Shared response helpers
  - yukyu/pipeline.go: What Process does to the snapshot
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-fleet",
		Name:        "Fresh Fleet",
		Description: "Employees at different tenure points, schedules generated from hire dates",
	},
	{
		ID:          "veteran-cap",
		Name:        "Veteran at the Cap",
		Description: "Long-tenured employee whose current balance hits the 40-day statutory cap",
	},
	{
		ID:          "drifted-import",
		Name:        "Drifted Import",
		Description: "Imported data with stale aggregates, repaired on load",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces the stored collection with scenario data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var employees []yukyu.Employee
	switch req.ScenarioID {
	case "fresh-fleet":
		employees = freshFleet(h.Now())
	case "veteran-cap":
		employees = veteranCap(h.Now())
	case "drifted-import":
		employees = driftedImport(h.Now())
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	processed, report := h.Pipeline.Process(employees, h.Now())
	if err := h.Store.ReplaceEmployees(r.Context(), processed); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store scenario", err)
		return
	}

	// A couple of pending records so the approval flow has something to chew on.
	for i, e := range processed {
		if e.Status != yukyu.StatusActive || i >= 2 {
			continue
		}
		rec := yukyu.LeaveRecord{
			ID:         uuid.New().String(),
			EmployeeID: e.ID,
			Date:       h.Now().AddDays(-(i + 1)).String(),
			Kind:       yukyu.LeavePaid,
			Duration:   "full",
			Note:       "scenario seed",
			Status:     yukyu.RecordPending,
			CreatedAt:  time.Now().UTC(),
		}
		if err := h.Store.SaveRecord(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed records", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Synced: len(processed),
		Report: toReportDTO(report),
	})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func freshFleet(today yukyu.Date) []yukyu.Employee {
	mk := func(num, name, haken string, monthsAgo int) yukyu.Employee {
		hire := today.AddMonths(-monthsAgo)
		return yukyu.Employee{
			ID:          "emp-" + num,
			EmployeeNum: num,
			Name:        name,
			Haken:       haken,
			HireDate:    &hire,
			Status:      yukyu.StatusActive,
		}
	}
	return []yukyu.Employee{
		mk("1001", "Tanaka Hiroshi", "Alpha Staffing", 7),
		mk("1002", "Sato Yuki", "Alpha Staffing", 20),
		mk("1003", "Suzuki Kenji", "Beta Works", 45),
		mk("1004", "Watanabe Mei", "Beta Works", 3),
	}
}

// veteranCap builds a long-tenured employee whose two live statutory
// grants (20+20) plus an imported company top-up push the raw balance
// past the 40-day cap, so the excess is forfeited.
func veteranCap(today yukyu.Date) []yukyu.Employee {
	hire := today.AddMonths(-92)
	topUpGrant := today.AddMonths(-3)
	return []yukyu.Employee{{
		ID:          "emp-2001",
		EmployeeNum: "2001",
		Name:        "Kobayashi Akira",
		Haken:       "Gamma Logistics",
		HireDate:    &hire,
		Status:      yukyu.StatusActive,
		Periods: []yukyu.AccrualPeriod{{
			Index:         0,
			Name:          "company top-up",
			ElapsedMonths: 89,
			GrantDate:     topUpGrant,
			ExpiryDate:    topUpGrant.AddMonths(24),
			Granted:       decimal.NewFromInt(6),
			Used:          decimal.Zero,
			Source:        "import",
			SyncedAt:      time.Now().UTC(),
		}},
	}}
}

// driftedImport fabricates a period list whose stored aggregates disagree
// with the period data, so the repair pass has real work to do.
func driftedImport(today yukyu.Date) []yukyu.Employee {
	hire := today.AddMonths(-20)
	grant := hire.AddMonths(6)
	return []yukyu.Employee{{
		ID:          "emp-3001",
		EmployeeNum: "3001",
		Name:        "Yamamoto Rin",
		Haken:       "Alpha Staffing",
		HireDate:    &hire,
		Status:      yukyu.StatusActive,
		// Stale legacy scalars; the stored balance disagrees with the periods.
		Granted: decimal.NewFromInt(10),
		Used:    decimal.NewFromInt(1),
		Balance: decimal.NewFromInt(2),
		Periods: []yukyu.AccrualPeriod{{
			Index:         1,
			Name:          yukyu.MilestoneName(6),
			ElapsedMonths: 6,
			GrantDate:     grant,
			ExpiryDate:    grant.AddMonths(24),
			Granted:       decimal.NewFromInt(10),
			Used:          decimal.NewFromInt(3),
			Dates: []yukyu.Date{
				grant.AddDays(30), grant.AddDays(61), grant.AddDays(92),
			},
			Source:   "import",
			SyncedAt: time.Now().UTC(),
		}},
		LeaveDates: []yukyu.Date{
			grant.AddDays(30), grant.AddDays(61), grant.AddDays(92),
		},
	}}
}
