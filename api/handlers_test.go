/*
handlers_test.go - HTTP-level tests for API handlers

Tests run against the in-memory store via httptest; no network, no disk.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokken79/yukyuantiguov1.0-sub000/api"
	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = yukyu.NewDate(2025, time.January, 3)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	mem := store.NewMemory()
	logger := discardLogger()
	h := api.NewHandler(mem, logger)
	h.Now = func() yukyu.Date { return testNow }

	srv := httptest.NewServer(api.NewRouter(h, logger))
	t.Cleanup(srv.Close)
	return srv, mem
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func syncFleet(t *testing.T, srv *httptest.Server, employees ...api.EmployeeDTO) api.SyncResponse {
	resp := postJSON(t, srv.URL+"/api/employees", api.SyncRequest{Employees: employees})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sync api.SyncResponse
	decodeJSON(t, resp, &sync)
	return sync
}

func submitRecord(t *testing.T, srv *httptest.Server, employeeID, day string) api.RecordDTO {
	resp := postJSON(t, srv.URL+"/api/records", api.CreateRecordRequest{
		EmployeeID: employeeID,
		Date:       day,
		Type:       "paid",
		Duration:   "full",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rec api.RecordDTO
	decodeJSON(t, resp, &rec)
	return rec
}

func veteran(id string) api.EmployeeDTO {
	return api.EmployeeDTO{
		ID:          id,
		EmployeeNum: strings.TrimPrefix(id, "emp-"),
		Name:        "Veteran " + id,
		HireDate:    "2021-05-10",
		Status:      "active",
	}
}

// =============================================================================
// EMPLOYEE SYNC
// =============================================================================

func TestSyncEmployees_RunsPipeline(t *testing.T) {
	// GIVEN: A raw employee with only a hire date
	// WHEN: Synced
	// THEN: The stored employee has generated periods and derived views
	srv, _ := newTestServer(t)

	sync := syncFleet(t, srv, veteran("emp-1"))
	assert.Equal(t, 1, sync.Synced)

	resp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	var employees []api.EmployeeDTO
	decodeJSON(t, resp, &employees)

	require.Len(t, employees, 1)
	e := employees[0]
	assert.Len(t, e.Periods, 4, "milestones 6, 18, 30, 42")
	require.NotNil(t, e.Current)
	assert.Equal(t, 26.0, e.Current.Balance)
	require.NotNil(t, e.Historical)
	assert.Equal(t, 47.0, e.Historical.Granted)
	assert.Equal(t, 26.0, e.Balance)
}

func TestSyncEmployees_MissingID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/employees", api.SyncRequest{
		Employees: []api.EmployeeDTO{{Name: "No ID"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportEmployeesCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))

	resp, err := http.Get(srv.URL + "/api/employees/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "header plus one employee")
	assert.Contains(t, lines[0], "employee_num")
	assert.Contains(t, lines[1], "Veteran emp-1")
}

// =============================================================================
// RECORD SUBMISSION AND APPROVAL
// =============================================================================

func TestCreateRecord_Pending(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := submitRecord(t, srv, "emp-1", "2024-12-20")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "pending", rec.Status)
	assert.Equal(t, "paid", rec.Type)
}

func TestCreateRecord_UnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/records", api.CreateRecordRequest{
		EmployeeID: "emp-1", Date: "2024-12-20", Type: "sabbatical",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveRecord_EndToEnd(t *testing.T) {
	// GIVEN: A synced veteran and a pending paid record
	// WHEN: Approved
	// THEN: 200, record approved, one day consumed and persisted
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))
	rec := submitRecord(t, srv, "emp-1", "2024-12-20")

	resp := postJSON(t, srv.URL+"/api/records/"+rec.ID+"/approve", api.ApproveRequest{Approver: "boss"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved api.RecordDTO
	decodeJSON(t, resp, &approved)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "boss", *approved.ApprovedBy)

	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	var employees []api.EmployeeDTO
	decodeJSON(t, listResp, &employees)
	assert.Equal(t, 25.0, employees[0].Balance)
	assert.Contains(t, employees[0].YukyuDates, "2024-12-20")
}

func TestApproveRecord_InsufficientBalance(t *testing.T) {
	// GIVEN: An employee with no balance (no periods at all)
	// THEN: 422 with the stable refusal code
	srv, _ := newTestServer(t)
	syncFleet(t, srv, api.EmployeeDTO{
		ID: "emp-dry", EmployeeNum: "2001", Name: "Dry", Status: "active",
	})
	rec := submitRecord(t, srv, "emp-dry", "2024-12-20")

	resp := postJSON(t, srv.URL+"/api/records/"+rec.ID+"/approve", api.ApproveRequest{Approver: "boss"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "INSUFFICIENT_BALANCE", errResp.Code)
}

func TestApproveRecord_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/records/rec-ghost/approve", api.ApproveRequest{Approver: "boss"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApproveRecord_TwiceConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))
	rec := submitRecord(t, srv, "emp-1", "2024-12-20")

	resp := postJSON(t, srv.URL+"/api/records/"+rec.ID+"/approve", api.ApproveRequest{Approver: "boss"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/records/"+rec.ID+"/approve", api.ApproveRequest{Approver: "boss"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRejectRecord(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := submitRecord(t, srv, "emp-1", "2024-12-20")

	resp := postJSON(t, srv.URL+"/api/records/"+rec.ID+"/reject", api.RejectRequest{
		Approver: "boss", Reason: "coverage conflict",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rejected api.RecordDTO
	decodeJSON(t, resp, &rejected)
	assert.Equal(t, "rejected", rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "coverage conflict", *rejected.RejectionReason)
}

// =============================================================================
// BATCH APPROVAL
// =============================================================================

func TestApproveBatch_PartialFailure(t *testing.T) {
	// GIVEN: Two approvable records and one for an unknown employee
	// WHEN: Batched
	// THEN: 200 with per-record outcomes in input order
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))

	rec1 := submitRecord(t, srv, "emp-1", "2024-12-18")
	rec2 := submitRecord(t, srv, "emp-ghost", "2024-12-19")
	rec3 := submitRecord(t, srv, "emp-1", "2024-12-20")

	resp := postJSON(t, srv.URL+"/api/records/approve-batch", api.BatchApproveRequest{
		RecordIDs: []string{rec1.ID, rec2.ID, rec3.ID},
		Approver:  "boss",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result api.BatchResultDTO
	decodeJSON(t, resp, &result)

	assert.Equal(t, []string{rec1.ID, rec3.ID}, result.Approved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, rec2.ID, result.Failed[0].RecordID)
	assert.Equal(t, "EMPLOYEE_NOT_FOUND", result.Failed[0].Code)

	// Both consumed days persisted.
	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	var employees []api.EmployeeDTO
	decodeJSON(t, listResp, &employees)
	assert.Equal(t, 24.0, employees[0].Balance)
}

func TestApproveBatch_LegacyEmployeeScalarsSurvive(t *testing.T) {
	// GIVEN: A legacy import (scalars, no hire date, no periods) and a
	//        normal employee, one pending request each
	// WHEN: Batched and the legacy request is refused on balance
	// THEN: The persisted legacy employee still carries its imported
	//       scalars; the other approval still lands
	srv, _ := newTestServer(t)
	syncFleet(t, srv,
		veteran("emp-1"),
		api.EmployeeDTO{
			ID:          "emp-legacy",
			EmployeeNum: "9001",
			Name:        "Legacy Import",
			Status:      "active",
			Granted:     12,
			Used:        3,
			Balance:     9,
		})

	rec1 := submitRecord(t, srv, "emp-legacy", "2024-12-18")
	rec2 := submitRecord(t, srv, "emp-1", "2024-12-19")

	resp := postJSON(t, srv.URL+"/api/records/approve-batch", api.BatchApproveRequest{
		RecordIDs: []string{rec1.ID, rec2.ID},
		Approver:  "boss",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result api.BatchResultDTO
	decodeJSON(t, resp, &result)

	assert.Equal(t, []string{rec2.ID}, result.Approved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, rec1.ID, result.Failed[0].RecordID)
	assert.Equal(t, "INSUFFICIENT_BALANCE", result.Failed[0].Code)

	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	var employees []api.EmployeeDTO
	decodeJSON(t, listResp, &employees)
	require.Len(t, employees, 2)
	for _, e := range employees {
		if e.ID == "emp-legacy" {
			assert.Nil(t, e.Current)
			assert.Equal(t, 12.0, e.Granted)
			assert.Equal(t, 3.0, e.Used)
			assert.Equal(t, 9.0, e.Balance)
		}
	}
}

func TestApproveBatch_UnknownRecordID(t *testing.T) {
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))

	resp := postJSON(t, srv.URL+"/api/records/approve-batch", api.BatchApproveRequest{
		RecordIDs: []string{"rec-ghost"}, Approver: "boss",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result api.BatchResultDTO
	decodeJSON(t, resp, &result)

	assert.Empty(t, result.Approved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "RECORD_NOT_FOUND", result.Failed[0].Code)
}

// =============================================================================
// COMPLIANCE
// =============================================================================

func TestComplianceReport(t *testing.T) {
	srv, _ := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))

	resp, err := http.Get(srv.URL + "/api/compliance/report")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report api.ComplianceReportDTO
	decodeJSON(t, resp, &report)

	assert.Equal(t, 1, report.Checked)
	assert.Zero(t, report.Counts["critical"])
	assert.Zero(t, report.Counts["error"])
}

func TestReconcileFleet_Idempotent(t *testing.T) {
	// GIVEN: A consistent synced fleet
	// WHEN: Reconciled twice
	// THEN: Zero repairs both times; drift injected in between is repaired once
	srv, mem := newTestServer(t)
	syncFleet(t, srv, veteran("emp-1"))

	reconcile := func() api.ReconcileResponse {
		resp := postJSON(t, srv.URL+"/api/compliance/reconcile", struct{}{})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.ReconcileResponse
		decodeJSON(t, resp, &out)
		return out
	}

	assert.Zero(t, reconcile().Repaired, "consistent fleet has nothing to repair")

	// Inject drift directly into the store.
	ctx := context.Background()
	employees, err := mem.LoadEmployees(ctx)
	require.NoError(t, err)
	employees[0].Balance = employees[0].Balance.Add(decimal.NewFromInt(1))
	require.NoError(t, mem.ReplaceEmployees(ctx, employees))

	first := reconcile()
	assert.Equal(t, 1, first.Repaired)
	require.Len(t, first.Repairs, 1)
	assert.Equal(t, "legacy.balance", first.Repairs[0].Changes[0].Field)

	assert.Zero(t, reconcile().Repaired, "second run finds nothing")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	decodeJSON(t, resp, &health)
	assert.Equal(t, "ok", health["status"])
}
