/*
handlers.go - HTTP API handlers for the leave management engine

PURPOSE:
  Exposes the accrual/approval engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees          List all employees (derived views included)
    POST   /api/employees          Full-replacement sync (runs the pipeline)
    GET    /api/employees/export   CSV summary export

  Records:
    GET    /api/records            List leave records (?status=, ?employeeId=)
    POST   /api/records            Submit a leave record (always pending)
    POST   /api/records/{id}/approve
    POST   /api/records/{id}/reject
    POST   /api/records/approve-batch

  Compliance:
    GET    /api/compliance/report     Fleet validation report
    POST   /api/compliance/reconcile  Explicit repair run

  Misc:
    GET    /api/health

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (pipeline, gate, validator)
  4. Persist via the Store
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee or record not found
  - 409: Record not pending (lifecycle violation)
  - 422: Approval refused (balance, duplicate, retired)
  - 500: Internal errors
  Approval refusals carry their stable machine code in the body.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - yukyu/approval.go: Gate semantics behind the approve endpoints
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    yukyu.Store
	Pipeline *yukyu.Pipeline
	Gate     *yukyu.Gate
	Logger   *slog.Logger

	// Now is the clock used for as-of calculations. Overridable in tests.
	Now func() yukyu.Date
}

// NewHandler creates a new handler with the given store.
func NewHandler(store yukyu.Store, logger *slog.Logger) *Handler {
	return &Handler{
		Store:    store,
		Pipeline: yukyu.NewPipeline(logger),
		Gate:     yukyu.NewGate(logger),
		Logger:   logger,
		Now:      yukyu.Today,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees with their derived views.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.LoadEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SyncEmployees replaces the full employee collection. The incoming
// snapshot runs through the pipeline first: due periods are generated,
// aggregates derived, and blocking findings auto-repaired, so what gets
// persisted is always a consistent fleet.
// POST /api/employees
func (h *Handler) SyncEmployees(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	employees := make([]yukyu.Employee, 0, len(req.Employees))
	for _, dto := range req.Employees {
		if dto.ID == "" {
			writeError(w, http.StatusBadRequest, "Employee id is required", nil)
			return
		}
		employees = append(employees, fromEmployeeDTO(dto))
	}

	processed, report := h.Pipeline.Process(employees, h.Now())
	if err := h.Store.ReplaceEmployees(r.Context(), processed); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store employees", err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Synced: len(processed),
		Report: toReportDTO(report),
	})
}

// ExportEmployeesCSV streams the flat summary table.
// GET /api/employees/export
func (h *Handler) ExportEmployeesCSV(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.LoadEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="yukyu-%s.csv"`, h.Now().String()))

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"employee_num", "name", "haken", "hire_date", "status",
		"granted", "used", "balance", "usage_rate", "expired", "periods",
	})
	for _, e := range employees {
		hireDate := ""
		if e.HireDate != nil {
			hireDate = e.HireDate.String()
		}
		cw.Write([]string{
			e.EmployeeNum,
			e.Name,
			e.Haken,
			hireDate,
			string(e.Status),
			e.Granted.String(),
			e.Used.String(),
			e.Balance.String(),
			e.UsageRate.String(),
			e.Expired.String(),
			strconv.Itoa(len(e.Periods)),
		})
	}
	cw.Flush()
}

// =============================================================================
// LEAVE RECORD HANDLERS
// =============================================================================

// ListRecords returns leave records, optionally filtered.
// GET /api/records?status=pending&employeeId=emp-1
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.LoadRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	status := r.URL.Query().Get("status")
	employeeID := r.URL.Query().Get("employeeId")

	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		if status != "" && string(rec.Status) != status {
			continue
		}
		if employeeID != "" && rec.EmployeeID != employeeID {
			continue
		}
		dtos = append(dtos, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecord submits a new leave record. Submission is permissive:
// the record always lands as pending, and every business rule is applied
// at approval time. Only the shape is validated here.
// POST /api/records
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "employeeId and date are required", nil)
		return
	}

	kind := yukyu.LeaveKind(req.Type)
	switch kind {
	case "":
		kind = yukyu.LeavePaid
	case yukyu.LeavePaid, yukyu.LeaveSpecial, yukyu.LeaveUnpaid:
	default:
		writeError(w, http.StatusBadRequest, "Unknown leave type: "+req.Type, nil)
		return
	}

	rec := yukyu.LeaveRecord{
		ID:         uuid.New().String(),
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		Kind:       kind,
		Duration:   req.Duration,
		Note:       req.Note,
		Status:     yukyu.RecordPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveRecord(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(rec))
}

// ApproveRecord approves one pending record.
// POST /api/records/{id}/approve
func (h *Handler) ApproveRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	rec, err := h.Store.LoadRecord(ctx, id)
	if err != nil {
		if errors.Is(err, yukyu.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Record not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load record", err)
		return
	}

	employees, err := h.Store.LoadEmployees(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}
	byID := employeeIndex(employees)

	if err := h.Gate.Approve(byID, &rec, req.Approver, h.Now()); err != nil {
		writeApprovalError(w, err)
		return
	}

	if err := h.persistApproval(ctx, byID, employees, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist approval", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// RejectRecord rejects one pending record.
// POST /api/records/{id}/reject
func (h *Handler) RejectRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	rec, err := h.Store.LoadRecord(ctx, id)
	if err != nil {
		if errors.Is(err, yukyu.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Record not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load record", err)
		return
	}

	if err := h.Gate.Reject(&rec, req.Reason); err != nil {
		writeApprovalError(w, err)
		return
	}
	if err := h.Store.SaveRecord(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// ApproveBatch approves a set of records in the order given. The batch is
// not atomic: failures are reported per record and never roll back earlier
// approvals, so the response is 200 even when some records fail.
// POST /api/records/approve-batch
func (h *Handler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.RecordIDs) == 0 {
		writeError(w, http.StatusBadRequest, "recordIds is required", nil)
		return
	}

	ctx := r.Context()
	employees, err := h.Store.LoadEmployees(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}
	byID := employeeIndex(employees)

	// Resolve ids to records, preserving input order. Unknown ids become
	// per-record failures, not a batch-wide error.
	var (
		records []*yukyu.LeaveRecord
		result  yukyu.BatchResult
	)
	for _, id := range req.RecordIDs {
		rec, err := h.Store.LoadRecord(ctx, id)
		if err != nil {
			reason := "record not found"
			if !errors.Is(err, yukyu.ErrRecordNotFound) {
				reason = err.Error()
			}
			result.Failed = append(result.Failed, yukyu.BatchFailure{
				RecordID: id,
				Code:     "RECORD_NOT_FOUND",
				Reason:   reason,
			})
			continue
		}
		records = append(records, &rec)
	}

	batch := h.Gate.ApproveBatch(byID, records, req.Approver, h.Now())
	result.Approved = batch.Approved
	result.Failed = append(result.Failed, batch.Failed...)

	approved := map[string]bool{}
	for _, id := range batch.Approved {
		approved[id] = true
	}
	for _, rec := range records {
		if !approved[rec.ID] {
			continue
		}
		if err := h.Store.SaveRecord(ctx, *rec); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist batch", err)
			return
		}
	}
	if len(batch.Approved) > 0 {
		if err := h.Store.ReplaceEmployees(ctx, flattenIndex(byID, employees)); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist employees", err)
			return
		}
	}

	dto := BatchResultDTO{Approved: result.Approved, Failed: []BatchFailureDTO{}}
	if dto.Approved == nil {
		dto.Approved = []string{}
	}
	for _, f := range result.Failed {
		dto.Failed = append(dto.Failed, BatchFailureDTO{
			RecordID: f.RecordID,
			Code:     f.Code,
			Reason:   f.Reason,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) persistApproval(ctx context.Context, byID map[string]*yukyu.Employee, employees []yukyu.Employee, rec yukyu.LeaveRecord) error {
	if err := h.Store.SaveRecord(ctx, rec); err != nil {
		return err
	}
	return h.Store.ReplaceEmployees(ctx, flattenIndex(byID, employees))
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// ComplianceReport runs fleet validation without modifying anything.
// GET /api/compliance/report
func (h *Handler) ComplianceReport(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.LoadEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}
	report := yukyu.ValidateAll(employees, h.Now())
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ReconcileFleet re-derives every derived field across the fleet and
// persists the result. Running it twice in a row yields zero changes the
// second time.
// POST /api/compliance/reconcile
func (h *Handler) ReconcileFleet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employees, err := h.Store.LoadEmployees(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}

	merged, repaired := yukyu.RepairFleet(employees, h.Now())
	if err := h.Store.ReplaceEmployees(ctx, merged); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store employees", err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		Checked:  len(employees),
		Repaired: len(repaired),
		Repairs:  toRepairDTOs(repaired),
	})
}

// Health reports liveness plus collection sizes.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.LoadEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Store unavailable", err)
		return
	}
	records, err := h.Store.LoadRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"employees": len(employees),
		"records":   len(records),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// employeeIndex builds the id-keyed view the gate operates on. The
// pointers alias the slice elements, so gate mutations land in both.
func employeeIndex(employees []yukyu.Employee) map[string]*yukyu.Employee {
	byID := make(map[string]*yukyu.Employee, len(employees))
	for i := range employees {
		byID[employees[i].ID] = &employees[i]
	}
	return byID
}

// flattenIndex returns the slice in original order with any gate
// mutations applied.
func flattenIndex(byID map[string]*yukyu.Employee, employees []yukyu.Employee) []yukyu.Employee {
	out := make([]yukyu.Employee, len(employees))
	for i := range employees {
		if e, ok := byID[employees[i].ID]; ok {
			out[i] = *e
		} else {
			out[i] = employees[i]
		}
	}
	return out
}

func writeApprovalError(w http.ResponseWriter, err error) {
	code := yukyu.ApprovalCode(err)
	status := http.StatusUnprocessableEntity
	switch code {
	case yukyu.CodeEmployeeNotFound:
		status = http.StatusNotFound
	case yukyu.CodeNotPending:
		status = http.StatusConflict
	}

	resp := ErrorResponse{Error: "Approval refused", Code: code}
	var apprErr *yukyu.ApprovalError
	if errors.As(err, &apprErr) {
		resp.Details = apprErr.Reason
	} else {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
