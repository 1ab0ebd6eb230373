/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract; the wire shape
  is camelCase, matching what the existing frontend already consumes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Day counts cross the wire as JSON numbers. Internally they are
  decimal.Decimal; the conversion helpers at the bottom of this file are
  the only place the two representations meet.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - yukyu/types.go: Domain model these map to
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses and sync requests.
type EmployeeDTO struct {
	ID          string      `json:"id"`
	EmployeeNum string      `json:"employeeNum"`
	Name        string      `json:"name"`
	Haken       string      `json:"haken,omitempty"`
	HireDate    string      `json:"hireDate,omitempty"`
	Status      string      `json:"status"`
	Granted     float64     `json:"granted"`
	Used        float64     `json:"used"`
	Balance     float64     `json:"balance"`
	UsageRate   float64     `json:"usageRate"`
	Expired     float64     `json:"expired"`
	Year        int         `json:"year"`
	Periods     []PeriodDTO `json:"periodHistory,omitempty"`
	YukyuDates  []string    `json:"yukyuDates,omitempty"`
	Current     *TotalsDTO  `json:"current,omitempty"`
	Historical  *TotalsDTO  `json:"historical,omitempty"`
}

// PeriodDTO represents one accrual period on the wire.
type PeriodDTO struct {
	PeriodIndex     int      `json:"periodIndex"`
	PeriodName      string   `json:"periodName"`
	ElapsedMonths   int      `json:"elapsedMonths"`
	GrantDate       string   `json:"grantDate"`
	ExpiryDate      string   `json:"expiryDate"`
	Granted         float64  `json:"granted"`
	Used            float64  `json:"used"`
	Balance         float64  `json:"balance"`
	Expired         float64  `json:"expired"`
	IsExpired       bool     `json:"isExpired"`
	IsCurrentPeriod bool     `json:"isCurrentPeriod"`
	YukyuDates      []string `json:"yukyuDates,omitempty"`
	Source          string   `json:"source,omitempty"`
	SyncedAt        string   `json:"syncedAt,omitempty"`
}

// TotalsDTO is one derived granted/used/balance/expired group.
type TotalsDTO struct {
	Granted   float64 `json:"granted"`
	Used      float64 `json:"used"`
	Balance   float64 `json:"balance"`
	Expired   float64 `json:"expired"`
	Forfeited float64 `json:"forfeited"`
}

// SyncRequest is the full-replacement employee sync payload.
type SyncRequest struct {
	Employees []EmployeeDTO `json:"employees"`
}

// SyncResponse summarizes a sync run.
type SyncResponse struct {
	Synced int                 `json:"synced"`
	Report ComplianceReportDTO `json:"report"`
}

// =============================================================================
// LEAVE RECORD TYPES
// =============================================================================

// RecordDTO represents a leave record in API responses.
type RecordDTO struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employeeId"`
	Date            string  `json:"date"`
	Type            string  `json:"type"`
	Duration        string  `json:"duration,omitempty"`
	Note            string  `json:"note,omitempty"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"createdAt"`
	ApprovedAt      *string `json:"approvedAt,omitempty"`
	ApprovedBy      *string `json:"approvedBy,omitempty"`
	RejectionReason *string `json:"rejectionReason,omitempty"`
}

// CreateRecordRequest is the request to submit a leave record.
type CreateRecordRequest struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Type       string `json:"type"`
	Duration   string `json:"duration"`
	Note       string `json:"note"`
}

// ApproveRequest carries the approver identity.
type ApproveRequest struct {
	Approver string `json:"approver"`
}

// RejectRequest carries the approver identity and rejection reason.
type RejectRequest struct {
	Approver string `json:"approver"`
	Reason   string `json:"reason"`
}

// BatchApproveRequest is the batch approval payload. Records are
// processed in the order given.
type BatchApproveRequest struct {
	RecordIDs []string `json:"recordIds"`
	Approver  string   `json:"approver"`
}

// BatchFailureDTO is one non-approved record in a batch response.
type BatchFailureDTO struct {
	RecordID string `json:"recordId"`
	Code     string `json:"code"`
	Reason   string `json:"reason"`
}

// BatchResultDTO is the batch approval outcome.
type BatchResultDTO struct {
	Approved []string          `json:"approved"`
	Failed   []BatchFailureDTO `json:"failed"`
}

// =============================================================================
// COMPLIANCE TYPES
// =============================================================================

// IssueDTO is one validation finding.
type IssueDTO struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ValidationResultDTO groups an employee's findings.
type ValidationResultDTO struct {
	EmployeeID string     `json:"employeeId"`
	Issues     []IssueDTO `json:"issues"`
}

// ComplianceReportDTO is the fleet validation report.
type ComplianceReportDTO struct {
	GeneratedAt string                `json:"generatedAt"`
	Checked     int                   `json:"checked"`
	Counts      map[string]int        `json:"counts"`
	Results     []ValidationResultDTO `json:"results"`
}

// FieldChangeDTO is one corrected field from a reconciliation run.
type FieldChangeDTO struct {
	Field  string `json:"field"`
	Old    string `json:"old"`
	New    string `json:"new"`
	Reason string `json:"reason"`
}

// RepairDTO groups one employee's reconciliation changes.
type RepairDTO struct {
	EmployeeID string           `json:"employeeId"`
	Changes    []FieldChangeDTO `json:"changes"`
}

// ReconcileResponse is the explicit-reconciliation outcome.
type ReconcileResponse struct {
	Checked  int         `json:"checked"`
	Repaired int         `json:"repaired"`
	Repairs  []RepairDTO `json:"repairs"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e yukyu.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          e.ID,
		EmployeeNum: e.EmployeeNum,
		Name:        e.Name,
		Haken:       e.Haken,
		Status:      string(e.Status),
		Granted:     e.Granted.InexactFloat64(),
		Used:        e.Used.InexactFloat64(),
		Balance:     e.Balance.InexactFloat64(),
		UsageRate:   e.UsageRate.InexactFloat64(),
		Expired:     e.Expired.InexactFloat64(),
		Year:        e.Year,
		YukyuDates:  formatDateList(e.LeaveDates),
		Current:     toTotalsDTO(e.Current),
		Historical:  toTotalsDTO(e.Historical),
	}
	if e.HireDate != nil {
		dto.HireDate = e.HireDate.String()
	}
	for _, p := range e.Periods {
		dto.Periods = append(dto.Periods, toPeriodDTO(p))
	}
	return dto
}

func fromEmployeeDTO(dto EmployeeDTO) yukyu.Employee {
	e := yukyu.Employee{
		ID:          dto.ID,
		EmployeeNum: dto.EmployeeNum,
		Name:        dto.Name,
		Haken:       dto.Haken,
		Status:      yukyu.EmploymentStatus(dto.Status),
		Granted:     decimal.NewFromFloat(dto.Granted),
		Used:        decimal.NewFromFloat(dto.Used),
		Balance:     decimal.NewFromFloat(dto.Balance),
		UsageRate:   decimal.NewFromFloat(dto.UsageRate),
		Expired:     decimal.NewFromFloat(dto.Expired),
		Year:        dto.Year,
		LeaveDates:  parseDateList(dto.YukyuDates),
	}
	if e.Status == "" {
		e.Status = yukyu.StatusActive
	}
	if dto.HireDate != "" {
		if d, err := yukyu.ParseDate(dto.HireDate); err == nil {
			e.HireDate = &d
		}
	}
	for _, p := range dto.Periods {
		e.Periods = append(e.Periods, fromPeriodDTO(p))
	}
	return e
}

func toPeriodDTO(p yukyu.AccrualPeriod) PeriodDTO {
	dto := PeriodDTO{
		PeriodIndex:     p.Index,
		PeriodName:      p.Name,
		ElapsedMonths:   p.ElapsedMonths,
		GrantDate:       p.GrantDate.String(),
		ExpiryDate:      p.ExpiryDate.String(),
		Granted:         p.Granted.InexactFloat64(),
		Used:            p.Used.InexactFloat64(),
		Balance:         p.Balance.InexactFloat64(),
		Expired:         p.ExpiredDays.InexactFloat64(),
		IsExpired:       p.Expired,
		IsCurrentPeriod: p.CurrentPeriod,
		YukyuDates:      formatDateList(p.Dates),
		Source:          p.Source,
	}
	if !p.SyncedAt.IsZero() {
		dto.SyncedAt = p.SyncedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func fromPeriodDTO(dto PeriodDTO) yukyu.AccrualPeriod {
	p := yukyu.AccrualPeriod{
		Index:         dto.PeriodIndex,
		Name:          dto.PeriodName,
		ElapsedMonths: dto.ElapsedMonths,
		Granted:       decimal.NewFromFloat(dto.Granted),
		Used:          decimal.NewFromFloat(dto.Used),
		Balance:       decimal.NewFromFloat(dto.Balance),
		ExpiredDays:   decimal.NewFromFloat(dto.Expired),
		Expired:       dto.IsExpired,
		CurrentPeriod: dto.IsCurrentPeriod,
		Dates:         parseDateList(dto.YukyuDates),
		Source:        dto.Source,
	}
	if d, err := yukyu.ParseDate(dto.GrantDate); err == nil {
		p.GrantDate = d
	}
	if d, err := yukyu.ParseDate(dto.ExpiryDate); err == nil {
		p.ExpiryDate = d
	}
	if t, err := time.Parse(time.RFC3339, dto.SyncedAt); err == nil {
		p.SyncedAt = t
	}
	return p
}

func toTotalsDTO(t *yukyu.Totals) *TotalsDTO {
	if t == nil {
		return nil
	}
	return &TotalsDTO{
		Granted:   t.Granted.InexactFloat64(),
		Used:      t.Used.InexactFloat64(),
		Balance:   t.Balance.InexactFloat64(),
		Expired:   t.Expired.InexactFloat64(),
		Forfeited: t.Forfeited.InexactFloat64(),
	}
}

func toRecordDTO(rec yukyu.LeaveRecord) RecordDTO {
	dto := RecordDTO{
		ID:              rec.ID,
		EmployeeID:      rec.EmployeeID,
		Date:            rec.Date,
		Type:            string(rec.Kind),
		Duration:        rec.Duration,
		Note:            rec.Note,
		Status:          string(rec.Status),
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
		ApprovedBy:      rec.ApprovedBy,
		RejectionReason: rec.RejectionReason,
	}
	if rec.ApprovedAt != nil {
		s := rec.ApprovedAt.UTC().Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	return dto
}

func toReportDTO(report yukyu.FleetReport) ComplianceReportDTO {
	dto := ComplianceReportDTO{
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Checked:     report.Checked,
		Counts:      map[string]int{},
		Results:     []ValidationResultDTO{},
	}
	for sev, n := range report.Counts {
		dto.Counts[string(sev)] = n
	}
	for _, res := range report.Results {
		r := ValidationResultDTO{EmployeeID: res.EmployeeID}
		for _, issue := range res.Issues {
			r.Issues = append(r.Issues, IssueDTO{
				Severity: string(issue.Severity),
				Code:     issue.Code,
				Message:  issue.Message,
			})
		}
		dto.Results = append(dto.Results, r)
	}
	return dto
}

func toRepairDTOs(repaired []yukyu.RepairedEmployee) []RepairDTO {
	dtos := make([]RepairDTO, 0, len(repaired))
	for _, r := range repaired {
		dto := RepairDTO{EmployeeID: r.Employee.ID}
		for _, ch := range r.Changes {
			dto.Changes = append(dto.Changes, FieldChangeDTO{
				Field:  ch.Field,
				Old:    ch.Old,
				New:    ch.New,
				Reason: ch.Reason,
			})
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func formatDateList(dates []yukyu.Date) []string {
	if len(dates) == 0 {
		return nil
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func parseDateList(raw []string) []yukyu.Date {
	var out []yukyu.Date
	for _, s := range raw {
		if d, err := yukyu.ParseDate(s); err == nil {
			out = append(out, d)
		}
	}
	return out
}
