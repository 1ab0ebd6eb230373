/*
Package sqlite provides the SQLite-backed yukyu.Store implementation.

PURPOSE:
  Persists the employee collection and leave records. The schema keeps
  the flat legacy employee columns (granted/used/balance/usage_rate)
  alongside JSON documents for the period history, consumption dates,
  and structured aggregates, so legacy consumers of the flat shape and
  the engine's derived views load from the same row.

COLLECTION SEMANTICS:
  Employees are replaced as a whole collection - ReplaceEmployees wipes
  and rewrites inside one transaction. That mirrors the sync contract:
  the caller hands back the full snapshot it was given. Leave records
  are upserted individually.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/yukyu.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - yukyu/storage.go: Interface definition
  - yukyu/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// Store implements yukyu.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		employee_num TEXT NOT NULL,
		name TEXT NOT NULL,
		haken TEXT,
		hire_date TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		granted REAL NOT NULL DEFAULT 0,
		used REAL NOT NULL DEFAULT 0,
		balance REAL NOT NULL DEFAULT 0,
		usage_rate REAL NOT NULL DEFAULT 0,
		expired REAL NOT NULL DEFAULT 0,
		year INTEGER NOT NULL DEFAULT 0,
		period_history TEXT,
		yukyu_dates TEXT,
		aggregates TEXT,
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		duration TEXT,
		note TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		approved_at TEXT,
		approved_by TEXT,
		rejection_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_records_employee
		ON leave_records(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_records_status
		ON leave_records(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JSON DOCUMENT SHAPES - camelCase, compatible with the legacy backend
// =============================================================================

type periodDoc struct {
	PeriodIndex     int      `json:"periodIndex"`
	PeriodName      string   `json:"periodName"`
	ElapsedMonths   int      `json:"elapsedMonths"`
	YukyuStartDate  string   `json:"yukyuStartDate"`
	GrantDate       string   `json:"grantDate"`
	ExpiryDate      string   `json:"expiryDate"`
	Granted         float64  `json:"granted"`
	Used            float64  `json:"used"`
	Balance         float64  `json:"balance"`
	Expired         float64  `json:"expired"`
	IsExpired       bool     `json:"isExpired"`
	IsCurrentPeriod bool     `json:"isCurrentPeriod"`
	YukyuDates      []string `json:"yukyuDates"`
	Source          string   `json:"source"`
	SyncedAt        string   `json:"syncedAt"`
}

type totalsDoc struct {
	Granted   float64 `json:"granted"`
	Used      float64 `json:"used"`
	Balance   float64 `json:"balance"`
	Expired   float64 `json:"expired"`
	Forfeited float64 `json:"forfeited"`
}

type aggregatesDoc struct {
	Current    *totalsDoc `json:"current,omitempty"`
	Historical *totalsDoc `json:"historical,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) LoadEmployees(ctx context.Context) ([]yukyu.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_num, name, haken, hire_date, status,
		       granted, used, balance, usage_rate, expired, year,
		       period_history, yukyu_dates, aggregates
		FROM employees ORDER BY employee_num`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []yukyu.Employee
	for rows.Next() {
		var (
			e                                yukyu.Employee
			haken, hireDate                  sql.NullString
			granted, used, balance           float64
			usageRate, expired               float64
			periodsJSON, datesJSON, aggsJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeNum, &e.Name, &haken, &hireDate, &e.Status,
			&granted, &used, &balance, &usageRate, &expired, &e.Year,
			&periodsJSON, &datesJSON, &aggsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}

		e.Haken = haken.String
		if hireDate.Valid && hireDate.String != "" {
			if d, err := yukyu.ParseDate(hireDate.String); err == nil {
				e.HireDate = &d
			}
		}
		e.Granted = decimal.NewFromFloat(granted)
		e.Used = decimal.NewFromFloat(used)
		e.Balance = decimal.NewFromFloat(balance)
		e.UsageRate = decimal.NewFromFloat(usageRate)
		e.Expired = decimal.NewFromFloat(expired)

		if periodsJSON.Valid && periodsJSON.String != "" {
			var docs []periodDoc
			if err := json.Unmarshal([]byte(periodsJSON.String), &docs); err != nil {
				return nil, fmt.Errorf("employee %s: bad period history: %w", e.ID, err)
			}
			for _, doc := range docs {
				e.Periods = append(e.Periods, docToPeriod(doc))
			}
		}
		if datesJSON.Valid && datesJSON.String != "" {
			var raw []string
			if err := json.Unmarshal([]byte(datesJSON.String), &raw); err != nil {
				return nil, fmt.Errorf("employee %s: bad yukyu dates: %w", e.ID, err)
			}
			e.LeaveDates = parseDates(raw)
		}
		if aggsJSON.Valid && aggsJSON.String != "" {
			var doc aggregatesDoc
			if err := json.Unmarshal([]byte(aggsJSON.String), &doc); err != nil {
				return nil, fmt.Errorf("employee %s: bad aggregates: %w", e.ID, err)
			}
			e.Current = docToTotals(doc.Current)
			e.Historical = docToTotals(doc.Historical)
		}

		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) ReplaceEmployees(ctx context.Context, employees []yukyu.Employee) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employees`); err != nil {
		return fmt.Errorf("failed to clear employees: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO employees
			(id, employee_num, name, haken, hire_date, status,
			 granted, used, balance, usage_rate, expired, year,
			 period_history, yukyu_dates, aggregates, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range employees {
		periodsJSON, datesJSON, aggsJSON, err := marshalEmployeeDocs(e)
		if err != nil {
			return fmt.Errorf("employee %s: %w", e.ID, err)
		}

		var hireDate any
		if e.HireDate != nil {
			hireDate = e.HireDate.String()
		}

		if _, err := stmt.ExecContext(ctx,
			e.ID, e.EmployeeNum, e.Name, e.Haken, hireDate, string(e.Status),
			e.Granted.InexactFloat64(), e.Used.InexactFloat64(),
			e.Balance.InexactFloat64(), e.UsageRate.InexactFloat64(),
			e.Expired.InexactFloat64(), e.Year,
			periodsJSON, datesJSON, aggsJSON, now,
		); err != nil {
			return fmt.Errorf("failed to insert employee %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func marshalEmployeeDocs(e yukyu.Employee) (periods, dates, aggs any, err error) {
	if len(e.Periods) > 0 {
		docs := make([]periodDoc, len(e.Periods))
		for i, p := range e.Periods {
			docs[i] = periodToDoc(p)
		}
		b, err := json.Marshal(docs)
		if err != nil {
			return nil, nil, nil, err
		}
		periods = string(b)
	}
	if len(e.LeaveDates) > 0 {
		b, err := json.Marshal(formatDates(e.LeaveDates))
		if err != nil {
			return nil, nil, nil, err
		}
		dates = string(b)
	}
	if e.Current != nil || e.Historical != nil {
		doc := aggregatesDoc{Current: totalsToDoc(e.Current), Historical: totalsToDoc(e.Historical)}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, nil, nil, err
		}
		aggs = string(b)
	}
	return periods, dates, aggs, nil
}

// =============================================================================
// LEAVE RECORDS
// =============================================================================

func (s *Store) LoadRecords(ctx context.Context) ([]yukyu.LeaveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, date, type, duration, note, status,
		       created_at, approved_at, approved_by, rejection_reason
		FROM leave_records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	defer rows.Close()

	var records []yukyu.LeaveRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) LoadRecord(ctx context.Context, id string) (yukyu.LeaveRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, date, type, duration, note, status,
		       created_at, approved_at, approved_by, rejection_reason
		FROM leave_records WHERE id = ?`, id)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return yukyu.LeaveRecord{}, yukyu.ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) SaveRecord(ctx context.Context, rec yukyu.LeaveRecord) error {
	var approvedAt, approvedBy, rejectionReason any
	if rec.ApprovedAt != nil {
		approvedAt = rec.ApprovedAt.UTC().Format(time.RFC3339)
	}
	if rec.ApprovedBy != nil {
		approvedBy = *rec.ApprovedBy
	}
	if rec.RejectionReason != nil {
		rejectionReason = *rec.RejectionReason
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO leave_records
			(id, employee_id, date, type, duration, note, status,
			 created_at, approved_at, approved_by, rejection_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EmployeeID, rec.Date, string(rec.Kind), rec.Duration, rec.Note,
		string(rec.Status), rec.CreatedAt.UTC().Format(time.RFC3339),
		approvedAt, approvedBy, rejectionReason)
	if err != nil {
		return fmt.Errorf("failed to save leave record %s: %w", rec.ID, err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (yukyu.LeaveRecord, error) {
	var (
		rec                               yukyu.LeaveRecord
		duration, note                    sql.NullString
		createdAt                         string
		approvedAt, approvedBy, rejReason sql.NullString
		kind, status                      string
	)
	if err := scan(&rec.ID, &rec.EmployeeID, &rec.Date, &kind, &duration, &note, &status,
		&createdAt, &approvedAt, &approvedBy, &rejReason); err != nil {
		return yukyu.LeaveRecord{}, err
	}

	rec.Kind = yukyu.LeaveKind(kind)
	rec.Status = yukyu.RecordStatus(status)
	rec.Duration = duration.String
	rec.Note = note.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if approvedAt.Valid {
		if t, err := time.Parse(time.RFC3339, approvedAt.String); err == nil {
			rec.ApprovedAt = &t
		}
	}
	if approvedBy.Valid {
		v := approvedBy.String
		rec.ApprovedBy = &v
	}
	if rejReason.Valid {
		v := rejReason.String
		rec.RejectionReason = &v
	}
	return rec, nil
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func periodToDoc(p yukyu.AccrualPeriod) periodDoc {
	return periodDoc{
		PeriodIndex:     p.Index,
		PeriodName:      p.Name,
		ElapsedMonths:   p.ElapsedMonths,
		YukyuStartDate:  p.GrantDate.String(),
		GrantDate:       p.GrantDate.String(),
		ExpiryDate:      p.ExpiryDate.String(),
		Granted:         p.Granted.InexactFloat64(),
		Used:            p.Used.InexactFloat64(),
		Balance:         p.Balance.InexactFloat64(),
		Expired:         p.ExpiredDays.InexactFloat64(),
		IsExpired:       p.Expired,
		IsCurrentPeriod: p.CurrentPeriod,
		YukyuDates:      formatDates(p.Dates),
		Source:          p.Source,
		SyncedAt:        p.SyncedAt.UTC().Format(time.RFC3339),
	}
}

func docToPeriod(doc periodDoc) yukyu.AccrualPeriod {
	p := yukyu.AccrualPeriod{
		Index:         doc.PeriodIndex,
		Name:          doc.PeriodName,
		ElapsedMonths: doc.ElapsedMonths,
		Granted:       decimal.NewFromFloat(doc.Granted),
		Used:          decimal.NewFromFloat(doc.Used),
		Balance:       decimal.NewFromFloat(doc.Balance),
		ExpiredDays:   decimal.NewFromFloat(doc.Expired),
		Expired:       doc.IsExpired,
		CurrentPeriod: doc.IsCurrentPeriod,
		Dates:         parseDates(doc.YukyuDates),
		Source:        doc.Source,
	}
	if d, err := yukyu.ParseDate(doc.GrantDate); err == nil {
		p.GrantDate = d
	}
	if d, err := yukyu.ParseDate(doc.ExpiryDate); err == nil {
		p.ExpiryDate = d
	}
	if t, err := time.Parse(time.RFC3339, doc.SyncedAt); err == nil {
		p.SyncedAt = t
	}
	return p
}

func totalsToDoc(t *yukyu.Totals) *totalsDoc {
	if t == nil {
		return nil
	}
	return &totalsDoc{
		Granted:   t.Granted.InexactFloat64(),
		Used:      t.Used.InexactFloat64(),
		Balance:   t.Balance.InexactFloat64(),
		Expired:   t.Expired.InexactFloat64(),
		Forfeited: t.Forfeited.InexactFloat64(),
	}
}

func docToTotals(doc *totalsDoc) *yukyu.Totals {
	if doc == nil {
		return nil
	}
	return &yukyu.Totals{
		Granted:   decimal.NewFromFloat(doc.Granted),
		Used:      decimal.NewFromFloat(doc.Used),
		Balance:   decimal.NewFromFloat(doc.Balance),
		Expired:   decimal.NewFromFloat(doc.Expired),
		Forfeited: decimal.NewFromFloat(doc.Forfeited),
	}
}

func formatDates(dates []yukyu.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

// parseDates drops malformed entries rather than failing the row; a bad
// imported date is unusable, not fatal.
func parseDates(raw []string) []yukyu.Date {
	var out []yukyu.Date
	for _, s := range raw {
		if d, err := yukyu.ParseDate(s); err == nil {
			out = append(out, d)
		}
	}
	return out
}
