package yukyu

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar day in UTC. Everything in this engine is day-granular:
// grants land on a day, expiries trigger on a day, leave is consumed by day.
// Hours and time zones are deliberately out of the model; imported payroll
// data only carries dates.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string. Malformed input is the caller's
// problem to degrade on; the engine never aborts a whole computation for it.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// DateOf truncates a time.Time to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthsBetween returns the whole calendar months elapsed from one date to
// another, counting only year and month. The day-of-month is ignored on both
// sides: someone hired 2021-05-10 is 44 months in on 2025-01-03, not 43.
// This matches the month-bucket semantics of the statutory grant table.
func MonthsBetween(from, to Date) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// =============================================================================
// DATE SETS - Sorted-unique consumption date lists
// =============================================================================

// InsertDate inserts d into a sorted date list, keeping it sorted and unique.
func InsertDate(dates []Date, d Date) []Date {
	for i, existing := range dates {
		if existing.Equal(d) {
			return dates
		}
		if existing.After(d) {
			dates = append(dates, Date{})
			copy(dates[i+1:], dates[i:])
			dates[i] = d
			return dates
		}
	}
	return append(dates, d)
}

// ContainsDate reports whether d appears in the list.
func ContainsDate(dates []Date, d Date) bool {
	for _, existing := range dates {
		if existing.Equal(d) {
			return true
		}
	}
	return false
}
