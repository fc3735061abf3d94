package loan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// dueDatePattern finds an MM-DD-YY token anywhere in the status text
var dueDatePattern = regexp.MustCompile(`(\d+)-(\d+)-(\d+)`)

// Date is a calendar date with no time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date. It does not normalize out-of-range values.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n)
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// IsZero reports whether d is the zero Date
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d falls before other
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDueDate extracts the first MM-DD-YY token from a status text.
// Two-digit years are placed in the 2000s; a four-digit year is accepted
// only when it already is.
func ParseDueDate(status string) (Date, error) {
	m := dueDatePattern.FindStringSubmatch(status)
	if m == nil {
		return Date{}, &MissingDueDateError{Index: -1, Status: status}
	}

	date, err := dateFromParts(m[1], m[2], m[3])
	if err != nil {
		return Date{}, &MissingDueDateError{Index: -1, Status: status, Err: err}
	}
	return date, nil
}

func dateFromParts(mm, dd, yy string) (Date, error) {
	month, err := strconv.Atoi(mm)
	if err != nil || len(mm) > 2 || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("invalid month %q", mm)
	}

	day, err := strconv.Atoi(dd)
	if err != nil || len(dd) > 2 || day < 1 {
		return Date{}, fmt.Errorf("invalid day %q", dd)
	}

	year, err := strconv.Atoi(yy)
	if err != nil {
		return Date{}, fmt.Errorf("invalid year %q", yy)
	}
	switch len(yy) {
	case 1, 2:
		year += 2000
	case 4:
		if year < 2000 || year > 2099 {
			return Date{}, fmt.Errorf("year %d outside 2000-2099", year)
		}
	default:
		return Date{}, fmt.Errorf("invalid year %q", yy)
	}

	// Reject days the month does not have (e.g. 02-30-24)
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return Date{}, fmt.Errorf("invalid day %d for %s %d", day, time.Month(month), year)
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}
