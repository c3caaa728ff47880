package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

func (s Status) Valid() bool { return s == StatusPresent || s == StatusAbsent }

const dateLayout = "2006-01-02"

// Date is a calendar day, stored as midnight UTC.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t, in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time        { return d.t }
func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) String() string         { return d.t.Format(dateLayout) }

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

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return errors.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return errors.Wrap(err, "scanning Date")
	}
	*d = parsed
	return nil
}

// YearMonth is a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses `YYYY-M` or `YYYY-MM`.
func ParseYearMonth(s string) (YearMonth, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || !isDigits(parts[0], 4) || !isDigits(parts[1], 2) {
		return YearMonth{}, ErrInvalidMonth
	}
	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	if year < 1 || month < 1 || month > 12 {
		return YearMonth{}, ErrInvalidMonth
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

func isDigits(s string, maxLen int) bool {
	if s == "" || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Start is the first day of the month.
func (ym YearMonth) Start() Date { return NewDate(ym.Year, ym.Month, 1) }

// End is the first day of the next month (exclusive).
func (ym YearMonth) End() Date { return NewDate(ym.Year, ym.Month+1, 1) }

func (ym YearMonth) Contains(d Date) bool {
	return !d.Before(ym.Start()) && d.Before(ym.End())
}

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month) }

// Record is one ledger entry: the status of a student on a given day.
type Record struct {
	ID        int64     `json:"id" db:"id"`
	StudentID int64     `json:"student_id" db:"student_id"`
	Date      Date      `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	MarkedBy  int64     `json:"marked_by_teacher_id" db:"marked_by_teacher_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type (
	// MarkRequest is a batch of statuses for today.
	MarkRequest struct {
		Attendances []MarkEntry `json:"attendances" validate:"required,min=1,dive"`
	}

	MarkEntry struct {
		StudentID int64  `json:"student_id" validate:"required,gt=0"`
		Status    Status `json:"status" validate:"required,oneof=present absent"`
	}
)

func (req MarkRequest) studentIDs() []int64 {
	ids := make([]int64, 0, len(req.Attendances))
	seen := make(map[int64]bool, len(req.Attendances))
	for _, e := range req.Attendances {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			ids = append(ids, e.StudentID)
		}
	}
	return ids
}

type (
	DayStatus struct {
		Date   Date   `json:"date"`
		Status Status `json:"status"`
	}

	StudentTotals struct {
		TotalDays int `json:"total_days"`
		Present   int `json:"present"`
		Absent    int `json:"absent"`
	}

	// StudentReport is the all-time attendance of a student.
	StudentReport struct {
		Attendances []DayStatus   `json:"attendances"`
		Totals      StudentTotals `json:"totals"`
	}
)

func (t StudentTotals) String() string {
	return fmt.Sprintf("Total Days: %d, Present: %d, Absent: %d", t.TotalDays, t.Present, t.Absent)
}

type (
	ClassSummary struct {
		TotalStudents     int `json:"total_students"`
		TotalDays         int `json:"total_days"`
		AverageAttendance int `json:"average_attendance"`
		TotalAbsences     int `json:"total_absences"`
	}

	StudentAttendance struct {
		Name                 string `json:"name"`
		PresentDays          int    `json:"present_days"`
		AbsentDays           int    `json:"absent_days"`
		AttendancePercentage int    `json:"attendance_percentage"`
	}

	// ClassReport is the attendance of a class over a calendar month.
	ClassReport struct {
		Summary  ClassSummary        `json:"summary"`
		Students []StudentAttendance `json:"students"`
	}
)
