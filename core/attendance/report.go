package attendance

import (
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/student"
)

// SlotPolicy decides how an attendance slot (one student on one recorded day) without a record counts.
type SlotPolicy string

const (
	// SlotsCompat keeps the historical formulas: students are rated on their present records,
	// the class average subtracts absences from all slots (missing records count as present).
	SlotsCompat SlotPolicy = "compat"
	// SlotsPresent counts missing records as present.
	SlotsPresent SlotPolicy = "present"
	// SlotsAbsent counts missing records as absent.
	SlotsAbsent SlotPolicy = "absent"
	// SlotsExcluded ignores missing records.
	SlotsExcluded SlotPolicy = "excluded"
)

func ParseSlotPolicy(s string) (SlotPolicy, error) {
	switch p := SlotPolicy(s); p {
	case SlotsCompat, SlotsPresent, SlotsAbsent, SlotsExcluded:
		return p, nil
	case "":
		return SlotsCompat, nil
	default:
		return "", errors.Errorf("unknown slot policy %q", s)
	}
}

// percent returns round(num / den * 100), or 0 when den is 0.
func percent(num, den int) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den) * 100))
}

func buildStudentReport(records []Record) StudentReport {
	rep := StudentReport{Attendances: make([]DayStatus, 0, len(records))}
	for _, rec := range records {
		rep.Attendances = append(rep.Attendances, DayStatus{Date: rec.Date, Status: rec.Status})
		if rec.Status == StatusPresent {
			rep.Totals.Present++
		}
	}
	rep.Totals.TotalDays = len(records)
	rep.Totals.Absent = rep.Totals.TotalDays - rep.Totals.Present
	return rep
}

func emptyClassReport() ClassReport {
	return ClassReport{Students: []StudentAttendance{}}
}

// buildClassReport aggregates the records of a month, students keep their given order.
// Records of students outside of students are ignored.
func buildClassReport(students []student.Student, records []Record, policy SlotPolicy) ClassReport {
	if len(students) == 0 {
		return emptyClassReport()
	}

	type counts struct{ present, absent int }
	perStudent := make(map[int64]*counts, len(students))
	for _, st := range students {
		perStudent[st.ID] = &counts{}
	}

	days := make(map[string]struct{})
	for _, rec := range records {
		c, ok := perStudent[rec.StudentID]
		if !ok {
			continue
		}
		days[rec.Date.String()] = struct{}{}
		switch rec.Status {
		case StatusPresent:
			c.present++
		case StatusAbsent:
			c.absent++
		}
	}

	totalDays := len(days)
	rep := ClassReport{
		Summary: ClassSummary{
			TotalStudents: len(students),
			TotalDays:     totalDays,
		},
		Students: make([]StudentAttendance, 0, len(students)),
	}

	var totalPresent int
	for _, st := range students {
		c := perStudent[st.ID]
		rep.Summary.TotalAbsences += c.absent
		totalPresent += c.present

		var pct int
		switch policy {
		case SlotsPresent:
			pct = percent(totalDays-c.absent, totalDays)
		case SlotsExcluded:
			pct = percent(c.present, c.present+c.absent)
		default: // compat, absent
			pct = percent(c.present, totalDays)
		}
		rep.Students = append(rep.Students, StudentAttendance{
			Name:                 st.Name,
			PresentDays:          c.present,
			AbsentDays:           c.absent,
			AttendancePercentage: pct,
		})
	}

	slots := rep.Summary.TotalStudents * totalDays
	switch policy {
	case SlotsAbsent:
		rep.Summary.AverageAttendance = percent(totalPresent, slots)
	case SlotsExcluded:
		rep.Summary.AverageAttendance = percent(totalPresent, totalPresent+rep.Summary.TotalAbsences)
	default: // compat, present
		rep.Summary.AverageAttendance = percent(slots-rep.Summary.TotalAbsences, slots)
	}
	return rep
}
