package dummydb

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceLedger struct {
	db *attendanceTable
}

var _ attendance.Ledger = (*attendanceLedger)(nil) // interface compliance check

func NewAttendanceLedger(db *DB) attendance.Ledger {
	return &attendanceLedger{db: db.attendance}
}

func (l *attendanceLedger) exists(studentID int64, date attendance.Date) bool {
	for _, rec := range l.db.rows {
		if rec.StudentID == studentID && rec.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (l *attendanceLedger) RecordExists(_ context.Context, studentID int64, date attendance.Date, _ ...core.DBExecutor) (bool, error) {
	l.db.RLock()
	defer l.db.RUnlock()
	return l.exists(studentID, date), nil
}

func (l *attendanceLedger) Append(_ context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	l.db.Lock()
	defer l.db.Unlock()

	// unique (student_id, date)
	if l.exists(rec.StudentID, rec.Date) {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	l.db.pk++
	rec.ID = l.db.pk
	l.db.rows = append(l.db.rows, rec)
	return rec, nil
}

func (l *attendanceLedger) RecordsForStudent(_ context.Context, studentID int64, _ ...core.DBExecutor) ([]attendance.Record, error) {
	l.db.RLock()
	defer l.db.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range l.db.rows {
		if rec.StudentID == studentID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (l *attendanceLedger) RecordsForStudentsInMonth(
	_ context.Context,
	studentIDs []int64,
	month attendance.YearMonth,
	_ ...core.DBExecutor,
) ([]attendance.Record, error) {
	l.db.RLock()
	defer l.db.RUnlock()

	ids := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		ids[id] = true
	}
	recs := make([]attendance.Record, 0)
	for _, rec := range l.db.rows {
		if ids[rec.StudentID] && month.Contains(rec.Date) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}
