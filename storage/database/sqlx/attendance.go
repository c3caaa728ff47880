package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/storage/database"
)

const attendanceColumns = "id, student_id, date, status, marked_by_teacher_id, created_at, updated_at"

type attendanceLedger struct {
	db core.DBExecutor
}

var _ attendance.Ledger = (*attendanceLedger)(nil) // interface compliance check

func NewAttendanceLedger(db core.DBExecutor) attendance.Ledger {
	return &attendanceLedger{db: db}
}

func (l *attendanceLedger) RecordExists(ctx context.Context, studentID int64, date attendance.Date, exec ...core.DBExecutor) (bool, error) {
	var found bool
	q := "SELECT EXISTS(SELECT 1 FROM attendances WHERE student_id = $1 AND date = $2)"
	if err := sqlx.GetContext(ctx, core.GetExec(l.db, exec), &found, q, studentID, date); err != nil {
		return false, errors.Wrap(err, "checking attendance")
	}
	return found, nil
}

// Append checks for an existing record first, the unique (student_id, date) constraint
// catches the concurrent inserts that slip through.
func (l *attendanceLedger) Append(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	db := core.GetExec(l.db, exec)

	found, err := l.RecordExists(ctx, rec.StudentID, rec.Date, db)
	if err != nil {
		return attendance.Record{}, err
	}
	if found {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}

	q := `INSERT INTO attendances (student_id, date, status, marked_by_teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = db.QueryRowxContext(
		ctx, q,
		rec.StudentID, rec.Date, rec.Status, rec.MarkedBy, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance")
	}
	return rec, nil
}

func (l *attendanceLedger) RecordsForStudent(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	q := "SELECT " + attendanceColumns + " FROM attendances WHERE student_id = $1 ORDER BY id ASC"
	if err := sqlx.SelectContext(ctx, core.GetExec(l.db, exec), &recs, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting student attendances")
	}
	return recs, nil
}

func (l *attendanceLedger) RecordsForStudentsInMonth(
	ctx context.Context,
	studentIDs []int64,
	month attendance.YearMonth,
	exec ...core.DBExecutor,
) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	if len(studentIDs) == 0 {
		return recs, nil
	}

	q := "SELECT " + attendanceColumns + ` FROM attendances
		WHERE student_id = ANY($1) AND date >= $2 AND date < $3
		ORDER BY date ASC, id ASC`
	err := sqlx.SelectContext(
		ctx, core.GetExec(l.db, exec), &recs, q,
		pq.Array(studentIDs), month.Start(), month.End(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting class attendances")
	}
	return recs, nil
}
