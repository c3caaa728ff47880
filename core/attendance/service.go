package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrDuplicateRecord = errors.New("attendance record already exists")
	ErrAlreadyMarked   = errors.New("attendance already marked for today")
	ErrInvalidMonth    = errors.New("invalid month format")
	ErrReportFailed    = errors.New("class report failed")
)

type (
	// Ledger is the append-only store of attendance records.
	// Every method can join a transaction through exec.
	Ledger interface {
		RecordExists(ctx context.Context, studentID int64, date Date, exec ...core.DBExecutor) (bool, error)
		// Append returns ErrDuplicateRecord if the student already has a record for rec.Date.
		Append(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		// RecordsForStudent returns all the records of the student in insertion order.
		RecordsForStudent(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]Record, error)
		RecordsForStudentsInMonth(ctx context.Context, studentIDs []int64, month YearMonth, exec ...core.DBExecutor) ([]Record, error)
	}

	// Directory is the read-only view of the registered students.
	Directory interface {
		ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
		QueryByClass(ctx context.Context, classGrade string) ([]student.Student, error)
	}

	Options struct {
		// AtomicBatch rolls back the whole batch when one entry fails.
		// Otherwise the entries written before the failure are kept.
		AtomicBatch bool
		SlotPolicy  SlotPolicy
	}

	Service struct {
		ledger   Ledger
		students Directory
		tx       core.Transactor
		validate *validator.Validate
		logger   core.Logger
		opts     Options
	}
)

func NewService(
	ledger Ledger,
	students Directory,
	tx core.Transactor,
	validate *validator.Validate,
	logger core.Logger,
	opts Options,
) *Service {
	if opts.SlotPolicy == "" {
		opts.SlotPolicy = SlotsCompat
	}
	return &Service{
		ledger:   ledger,
		students: students,
		tx:       tx,
		validate: validate,
		logger:   logger,
		opts:     opts,
	}
}

// MarkAttendance records today's status of each student of the batch, in order.
// It stops at the first student already marked today and returns ErrAlreadyMarked
// along with the records written so far (none when the batch is atomic).
func (svc *Service) MarkAttendance(ctx context.Context, p user.Principal, req MarkRequest) ([]Record, error) {
	if err := svc.validateMarkRequest(ctx, req); err != nil {
		batchesRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	today := DateOf(NowFunc().UTC())
	if !svc.opts.AtomicBatch {
		recs, err := svc.appendAll(ctx, p, today, req.Attendances, nil)
		svc.countMarked(recs)
		return recs, err
	}

	var recs []Record
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		recs, err = svc.appendAll(ctx, p, today, req.Attendances, exec)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.countMarked(recs)
	return recs, nil
}

func (svc *Service) validateMarkRequest(ctx context.Context, req MarkRequest) error {
	if err := svc.validate.Struct(req); err != nil {
		return err
	}

	found, err := svc.students.ExistingIDs(ctx, req.studentIDs())
	if err != nil {
		return errors.Wrap(err, "checking students")
	}
	var fldErrs []core.FieldError
	for i, e := range req.Attendances {
		if !found[e.StudentID] {
			fldErrs = append(fldErrs, core.FieldError{
				Field: fmt.Sprintf("attendances.%d.student_id", i),
				Error: student.ErrNotFound.Error(),
			})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func (svc *Service) appendAll(
	ctx context.Context,
	p user.Principal,
	day Date,
	entries []MarkEntry,
	exec core.DBExecutor,
) ([]Record, error) {
	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		now := NowFunc().UTC()
		rec, err := svc.ledger.Append(ctx, Record{
			StudentID: e.StudentID,
			Date:      day,
			Status:    e.Status,
			MarkedBy:  p.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}, exec)
		if err != nil {
			if errors.Cause(err) == ErrDuplicateRecord {
				batchesRejected.WithLabelValues("duplicate").Inc()
				return recs, ErrAlreadyMarked
			}
			return recs, errors.Wrapf(err, "appending record of student %d", e.StudentID)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (svc *Service) countMarked(recs []Record) {
	for _, rec := range recs {
		recordsMarked.WithLabelValues(string(rec.Status)).Inc()
	}
}

// StudentReport returns the whole attendance history of a student.
func (svc *Service) StudentReport(ctx context.Context, studentID int64) (StudentReport, error) {
	records, err := svc.ledger.RecordsForStudent(ctx, studentID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "fetching student records")
	}
	reportsBuilt.WithLabelValues("student").Inc()
	return buildStudentReport(records), nil
}

// ClassReport returns the attendance of the students of classGrade over month (`YYYY-MM`).
// A class without students gives a zero report.
func (svc *Service) ClassReport(ctx context.Context, classGrade, month string) (ClassReport, error) {
	ym, err := ParseYearMonth(month)
	if err != nil {
		return ClassReport{}, err
	}

	fail := func(err error, msg string) (ClassReport, error) {
		svc.logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
			"class_grade": classGrade,
			"month":       ym.String(),
		})
		return ClassReport{}, ErrReportFailed
	}

	students, err := svc.students.QueryByClass(ctx, classGrade)
	if err != nil {
		return fail(err, "querying class students")
	}
	reportsBuilt.WithLabelValues("class").Inc()
	if len(students) == 0 {
		return emptyClassReport(), nil
	}

	ids := make([]int64, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	records, err := svc.ledger.RecordsForStudentsInMonth(ctx, ids, ym)
	if err != nil {
		return fail(err, "fetching class records")
	}
	return buildClassReport(students, records, svc.opts.SlotPolicy), nil
}
