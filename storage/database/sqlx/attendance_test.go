package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
	testutil "github.com/trezcool/mahudhurio/tests"
)

func TestAttendanceLedger(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	ledger := sqlxrepos.NewAttendanceLedger(db)
	stRepo := sqlxrepos.NewStudentRepository(db)

	teacher := testutil.CreateUser(t, sqlxrepos.NewUserRepository(db), "Teacher", "teacher@test.cd", "", user.RoleTeacher)
	s1 := testutil.CreateStudent(t, stRepo, "Amina", "Grade 5")
	s2 := testutil.CreateStudent(t, stRepo, "Baraka", "Grade 5")

	day := func(m time.Month, d int) attendance.Date { return attendance.NewDate(2025, m, d) }
	r1 := testutil.AppendRecord(t, ledger, s1.ID, day(time.March, 3), attendance.StatusPresent, teacher.ID)
	r2 := testutil.AppendRecord(t, ledger, s2.ID, day(time.March, 3), attendance.StatusAbsent, teacher.ID)
	r3 := testutil.AppendRecord(t, ledger, s1.ID, day(time.March, 31), attendance.StatusAbsent, teacher.ID)
	testutil.AppendRecord(t, ledger, s1.ID, day(time.April, 1), attendance.StatusPresent, teacher.ID)
	testutil.AppendRecord(t, ledger, s2.ID, day(time.February, 28), attendance.StatusPresent, teacher.ID)

	t.Run("RecordExists", func(t *testing.T) {
		found, err := ledger.RecordExists(ctx, s1.ID, day(time.March, 3))
		require.NoError(t, err)
		assert.True(t, found)

		found, err = ledger.RecordExists(ctx, s2.ID, day(time.March, 31))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Append duplicate", func(t *testing.T) {
		_, err := ledger.Append(ctx, attendance.Record{
			StudentID: s1.ID, Date: day(time.March, 3), Status: attendance.StatusAbsent, MarkedBy: teacher.ID,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		assert.Equal(t, attendance.ErrDuplicateRecord, errors.Cause(err))
	})

	t.Run("unique constraint", func(t *testing.T) {
		// an insert that skipped the existence check
		_, err := db.ExecContext(ctx, `INSERT INTO attendances (student_id, date, status, marked_by_teacher_id, created_at, updated_at)
			VALUES ($1, $2, 'absent', $3, now(), now())`, s1.ID, day(time.March, 3), teacher.ID)
		require.Error(t, err)
		assert.True(t, database.IsUniqueViolation(err))
	})

	t.Run("Append racing a concurrent insert", func(t *testing.T) {
		date := day(time.April, 2)
		newRecord := func(status attendance.Status) attendance.Record {
			now := time.Now().UTC()
			return attendance.Record{
				StudentID: s2.ID, Date: date, Status: status, MarkedBy: teacher.ID,
				CreatedAt: now, UpdatedAt: now,
			}
		}

		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		_, err = ledger.Append(ctx, newRecord(attendance.StatusPresent), tx)
		require.NoError(t, err)

		// the existence check cannot see the uncommitted row: the insert waits for tx to end
		done := make(chan error, 1)
		go func() {
			_, err := ledger.Append(ctx, newRecord(attendance.StatusAbsent))
			done <- err
		}()
		require.Eventually(t, func() bool {
			var waiting int
			err := db.GetContext(ctx, &waiting, `SELECT count(*) FROM pg_stat_activity
				WHERE datname = current_database() AND wait_event_type = 'Lock'`)
			return err == nil && waiting > 0
		}, 5*time.Second, 20*time.Millisecond)
		require.NoError(t, tx.Commit())

		select {
		case err = <-done:
			assert.Equal(t, attendance.ErrDuplicateRecord, errors.Cause(err))
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent Append did not return")
		}
	})

	t.Run("RecordsForStudent", func(t *testing.T) {
		recs, err := ledger.RecordsForStudent(ctx, s1.ID)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, r1.ID, recs[0].ID)
		assert.Equal(t, day(time.March, 3), recs[0].Date)
		assert.Equal(t, attendance.StatusPresent, recs[0].Status)
		assert.Equal(t, teacher.ID, recs[0].MarkedBy)
		assert.Equal(t, r3.ID, recs[1].ID)

		recs, err = ledger.RecordsForStudent(ctx, s2.ID+100)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("RecordsForStudentsInMonth", func(t *testing.T) {
		recs, err := ledger.RecordsForStudentsInMonth(ctx, []int64{s1.ID, s2.ID}, attendance.YearMonth{Year: 2025, Month: time.March})
		require.NoError(t, err)
		ids := make([]int64, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
		assert.Equal(t, []int64{r1.ID, r2.ID, r3.ID}, ids)

		recs, err = ledger.RecordsForStudentsInMonth(ctx, nil, attendance.YearMonth{Year: 2025, Month: time.March})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestTransactor_InTx(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	ledger := sqlxrepos.NewAttendanceLedger(db)
	teacher := testutil.CreateUser(t, sqlxrepos.NewUserRepository(db), "Teacher", "teacher@test.cd", "", user.RoleTeacher)
	st := testutil.CreateStudent(t, sqlxrepos.NewStudentRepository(db), "Amina", "Grade 5")
	date := attendance.NewDate(2025, time.March, 3)

	mark := func(exec core.DBExecutor) error {
		now := time.Now().UTC()
		_, err := ledger.Append(ctx, attendance.Record{
			StudentID: st.ID, Date: date, Status: attendance.StatusPresent, MarkedBy: teacher.ID,
			CreatedAt: now, UpdatedAt: now,
		}, exec)
		return err
	}
	tx := database.NewTransactor(db)

	errBoom := errors.New("boom")
	err := tx.InTx(ctx, func(exec core.DBExecutor) error {
		if err := mark(exec); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, errors.Cause(err))

	found, err := ledger.RecordExists(ctx, st.ID, date)
	require.NoError(t, err)
	assert.False(t, found, "rolled back")

	require.NoError(t, tx.InTx(ctx, mark))
	found, err = ledger.RecordExists(ctx, st.ID, date)
	require.NoError(t, err)
	assert.True(t, found, "committed")
}
