package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
)

// NewConfig returns a TEST configuration that does not depend on the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Mahudhurio",
		SecretKey:        "test-secret-key",
		DefaultFromEmail: "Mahudhurio <noreply@test.cd>",
		Server: core.ServerConfig{
			Host:                   "localhost",
			JWTExpirationDelta:     time.Hour,
			ShutdownTimeout:        time.Second,
			DisableRequestsLogging: true,
		},
		Attendance: core.AttendanceConfig{UnrecordedSlots: "compat"},
	}
}

// NewLogger returns a silent logger that never reports to rollbar.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens the database at TEST_DATABASE_URL, migrates it and empties it.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(os.Getenv("TEST_DATABASE_ENGINE"), dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE attendances, students, users RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = "unused-password"
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, name, classGrade string) student.Student {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	st, err := repo.CreateStudent(context.Background(), student.Student{
		Name:       name,
		ClassGrade: classGrade,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func AppendRecord(
	t *testing.T,
	ledger attendance.Ledger,
	studentID int64,
	date attendance.Date,
	status attendance.Status,
	teacherID int64,
) attendance.Record {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec, err := ledger.Append(context.Background(), attendance.Record{
		StudentID: studentID,
		Date:      date,
		Status:    status,
		MarkedBy:  teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("AppendRecord() failed: %v", err)
	}
	return rec
}

// FixedNow returns a clock stuck at t, to stub attendance.NowFunc.
func FixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
