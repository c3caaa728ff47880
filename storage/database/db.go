package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // "postgres" driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/fs"
)

const migrationsDir = "migrations"

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// driverName maps the configured engine to a registered database/sql driver.
func driverName(engine string) (string, error) {
	switch engine {
	case "", "postgres":
		return "postgres", nil
	case "pgx":
		return "pgx", nil
	default:
		return "", errors.Errorf("unsupported database engine %q", engine)
	}
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	driver, err := driverName(conf.Database.Engine)
	if err != nil {
		return nil, err
	}
	return sqlx.Open(driver, dsn(dbName, admin, conf))
}

// Open opens the app database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenURL opens the database at dsn with the given engine, eg. for tests.
func OpenURL(engine, dsn string) (*sqlx.DB, error) {
	driver, err := driverName(engine)
	if err != nil {
		return nil, err
	}
	return sqlx.Open(driver, dsn)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query string, arg string) (bool, error) {
	var found bool
	if err := db.Get(&found, query, arg); err != nil {
		return false, err
	}
	return found, nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
			" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app role (as admin) and the app database (as app user) if missing.
func CreateIfNotExist(conf *core.Config) error {
	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// InitMigrations points goose to the embedded migrations.
func InitMigrations() error {
	goose.SetBaseFS(appfs.FS)
	return goose.SetDialect("postgres")
}

// RunMigration runs a goose command (up, down, status, ...) against the embedded migrations.
func RunMigration(command string, db *sql.DB, args ...string) error {
	if err := InitMigrations(); err != nil {
		return err
	}
	return goose.Run(command, db, migrationsDir, args...)
}

func Migrate(db *sql.DB) error {
	if err := RunMigration("up", db); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Transactor runs units of work in database transactions.
type Transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		return rollback(tx, err)
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// rollback undoes tx after fn failed with err.
// When the rollback itself fails the state of the store is unknown: a shutdown error is returned instead of err.
// sql.ErrTxDone is not a failure, database/sql already rolled back the transactions of cancelled contexts.
func rollback(tx interface{ Rollback() error }, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		return core.NewShutdownError(fmt.Sprintf("rolling back transaction after %q: %v", err, rbErr))
	}
	return err
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a UNIQUE constraint, with either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
