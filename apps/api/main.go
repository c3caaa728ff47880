package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
	"github.com/trezcool/mahudhurio/storage/tokenstore"
)

// TODO:
// - rate limit the login endpoint
// - APM/Tracing
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up the token store
	tokens, closeTokens, err := tokenstore.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up token store: %v", err), err)
	}
	defer closeTokens()

	slotPolicy, err := attendance.ParseSlotPolicy(conf.Attendance.UnrecordedSlots)
	if err != nil {
		logger.Fatal(fmt.Sprintf("config: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), tokens, mailSvc, validate)
	stSvc := student.NewService(sqlxrepos.NewStudentRepository(db), validate)
	attSvc := attendance.NewService(
		sqlxrepos.NewAttendanceLedger(db),
		stSvc,
		database.NewTransactor(db),
		validate,
		logger,
		attendance.Options{
			AtomicBatch: conf.Attendance.AtomicBatch,
			SlotPolicy:  slotPolicy,
		},
	)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			StudentSvc:    stSvc,
			AttendanceSvc: attSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
