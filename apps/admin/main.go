package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
	"github.com/trezcool/mahudhurio/storage/tokenstore"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	tokens, closeTokens, err := tokenstore.New(context.Background(), conf)
	errAndDie(err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// no email is sent from the CLI
	svcLogger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	svcLogger.Enable(false)
	mailSvc := emailsvc.NewConsoleService(conf, svcLogger)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), tokens, mailSvc, validate),
	}
	err = cli.run(os.Args)
	closeTokens()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
