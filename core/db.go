package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx,
	// repositories run their queries on it so that they can join a transaction.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single unit of work:
	// everything written through `exec` is committed when fn returns nil and rolled back otherwise.
	Transactor interface {
		InTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// GetExec returns the executor passed down by a service (eg. a transaction) or the default one.
func GetExec(def DBExecutor, svcExec []DBExecutor) DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return def
}
