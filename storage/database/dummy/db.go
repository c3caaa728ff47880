package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

type (
	DB struct {
		txMu       sync.Mutex
		user       *userTable
		student    *studentTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*user.User
	}

	studentTable struct {
		sync.RWMutex
		pk    int64
		table map[int64]*student.Student
	}

	attendanceTable struct {
		sync.RWMutex
		pk   int64
		rows []attendance.Record // insertion order
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[int64]*user.User)},
		student:    &studentTable{table: make(map[int64]*student.Student)},
		attendance: &attendanceTable{},
	}
}

// InTx runs fn and restores the attendance table if it fails.
// Only attendance writes take part in transactions.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.attendance.RLock()
	pk := db.attendance.pk
	rows := make([]attendance.Record, len(db.attendance.rows))
	copy(rows, db.attendance.rows)
	db.attendance.RUnlock()

	if err := fn(nil); err != nil {
		db.attendance.Lock()
		db.attendance.pk = pk
		db.attendance.rows = rows
		db.attendance.Unlock()
		return err
	}
	return nil
}
