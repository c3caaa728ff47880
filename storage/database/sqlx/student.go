package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
)

const studentColumns = "id, name, class_grade, created_at, updated_at"

type studentRepository struct {
	db core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DBExecutor) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := `INSERT INTO students (name, class_grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, st.Name, st.ClassGrade, st.CreatedAt, st.UpdatedAt).Scan(&st.ID); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int64) (student.Student, error) {
	var st student.Student
	q := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	if err := sqlx.GetContext(ctx, repo.db, &st, q, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return st, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	students := make([]student.Student, 0)
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return students, nil
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.ClassGrade != "" {
		where = append(where, "class_grade = ?")
		args = append(args, filter.ClassGrade)
	}
	if filter.IDs != nil {
		where = append(where, "id IN (?)")
		args = append(args, filter.IDs)
	}

	q := "SELECT " + studentColumns + " FROM students"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id ASC"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	if err = sqlx.SelectContext(ctx, repo.db, &students, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}
