package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/mahudhurio/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	st.ID = repo.db.pk
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int64) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[id]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[int64]bool
	if filter.IDs != nil {
		ids = make(map[int64]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	students := make([]student.Student, 0)
	for _, st := range repo.db.table {
		if filter.ClassGrade != "" && st.ClassGrade != filter.ClassGrade {
			continue
		}
		if ids != nil && !ids[st.ID] {
			continue
		}
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}
