package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id int64) (Student, error)
		// QueryStudents returns the students matching filter, ordered by ID.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		nowFunc  func() time.Time
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		nowFunc:  time.Now,
	}
}

// Register validates and saves a new student.
func (svc *Service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	now := svc.nowFunc().UTC()
	st, err := svc.repo.CreateStudent(ctx, Student{
		Name:       ns.Name,
		ClassGrade: ns.ClassGrade,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, QueryFilter{})
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// QueryByClass returns the students whose class label is exactly classGrade.
// An empty label matches no one.
func (svc *Service) QueryByClass(ctx context.Context, classGrade string) ([]Student, error) {
	if classGrade == "" {
		return []Student{}, nil
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{ClassGrade: classGrade})
}

// ExistingIDs returns the subset of ids that belong to registered students.
func (svc *Service) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	students, err := svc.repo.QueryStudents(ctx, QueryFilter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying students by ID")
	}
	for _, st := range students {
		found[st.ID] = true
	}
	return found, nil
}
