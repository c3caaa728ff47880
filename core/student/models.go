package student

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Student struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	ClassGrade string    `json:"class_grade" db:"class_grade"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name       string `json:"name" validate:"required,notblank,max=255"`
	ClassGrade string `json:"class_grade" validate:"required,notblank,max=50"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassGrade = core.CleanString(ns.ClassGrade)
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	ClassGrade string  // exact, case-sensitive match
	IDs        []int64 // any of
}
