package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mahudhurio/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleAdmin, RoleTeacher}

type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
}

func (usr *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	usr.PasswordHash = hash
	return nil
}

func (usr User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(pwd))
}

func (usr User) IsAdmin() bool   { return usr.Role == RoleAdmin }
func (usr User) IsTeacher() bool { return usr.Role == RoleTeacher }

func (usr User) Principal() Principal {
	return Principal{ID: usr.ID, Role: usr.Role}
}

// Principal is the authenticated actor of a request.
// It is carried by the auth token and passed explicitly to the services that need it.
type Principal struct {
	ID   int64
	Role string
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }

// HasAnyRole reports whether the principal has one of roles.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"-" validate:"required,role"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

type QueryFilter struct {
	Role string
}
