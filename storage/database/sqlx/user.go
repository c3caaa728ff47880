package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database"
)

const userColumns = "id, name, email, role, password_hash, last_login, created_at, updated_at"

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	excluded := make([]int64, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	var found bool
	q := "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND NOT (id = ANY($2)))"
	if err := sqlx.GetContext(ctx, repo.db, &found, q, email, pq.Array(excluded)); err != nil {
		return errors.Wrap(err, "checking email")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (name, email, role, password_hash, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		usr.Name, usr.Email, usr.Role, usr.PasswordHash, usr.LastLogin, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users
		SET name = $1, email = $2, role = $3, password_hash = $4, last_login = $5, updated_at = $6
		WHERE id = $7`
	res, err := repo.db.ExecContext(
		ctx, q,
		usr.Name, usr.Email, usr.Role, usr.PasswordHash, usr.LastLogin, usr.UpdatedAt, usr.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var usr user.User
	q := "SELECT " + userColumns + " FROM users WHERE " + where
	if err := sqlx.GetContext(ctx, repo.db, &usr, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = $1", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []interface{}
	if filter.Role != "" {
		q += " WHERE role = $1"
		args = append(args, filter.Role)
	}
	q += " ORDER BY " + core.DBOrdering{Field: "id", Ascending: true}.String()

	users := make([]user.User, 0)
	if err := sqlx.SelectContext(ctx, repo.db, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}
