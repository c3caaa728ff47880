package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// unique email index
	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	repo.db.pk++
	usr.ID = repo.db.pk
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// only save set fields
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	origUsr.Name = usr.Name
	origUsr.Email = usr.Email
	origUsr.LastLogin = usr.LastLogin
	origUsr.UpdatedAt = usr.UpdatedAt
	return *origUsr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter.Role == "" || usr.Role == filter.Role {
			users = append(users, usr)
		}
	}
	return users, nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
