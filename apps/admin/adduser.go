package main

import (
	"context"

	"github.com/trezcool/mahudhurio/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	role := user.RoleTeacher
	if isAdmin {
		role = user.RoleAdmin
	}
	_, err := cli.usrSvc.AddUser(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     role,
	})
	return err
}

var seedUsers = []struct {
	name, email, role string
}{
	{"Admin", "admin@example.com", user.RoleAdmin},
	{"Teacher", "teacher@example.com", user.RoleTeacher},
}

const seedPassword = "password"

// seed creates the default accounts, running it again resets their passwords.
func (cli *commandLine) seed() error {
	for _, su := range seedUsers {
		if err := cli.addUser(su.name, su.email, seedPassword, su.role == user.RoleAdmin); err != nil {
			return err
		}
	}
	return nil
}
