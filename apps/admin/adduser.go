package main

import (
	"context"
	"fmt"

	"github.com/prochartist/backend/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(email, pwd string, isAdmin bool) error {
	roles := user.LearnerRoles
	if isAdmin {
		roles = user.AdminRoles
	}
	usr, err := cli.usrSvc.SaveAdmin(context.Background(), email, pwd, roles...)
	if err != nil {
		return err
	}
	fmt.Printf("user %s saved with roles %v\n", usr.Email, usr.Roles)
	return nil
}
