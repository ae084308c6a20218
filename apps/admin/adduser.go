package main

import (
	"context"
	"fmt"

	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

// addUser creates a user, or updates the one already holding email.
func (cli *commandLine) addUser(name, email, rawRole string) error {
	role, ok := user.ParseRole(rawRole)
	if !ok {
		return user.ErrInvalidRole
	}
	usr, err := cli.usrSvc.Create(context.Background(), name, email, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "user %s (%s) saved with id %s\n", usr.Email, usr.Role, usr.ID)
	return nil
}
