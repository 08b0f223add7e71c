package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, email, role, pwd string) error {
	if !user.IsValidRole(role) {
		return errors.Errorf("%q: invalid role", role)
	}
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.users.Create(ctx, user.User{Name: core.CleanString(name), Email: email, Role: role}, pwd)
		return err
	}

	if usr, err = cli.users.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	if usr.Role != role {
		_, err = cli.users.SetRole(ctx, usr.ID, role)
	}
	return err
}
