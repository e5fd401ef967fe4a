package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	var found bool
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	for _, lookup := range []string{uname, email} {
		if usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, lookup); err == nil {
			found = true
			break
		}
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
	}

	now := time.Now().UTC()
	usr.Username = uname
	usr.Email = email
	usr.UpdatedAt = now
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	active := true
	if found {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
		return err
	}
	usr.IsActive = &active
	usr.CreatedAt = now
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}
