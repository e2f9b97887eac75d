package main

import (
	"context"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/identity"
)

// addIdentity registers a new identity from the operator console, bypassing
// the public API but not the ledger's registration rules.
func (cli *commandLine) addIdentity(address, name, email, role, pwd string) error {
	data := identity.NewIdentity{
		Address:         core.CleanString(address, true /* lower */),
		Name:            core.CleanString(name),
		Email:           core.CleanString(email, true /* lower */),
		Role:            identity.Role(core.CleanString(role, true /* lower */)),
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := data.Validate(); err != nil {
		return err
	}

	_, err := cli.idtSvc.Register(context.Background(), data)
	return err
}
