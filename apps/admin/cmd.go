package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/dusabe/tathmini/core/identity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	idtSvc *identity.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addidentity -address ADDRESS -name NAME [-email EMAIL] [-role ROLE] - register an identity")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up|down|status|version...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addIdentityCmd := flag.NewFlagSet("addidentity", flag.ExitOnError)
	addIdentityAddr := addIdentityCmd.String("address", "", "The identity's unique address. The password will be prompted next.")
	addIdentityName := addIdentityCmd.String("name", "", "The identity's display name.")
	addIdentityEmail := addIdentityCmd.String("email", "", "The identity's email address (optional).")
	addIdentityRole := addIdentityCmd.String("role", identity.RoleAdmin.String(), "One of: student, teacher, admin.")

	switch args[1] {
	case "addidentity":
		if err := addIdentityCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addIdentityAddr == "" || *addIdentityName == "" {
			addIdentityCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addIdentityCmd.Usage()
			return errHelp
		}
		return cli.addIdentity(*addIdentityAddr, *addIdentityName, *addIdentityEmail, *addIdentityRole, string(pwd))
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
