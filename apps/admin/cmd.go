package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/storage/database"
)

var (
	readPasswordFunc  = term.ReadPassword      // mockable
	runMigrationsFunc = database.RunMigrations // mockable

	errHelp        = errors.New("help provided")
	errNotPostgres = errors.New("migrations only apply to the postgres engine")
)

type commandLine struct {
	db         *sql.DB // nil unless the postgres engine is configured
	usrSvc     user.ServiceInterface
	catalogSvc catalog.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL [-admin]  - create or update a user; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL     - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS...]      - run a goose migration command (up, down, status, ...)")
	fmt.Println("  seedphases                     - create the missing default learning phases")
}

func promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seedphases":
		return cli.seedPhases()

	default:
		cli.printUsage()
		return errHelp
	}
}
