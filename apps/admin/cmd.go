package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/services/report"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	users   *user.Service
	ranking *ranking.Service
	mailSvc core.EmailService
	// migrate runs a migration command against the configured database
	migrate func(command string, version int64) error
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role student|teacher|admin] - create a user or update its password and role")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  migrate COMMAND [VERSION] - run a database migration (up, up-by-one, up-to, down, down-to, redo)")
	fmt.Println("  refreshranks - recompute the stored rank of every student")
	fmt.Println("  export [-out FILE] [-mail ADDRESS] - write the ranking report to an .xlsx file and optionally mail it")
}

func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "The user's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportOut := exportCmd.String("out", "", "The report file. Defaults to ranking-<date>.xlsx.")
	exportMail := exportCmd.String("mail", "", "Mail the report to this address as well.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(ctx, *addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		var version int64
		if len(args) > 3 {
			v, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[3])
			}
			version = v
		}
		return cli.migrate(args[2], version)

	case "refreshranks":
		return cli.refreshRanks(ctx)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		path := *exportOut
		if path == "" {
			path = report.RankingFilename(time.Now())
		}
		if err := cli.exportRanking(ctx, path); err != nil {
			return err
		}
		if *exportMail != "" {
			return cli.mailRanking(path, *exportMail)
		}
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
