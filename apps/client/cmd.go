package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/session"
	"github.com/edukanda/edukanda/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errLoggedOut  = errors.New("not logged in: run `edukanda login` first")
	errNoPassword = errors.New("a password is required")
)

type commandLine struct {
	out     io.Writer
	backend *backend
	manager *session.Manager
}

func (cli *commandLine) store() *session.Store {
	return cli.manager.Store()
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL - sign in; the password is prompted next")
	fmt.Fprintln(cli.out, "  register -name NAME -email EMAIL [-role student|teacher] - create an account")
	fmt.Fprintln(cli.out, "  logout - forget the current session")
	fmt.Fprintln(cli.out, "  whoami - show the current user")
	fmt.Fprintln(cli.out, "  courses [-category C] [-search S] [-favorites] [-progress] - list courses")
	fmt.Fprintln(cli.out, "  course ID - show a course and its lessons")
	fmt.Fprintln(cli.out, "  favorite ID - add or remove a course from the favorites")
	fmt.Fprintln(cli.out, "  complete COURSE_ID LESSON_ID - mark a lesson as completed")
	fmt.Fprintln(cli.out, "  comments COURSE_ID [LESSON_ID] - list comments")
	fmt.Fprintln(cli.out, "  comment -course ID [-lesson ID] TEXT - post a comment")
	fmt.Fprintln(cli.out, "  progress - list the courses in progress")
	fmt.Fprintln(cli.out, "  ranking - show the leaderboard")
	fmt.Fprintln(cli.out, "  certificates - list the earned certificates")
	fmt.Fprintln(cli.out, "  strength PASSWORD - rate a password")
	fmt.Fprintln(cli.out, "  open PATH - check whether the current user may open a page")
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	return string(pwd), nil
}

// currentUser returns the user of the restored session.
func (cli *commandLine) currentUser() (user.User, error) {
	usr, ok := cli.store().Current()
	if !ok {
		return user.User{}, errLoggedOut
	}
	return usr, nil
}

func positiveInt(s, name string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("%s must be a positive number (got '%s')", name, s)
	}
	return n, nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cmd, rest := args[1], args[2:]

	switch cmd {
	case "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		email := fs.String("email", "", "The account email.")
		if err := fs.Parse(rest); err != nil || *email == "" {
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		return cli.login(ctx, *email, pwd)

	case "register":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		name := fs.String("name", "", "The full name.")
		email := fs.String("email", "", "The account email.")
		role := fs.String("role", user.RoleStudent, "student or teacher.")
		if err := fs.Parse(rest); err != nil || *name == "" || *email == "" {
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		return cli.register(ctx, user.NewUser{Name: *name, Email: *email, Password: pwd, Role: *role})

	case "logout":
		if err := cli.manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Logged out.")
		return nil

	case "whoami":
		return cli.whoami()

	case "courses":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		var filter course.QueryFilter
		fs.StringVar(&filter.Category, "category", "", "Only this category.")
		fs.StringVar(&filter.Search, "search", "", "Match title, description or instructor.")
		fs.BoolVar(&filter.Favorite, "favorites", false, "Only favorite courses.")
		fs.BoolVar(&filter.InProgress, "progress", false, "Only courses in progress.")
		if err := fs.Parse(rest); err != nil {
			return errHelp
		}
		return cli.listCourses(ctx, filter)

	case "course", "favorite":
		if len(rest) != 1 {
			cli.printUsage()
			return errHelp
		}
		id, err := positiveInt(rest[0], "course ID")
		if err != nil {
			return err
		}
		if cmd == "favorite" {
			return cli.toggleFavorite(ctx, id)
		}
		return cli.showCourse(ctx, id)

	case "complete":
		if len(rest) != 2 {
			cli.printUsage()
			return errHelp
		}
		courseID, err := positiveInt(rest[0], "course ID")
		if err != nil {
			return err
		}
		lessonID, err := positiveInt(rest[1], "lesson ID")
		if err != nil {
			return err
		}
		return cli.completeLesson(ctx, courseID, lessonID)

	case "comments":
		if len(rest) < 1 || len(rest) > 2 {
			cli.printUsage()
			return errHelp
		}
		courseID, err := positiveInt(rest[0], "course ID")
		if err != nil {
			return err
		}
		var lessonID *int
		if len(rest) == 2 {
			id, err := positiveInt(rest[1], "lesson ID")
			if err != nil {
				return err
			}
			lessonID = &id
		}
		return cli.listComments(ctx, courseID, lessonID)

	case "comment":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		courseID := fs.Int("course", 0, "The course ID.")
		lesson := fs.Int("lesson", 0, "The lesson ID. The comment is on the course when omitted.")
		if err := fs.Parse(rest); err != nil || *courseID <= 0 || fs.NArg() == 0 {
			return errHelp
		}
		var lessonID *int
		if *lesson > 0 {
			lessonID = lesson
		}
		return cli.postComment(ctx, *courseID, lessonID, strings.Join(fs.Args(), " "))

	case "progress":
		return cli.listCourses(ctx, course.QueryFilter{InProgress: true})

	case "ranking":
		return cli.showRanking(ctx)

	case "certificates":
		return cli.listCertificates(ctx)

	case "strength":
		if len(rest) != 1 {
			cli.printUsage()
			return errHelp
		}
		score := user.PasswordStrength(rest[0])
		fmt.Fprintf(cli.out, "%d/4 %s\n", score, user.PasswordStrengthLabel(score))
		return nil

	case "open":
		if len(rest) != 1 {
			cli.printUsage()
			return errHelp
		}
		return cli.open(rest[0])

	default:
		cli.printUsage()
		return errHelp
	}
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}
