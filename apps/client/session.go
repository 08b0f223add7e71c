package main

import (
	"context"
	"fmt"

	"github.com/edukanda/edukanda/core/access"
	"github.com/edukanda/edukanda/core/session"
	"github.com/edukanda/edukanda/core/user"
)

func (cli *commandLine) welcome(resp session.AuthResponse) {
	fmt.Fprintf(cli.out, "Welcome, %s! Opening %s\n", resp.User.Name, resp.Home)
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	resp, err := cli.manager.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	cli.welcome(resp)
	return nil
}

func (cli *commandLine) register(ctx context.Context, nu user.NewUser) error {
	resp, err := cli.manager.Register(ctx, nu)
	if err != nil {
		return err
	}
	cli.welcome(resp)
	return nil
}

func (cli *commandLine) whoami() error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s> (%s, %s mode)\n", usr.Name, usr.Email, usr.Role, cli.backend.mode)
	if usr.IsStudent() {
		fmt.Fprintf(cli.out, "points: %d  rank: %d  courses completed: %d\n",
			usr.Points, usr.Rank, usr.CoursesCompleted)
	}
	return nil
}

// open runs the route gate for path against the current session.
func (cli *commandLine) open(path string) error {
	d := access.Gate(cli.store(), path)
	switch d.Action {
	case access.Render:
		fmt.Fprintf(cli.out, "%s: ok\n", path)
	default:
		fmt.Fprintf(cli.out, "%s: redirected to %s\n", path, d.Path)
	}
	return nil
}
