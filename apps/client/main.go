package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/session"
	logsvc "github.com/edukanda/edukanda/services/logger"
	"github.com/edukanda/edukanda/storage/kv/sqlitekv"
)

func main() {
	os.Exit(start(os.Args, os.Stdout, os.Stderr))
}

func sessionPath(conf *core.Config) string {
	if conf.Client.SessionPath != "" {
		return conf.Client.SessionPath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "edukanda", "session.db")
}

func start(args []string, out, errOut io.Writer) int {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(errOut, "loading config: %v\n", err)
		return 1
	}
	logger := logsvc.NewRollbarLogger(log.New(errOut, "CLIENT : ", log.LstdFlags), conf)
	logger.Enable(!conf.Debug)

	kv, err := sqlitekv.Open(sessionPath(conf))
	if err != nil {
		logger.Error(fmt.Sprintf("opening session: %v", err), err)
		return 1
	}
	defer kv.Close()

	ctx := context.Background()
	store := session.NewStore(kv)
	if _, err := store.Restore(ctx); err != nil {
		logger.Warn(fmt.Sprintf("restoring session: %v", err))
	}

	be, err := newBackend(conf, logger, store)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up %v", err), err)
		return 1
	}
	defer be.close()

	cli := commandLine{out: out, backend: be, manager: session.NewManager(store, be.auth)}
	return exitCode(errOut, cli.run(ctx, args))
}

// exitCode prints err the way the web client shows it and returns the process exit code.
func exitCode(w io.Writer, err error) int {
	switch err {
	case nil:
		return 0
	case errHelp:
		return 2
	}
	norm := core.Normalize(err)
	if norm.Status != 0 {
		fmt.Fprintf(w, "%s (%d): %s\n", norm.Title, norm.Status, norm.Message)
	} else {
		fmt.Fprintf(w, "%s: %s\n", norm.Title, norm.Message)
	}
	return 1
}
