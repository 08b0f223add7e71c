package main

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/services/report"
)

func (cli *commandLine) refreshRanks(ctx context.Context) error {
	return errors.Wrap(cli.ranking.Refresh(ctx), "refreshing ranks")
}

func (cli *commandLine) exportRanking(ctx context.Context, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()

	if err = report.WriteRanking(ctx, f, cli.ranking); err != nil {
		return err
	}
	fmt.Printf("ranking written to %s\n", path)
	return nil
}

// mailRanking sends the report file at path to the recipient address to.
func (cli *commandLine) mailRanking(path, to string) error {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return errors.Wrapf(err, "invalid recipient %q", to)
	}
	name := addr.Name
	if name == "" {
		name = addr.Address
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Ranking report",
		TemplateName: "ranking_report",
		TemplateData: map[string]string{"Name": name, "Filename": filepath.Base(path)},
	}
	if err := msg.AttachFile(path, report.ContentType); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	cli.mailSvc.SendMessages(msg)
	if w, ok := cli.mailSvc.(interface{ Wait() }); ok {
		w.Wait()
	}
	fmt.Printf("ranking mailed to %s\n", addr.Address)
	return nil
}
