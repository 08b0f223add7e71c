package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/edukanda/edukanda/assets"
	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
	emailsvc "github.com/edukanda/edukanda/services/email"
	logsvc "github.com/edukanda/edukanda/services/logger"
	"github.com/edukanda/edukanda/storage"
	"github.com/edukanda/edukanda/storage/database"
)

func main() {
	os.Exit(start(os.Args, os.Stdout))
}

func start(args []string, out io.Writer) int {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(out, "loading config: %v\n", err)
		return 1
	}
	logger := logsvc.NewRollbarLogger(log.New(out, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	repos, err := storage.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening storage: %v", err), err)
		return 1
	}
	defer repos.Close()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, conf, logger)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewService(conf, logger)
	}

	cli := commandLine{
		users:   user.NewService(repos.Users, nil, conf, validate, translator),
		ranking: ranking.NewService(repos.Users, repos.Users, ranking.ParseMode(conf.Ranking.Mode)),
		mailSvc: mailSvc,
		migrate: func(command string, version int64) error {
			if conf.Database.Engine != storage.EnginePostgres {
				return fmt.Errorf("%q: the database engine has no migrations", conf.Database.Engine)
			}
			if err := database.CreateIfNotExist(conf); err != nil {
				return err
			}
			db, err := database.Open(conf)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(db.DB, command, version)
		},
	}
	if err := cli.run(args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		return 1
	}
	return 0
}
