package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/edukanda/edukanda/apps/api/echo"
	"github.com/edukanda/edukanda/assets"
	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/certificate"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
	emailsvc "github.com/edukanda/edukanda/services/email"
	logsvc "github.com/edukanda/edukanda/services/logger"
	"github.com/edukanda/edukanda/services/scheduler"
	"github.com/edukanda/edukanda/storage"
	"github.com/edukanda/edukanda/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if conf.Database.Engine == storage.EnginePostgres {
		if err = setUpDB(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
	}
	repos, err := storage.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening storage: %v", err), err)
	}
	defer func() {
		if err = repos.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing storage: %v", err), err)
		}
	}()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewService(conf, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	core.ParseEmailTemplates(assets.FS, conf, logger)

	usrSvc := user.NewService(repos.Users, mailSvc, conf, validate, translator)
	courseSvc := course.NewService(repos.Courses, logger, validate, translator)
	courseSvc.SetRewarder(usrSvc)
	rankingSvc := ranking.NewService(repos.Users, repos.Users, ranking.ParseMode(conf.Ranking.Mode))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	sched, err := scheduler.New(rankingSvc, conf.Ranking.RefreshInterval, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("creating scheduler: %v", err), err)
	}
	if err = sched.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
	}
	defer sched.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		SignalShutdown: func() {
			shutdown <- syscall.SIGTERM
		},
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		DashboardSvc:   course.NewDashboard(courseSvc, repos.Courses, usrSvc),
		CommentSvc:     comment.NewService(repos.Comments, courseSvc, validate, translator),
		CertificateSvc: certificate.NewService(courseSvc),
		RankingSvc:     rankingSvc,
		ModerationSvc:  moderation.NewService(repos.Activities, usrSvc, courseSvc, mailSvc, logger),
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) error {
	if err := database.CreateIfNotExist(conf); err != nil {
		return err
	}
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(db.DB, "up", 0)
}
