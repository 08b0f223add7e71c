// Package echoapi serves the EduKanda REST API with Echo.
package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/certificate"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		// SignalShutdown is called when a handler fails with a shutdown error.
		SignalShutdown func()

		UserSvc        *user.Service
		CourseSvc      *course.Service
		DashboardSvc   *course.Dashboard
		CommentSvc     *comment.Service
		CertificateSvc *certificate.Service
		RankingSvc     *ranking.Service
		ModerationSvc  *moderation.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		hub  *activityHub
	}

	validation struct {
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

// NewServer returns the API server. It publishes the moderation activities to the admin websocket feed.
func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		hub:  newActivityHub(opts.Logger),
	}
	s.setup()
	go s.hub.run()
	opts.ModerationSvc.SetNotifier(s.hub)
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf, s.opts.UserSvc)
	jwt := auth.middleware()
	wsJWT := auth.middleware("query:token")

	registerUserAPI(v1, jwt, &userApi{
		validation: &validation{validate: s.opts.Validate, translator: s.opts.Translator},
		auth:       auth,
		users:      s.opts.UserSvc,
		courses:    s.opts.CourseSvc,
		certs:      s.opts.CertificateSvc,
		moderation: s.opts.ModerationSvc,
		logger:     s.opts.Logger,
	})
	registerCourseAPI(v1, jwt, &courseApi{
		auth:       auth,
		courses:    s.opts.CourseSvc,
		dashboard:  s.opts.DashboardSvc,
		moderation: s.opts.ModerationSvc,
	})
	registerTeacherAPI(v1, jwt, &teacherApi{auth: auth, courses: s.opts.CourseSvc, dashboard: s.opts.DashboardSvc})
	registerCommentAPI(v1, jwt, &commentApi{auth: auth, comments: s.opts.CommentSvc})
	registerRankingAPI(v1, jwt, &rankingApi{auth: auth, ranking: s.opts.RankingSvc})
	registerAdminAPI(v1, jwt, wsJWT, &adminApi{
		auth:       auth,
		moderation: s.opts.ModerationSvc,
		ranking:    s.opts.RankingSvc,
		hub:        s.hub,
	})
}

// Start serves the API until Stop is called. It returns http.ErrServerClosed after a graceful shutdown.
func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	s.hub.stop()
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}

func (v *validation) validateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return core.NewFieldsValidationError(err, v.translator)
	}
	return nil
}
