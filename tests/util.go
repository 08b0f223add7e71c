// Package testutil holds the helpers shared by the tests of every package.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	inmemdb "github.com/edukanda/edukanda/storage/database/inmem"
)

// Fixture accounts
const (
	StudentID     = 1 // Renato
	StudentEmail  = "renato@edukanda.ao"
	Student2ID    = 2 // Ana Silva
	TeacherID     = 4 // Prof. João Silva, teaches courses 1 and 6
	Teacher2ID    = 3 // Prof. Carlos Mendes, teaches courses 3 and 7
	AdminID       = 5
	AdminEmail    = "admin@edukanda.ao"
	SuspendedID   = 12
	FixturePwd    = "123456"
	AdminPwd      = "admin123"
	PendingCourse = 7
	DraftCourse   = 8
)

func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		WorkDir:                   core.Getwd(),
		AppName:                   "EduKanda",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:5173",
		DefaultFromEmail:          "EduKanda <noreply@edukanda.ao>",
		PasswordResetTimeoutDelta: 24 * time.Hour,
		PointsPerLesson:           10,
		PointsPerCourse:           100,
		Server: core.ServerConfig{
			Host:                      "localhost",
			DisableRequestLogs:        true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "inmem"},
		Ranking:  core.RankingConfig{Mode: string(ranking.ModeSequential), RefreshInterval: time.Minute},
	}
}

// NewLogger returns a Logger writing nowhere.
func NewLogger() *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), NewConfig())
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

// NewDB returns an inmem DB seeded with the fixture dataset.
func NewDB(t *testing.T) *inmemdb.DB {
	db := inmemdb.Open(0)
	if err := db.Seed(assets.FS, assets.FixturesDir); err != nil {
		t.Fatalf("NewDB() failed: %v", err)
	}
	return db
}

// Services wires every domain service over a seeded inmem DB.
type Services struct {
	Conf   *core.Config
	Logger core.Logger
	Mail   *emailsvc.ConsoleService
	DB     *inmemdb.DB

	UserRepo     user.Repository
	Users        *user.Service
	Courses      *course.Service
	Dashboard    *course.Dashboard
	Comments     *comment.Service
	Certificates *certificate.Service
	Ranking      *ranking.Service
	Moderation   *moderation.Service
}

func NewServices(t *testing.T) *Services {
	conf := NewConfig()
	logger := NewLogger()
	core.ParseEmailTemplates(assets.FS, conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	validate, translator := NewValidator()
	db := NewDB(t)

	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf, validate, translator)
	courseRepo := inmemdb.NewCourseRepository(db)
	courseSvc := course.NewService(courseRepo, logger, validate, translator)
	courseSvc.SetRewarder(usrSvc)

	return &Services{
		Conf:         conf,
		Logger:       logger,
		Mail:         mailSvc,
		DB:           db,
		UserRepo:     usrRepo,
		Users:        usrSvc,
		Courses:      courseSvc,
		Dashboard:    course.NewDashboard(courseSvc, courseRepo, usrSvc),
		Comments:     comment.NewService(inmemdb.NewCommentRepository(db), courseSvc, validate, translator),
		Certificates: certificate.NewService(courseSvc),
		Ranking:      ranking.NewService(usrRepo, usrRepo, ranking.ParseMode(conf.Ranking.Mode)),
		Moderation:   moderation.NewService(inmemdb.NewActivityRepository(db), usrSvc, courseSvc, mailSvc, logger),
	}
}

// GetUser returns a stored user or fails the test.
func (s *Services) GetUser(t *testing.T, id int) user.User {
	usr, err := s.Users.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser(%d) failed: %v", id, err)
	}
	return usr
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	status user.Status,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
