package main

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/certificate"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/session"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/storage"
	"github.com/edukanda/edukanda/storage/remote"
)

// leaderboard is the part of ranking.Service the client reads.
type leaderboard interface {
	Leaderboard(ctx context.Context) ([]ranking.Entry, error)
}

// backend is the set of services a client session runs against, either the seeded mock data or the REST API.
type backend struct {
	mode         string
	auth         session.Authenticator
	courses      *course.Service
	comments     *comment.Service
	certificates *certificate.Service
	ranking      leaderboard
	close        func() error
}

const (
	modeMock   = "mock"
	modeRemote = "remote"
)

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

// newBackend picks the remote mode when an API URL is configured and the mock mode otherwise.
func newBackend(conf *core.Config, logger core.Logger, tokens remote.TokenSource) (*backend, error) {
	if conf.Client.APIURL != "" {
		return newRemoteBackend(conf, logger, tokens)
	}
	return newMockBackend(conf, logger, conf.Client.Latency)
}

// newMockBackend serves the fixture dataset from memory. Changes last as long as the process.
func newMockBackend(conf *core.Config, logger core.Logger, latency time.Duration) (*backend, error) {
	mockConf := *conf
	mockConf.Database.Engine = storage.EngineInMem
	mockConf.Database.Latency = latency

	repos, err := storage.Open(&mockConf)
	if err != nil {
		return nil, errors.Wrap(err, "opening mock data")
	}
	validate, translator := newValidator()

	users := user.NewService(repos.Users, nil, &mockConf, validate, translator)
	courses := course.NewService(repos.Courses, logger, validate, translator)
	courses.SetRewarder(users)

	return &backend{
		mode:         modeMock,
		auth:         session.NewLocalAuthenticator(users),
		courses:      courses,
		comments:     comment.NewService(repos.Comments, courses, validate, translator),
		certificates: certificate.NewService(courses),
		ranking:      ranking.NewService(repos.Users, nil, ranking.ParseMode(conf.Ranking.Mode)),
		close:        repos.Close,
	}, nil
}

// newRemoteBackend talks to the API at conf.Client.APIURL with the token of the current session.
func newRemoteBackend(conf *core.Config, logger core.Logger, tokens remote.TokenSource) (*backend, error) {
	client, err := remote.New(conf.Client.APIURL, tokens, conf.Client.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "creating API client")
	}
	validate, translator := newValidator()

	courses := course.NewService(remote.NewCourseRepository(client), logger, validate, translator)
	return &backend{
		mode:         modeRemote,
		auth:         remote.NewAuthenticator(client),
		courses:      courses,
		comments:     comment.NewService(remote.NewCommentRepository(client), courses, validate, translator),
		certificates: certificate.NewService(courses),
		ranking:      ranking.NewService(remote.NewRankingSource(client), nil, ranking.ParseMode(conf.Ranking.Mode)),
		close:        func() error { return nil },
	}, nil
}
