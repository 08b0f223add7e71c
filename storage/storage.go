// Package storage opens the data layer selected by the `database.engine` setting.
package storage

import (
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/assets"
	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/storage/database"
	inmemdb "github.com/edukanda/edukanda/storage/database/inmem"
	sqlxrepos "github.com/edukanda/edukanda/storage/database/sqlx"
)

const (
	EngineInMem    = "inmem"
	EnginePostgres = "postgres"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// UserRepository is a user.Repository that also feeds the leaderboard.
type UserRepository interface {
	user.Repository
	ranking.Source
}

// CourseRepository is a course.Repository that also lists enrollments for the teacher dashboard.
type CourseRepository interface {
	course.Repository
	course.EnrollmentSource
}

// Repositories holds one repository per aggregate, all backed by the same engine.
type Repositories struct {
	Users      UserRepository
	Courses    CourseRepository
	Comments   comment.Repository
	Activities moderation.Repository

	close func() error
}

// Close releases the underlying connections.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open returns the repositories of the configured engine. The inmem engine is seeded with the fixture dataset.
func Open(conf *core.Config) (*Repositories, error) {
	switch conf.Database.Engine {
	case EngineInMem, "":
		db := inmemdb.Open(conf.Database.Latency)
		if err := db.Seed(assets.FS, assets.FixturesDir); err != nil {
			return nil, errors.Wrap(err, "seeding inmem database")
		}
		return &Repositories{
			Users:      inmemdb.NewUserRepository(db),
			Courses:    inmemdb.NewCourseRepository(db),
			Comments:   inmemdb.NewCommentRepository(db),
			Activities: inmemdb.NewActivityRepository(db),
		}, nil

	case EnginePostgres:
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Users:      sqlxrepos.NewUserRepository(db),
			Courses:    sqlxrepos.NewCourseRepository(db),
			Comments:   sqlxrepos.NewCommentRepository(db),
			Activities: sqlxrepos.NewActivityRepository(db),
			close:      db.Close,
		}, nil
	}
	return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
}
