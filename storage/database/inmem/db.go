// Package inmemdb is the mock data layer: every table lives in memory, seeded from the fixture dataset.
package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		comment    *commentTable
		activity   *activityTable
		latency    time.Duration
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
		pk    int
	}

	// courseTable holds the catalog. Lessons are stored without any user's completion.
	courseTable struct {
		sync.RWMutex
		table map[int]*course.Course
		pk    int
	}

	enrollmentKey struct {
		userID, courseID int
	}

	enrollment struct {
		isFavorite bool
		completed  map[int]time.Time // {lessonID: completedAt}
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[enrollmentKey]*enrollment
	}

	commentTable struct {
		sync.RWMutex
		rows []comment.Comment
		pk   int
	}

	activityTable struct {
		sync.RWMutex
		rows []moderation.Activity
		pk   int
	}
)

// Open returns an empty DB. Every repository call waits latency first.
func Open(latency time.Duration) *DB {
	return &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		course:     &courseTable{table: make(map[int]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[enrollmentKey]*enrollment)},
		comment:    &commentTable{},
		activity:   &activityTable{},
		latency:    latency,
	}
}

// SetLatency changes the artificial latency of every repository call.
func (db *DB) SetLatency(d time.Duration) {
	db.latency = d
}

func (db *DB) delay(ctx context.Context) error {
	return core.Sleep(ctx, db.latency)
}
