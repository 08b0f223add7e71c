package inmemdb

import (
	"encoding/json"
	"io/fs"
	"path"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/user"
)

type (
	userFixture struct {
		user.User
		Password string `json:"password"`
	}

	completionFixture struct {
		LessonID    int       `json:"lessonId"`
		CompletedAt time.Time `json:"completedAt"`
	}

	enrollmentFixture struct {
		UserID           int                 `json:"userId"`
		CourseID         int                 `json:"courseId"`
		IsFavorite       bool                `json:"isFavorite"`
		CompletedLessons []completionFixture `json:"completedLessons"`
	}
)

func readFixture(fsys fs.FS, dir, name string, v interface{}) error {
	data, err := fs.ReadFile(fsys, path.Join(dir, name))
	if err != nil {
		return errors.Wrapf(err, "reading %s", name)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decoding %s", name)
}

// Seed loads the fixture dataset found in dir. Fixture passwords are hashed at the lowest bcrypt cost.
func (db *DB) Seed(fsys fs.FS, dir string) error {
	var (
		users       []userFixture
		courses     []course.Course
		enrollments []enrollmentFixture
		comments    []comment.Comment
		activities  []moderation.Activity
	)
	if err := readFixture(fsys, dir, "users.json", &users); err != nil {
		return err
	}
	if err := readFixture(fsys, dir, "courses.json", &courses); err != nil {
		return err
	}
	if err := readFixture(fsys, dir, "enrollments.json", &enrollments); err != nil {
		return err
	}
	if err := readFixture(fsys, dir, "comments.json", &comments); err != nil {
		return err
	}
	if err := readFixture(fsys, dir, "activities.json", &activities); err != nil {
		return err
	}

	db.user.Lock()
	for _, f := range users {
		usr := f.User
		hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.MinCost)
		if err != nil {
			db.user.Unlock()
			return errors.Wrapf(err, "hashing password of user %d", usr.ID)
		}
		usr.PasswordHash = hash
		db.user.table[usr.ID] = &usr
		if usr.ID > db.user.pk {
			db.user.pk = usr.ID
		}
	}
	db.user.Unlock()

	db.course.Lock()
	for _, c := range courses {
		c := c
		db.user.RLock()
		if instructor, ok := db.user.table[c.InstructorID]; ok {
			c.Instructor = instructor.Name
			c.InstructorAvatar = instructor.Avatar
		}
		db.user.RUnlock()
		if c.Lessons == nil {
			c.Lessons = []course.Lesson{}
		}
		for i := range c.Lessons {
			c.Lessons[i].Completed, c.Lessons[i].CompletedAt = false, nil
			if c.Lessons[i].Materials == nil {
				c.Lessons[i].Materials = []course.Material{}
			}
		}
		c.IsFavorite = false
		db.course.table[c.ID] = &c
		if c.ID > db.course.pk {
			db.course.pk = c.ID
		}
	}
	db.course.Unlock()

	db.enrollment.Lock()
	for _, f := range enrollments {
		e := &enrollment{isFavorite: f.IsFavorite, completed: make(map[int]time.Time, len(f.CompletedLessons))}
		for _, cl := range f.CompletedLessons {
			e.completed[cl.LessonID] = cl.CompletedAt.UTC()
		}
		db.enrollment.table[enrollmentKey{f.UserID, f.CourseID}] = e
	}
	db.enrollment.Unlock()

	db.comment.Lock()
	for _, c := range comments {
		db.comment.rows = append(db.comment.rows, c)
		if c.ID > db.comment.pk {
			db.comment.pk = c.ID
		}
	}
	db.comment.Unlock()

	db.activity.Lock()
	for _, a := range activities {
		db.activity.rows = append(db.activity.rows, a)
		if a.ID > db.activity.pk {
			db.activity.pk = a.ID
		}
	}
	db.activity.Unlock()
	return nil
}
