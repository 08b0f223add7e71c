package comment

import (
	"context"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

var ErrNotFound = errors.New("comment not found")

// Comment is append-only. UserName and UserAvatar are a snapshot of the author at posting time.
type Comment struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar"`
	CourseID   int       `json:"courseId"`
	LessonID   *int      `json:"lessonId,omitempty"`
	Content    string    `json:"content"`
	Likes      int       `json:"likes"`
	Timestamp  time.Time `json:"timestamp"` // UTC
}

type NewComment struct {
	UserID   int    `json:"userId" validate:"required"`
	CourseID int    `json:"courseId" validate:"required"`
	LessonID *int   `json:"lessonId"`
	Content  string `json:"content" validate:"required,notblank,max=2000"`
}

type QueryFilter struct {
	CourseID int  `query:"courseId"`
	LessonID *int `query:"lessonId"`
}

type (
	Repository interface {
		// AddComment resolves the author of c, checks that its course exists and that its lesson
		// belongs to that course, then stores it.
		AddComment(ctx context.Context, c Comment) (Comment, error)
		QueryComments(ctx context.Context, filter QueryFilter) ([]Comment, error)
	}

	// CourseFinder resolves the courses a viewer may see. course.Service is one.
	CourseFinder interface {
		Get(ctx context.Context, viewer user.User, id int) (course.Course, error)
	}

	Service struct {
		repo       Repository
		courses    CourseFinder
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, courses CourseFinder, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, courses: courses, validate: validate, translator: translator}
}

// Add posts a comment by author on a course or one of its lessons. The course must be visible to author.
func (svc *Service) Add(ctx context.Context, author user.User, nc NewComment) (Comment, error) {
	nc.UserID = author.ID
	nc.Content = core.CleanString(nc.Content)
	if err := svc.validate.Struct(nc); err != nil {
		return Comment{}, core.NewFieldsValidationError(err, svc.translator)
	}
	if _, err := svc.courses.Get(ctx, author, nc.CourseID); err != nil {
		return Comment{}, err
	}
	c, err := svc.repo.AddComment(ctx, Comment{
		UserID:    nc.UserID,
		CourseID:  nc.CourseID,
		LessonID:  nc.LessonID,
		Content:   nc.Content,
		Timestamp: time.Now().UTC(),
	})
	return c, errors.Wrap(err, "adding comment")
}

// List returns the comments of a course visible to viewer, or of one of its lessons when lessonID is set,
// oldest first.
func (svc *Service) List(ctx context.Context, viewer user.User, courseID int, lessonID *int) ([]Comment, error) {
	if _, err := svc.courses.Get(ctx, viewer, courseID); err != nil {
		return nil, err
	}
	comments, err := svc.repo.QueryComments(ctx, QueryFilter{CourseID: courseID, LessonID: lessonID})
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	Sort(comments)
	return comments, nil
}

// Sort orders comments by timestamp then ID, ascending.
func Sort(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].Timestamp.Equal(comments[j].Timestamp) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].Timestamp.Before(comments[j].Timestamp)
	})
}

// Match reports whether c passes the filter.
func (qf QueryFilter) Match(c Comment) bool {
	if qf.CourseID != 0 && c.CourseID != qf.CourseID {
		return false
	}
	if qf.LessonID != nil && (c.LessonID == nil || *c.LessonID != *qf.LessonID) {
		return false
	}
	return true
}
