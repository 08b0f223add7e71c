package course

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	// Repository is the course data source. userID selects whose enrollment is merged into the
	// returned courses; 0 is an anonymous view.
	Repository interface {
		QueryCourses(ctx context.Context, userID int, filter QueryFilter) ([]Course, error)
		GetCourse(ctx context.Context, userID, id int) (Course, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// UpdateCourse saves the catalog fields of c. Lessons are left untouched.
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// AddLesson appends l to the course, numbering it after the last lesson.
		AddLesson(ctx context.Context, courseID int, l Lesson) (Course, error)
		// UpdateLesson saves the content fields of l. Its order and completions are left untouched.
		UpdateLesson(ctx context.Context, courseID int, l Lesson) (Course, error)
		// DeleteLesson removes a lesson with its completions and renumbers the lessons left.
		DeleteLesson(ctx context.Context, courseID, lessonID int) (Course, error)
		// ReorderLessons numbers the lessons after their position in lessonIDs, starting at 1.
		ReorderLessons(ctx context.Context, courseID int, lessonIDs []int) (Course, error)
		ToggleFavorite(ctx context.Context, userID, id int) (Course, error)
		// MarkLessonComplete completes a lesson for userID. It reports whether the lesson was not completed before,
		// and returns ErrLessonNotFound when the course has no such lesson.
		MarkLessonComplete(ctx context.Context, userID, courseID, lessonID int) (Course, bool, error)
	}

	// Rewarder credits students for their progress.
	Rewarder interface {
		RewardLessonCompletion(ctx context.Context, userID int, firstLesson, courseCompleted bool) error
	}

	Service struct {
		repo       Repository
		rewarder   Rewarder
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, logger core.Logger, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}
}

// SetRewarder sets the Rewarder called on every first completion of a lesson.
func (svc *Service) SetRewarder(r Rewarder) {
	svc.rewarder = r
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.NewFieldsValidationError(err, svc.translator)
	}
	return nil
}

// List returns the courses matching filter as seen by viewer. Only published courses are listed unless
// filter.Statuses is set and viewer may see the unpublished courses of filter.InstructorID.
func (svc *Service) List(ctx context.Context, viewer user.User, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	if len(filter.Statuses) == 0 || !canSeeUnpublished(viewer, filter.InstructorID) {
		filter.Statuses = []Status{StatusPublished}
	}
	courses, err := svc.repo.QueryCourses(ctx, viewer.ID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

// Progress lists the published courses viewer has started.
func (svc *Service) Progress(ctx context.Context, viewer user.User) ([]Course, error) {
	return svc.List(ctx, viewer, QueryFilter{InProgress: true})
}

// get returns the course with the given ID merged with the enrollment of userID. Deleted courses are not found.
func (svc *Service) get(ctx context.Context, userID, id int) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, userID, id)
	if err != nil {
		return Course{}, err
	}
	if c.Status == StatusDeleted {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// Get returns the course with the given ID, or ErrNotFound when viewer may not see it.
func (svc *Service) Get(ctx context.Context, viewer user.User, id int) (Course, error) {
	c, err := svc.get(ctx, viewer.ID, id)
	if err != nil {
		return Course{}, err
	}
	if !CanView(viewer, c) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// Find is Get where a missing course is a normal absent result.
func (svc *Service) Find(ctx context.Context, viewer user.User, id int) (Course, bool, error) {
	c, err := svc.Get(ctx, viewer, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Course{}, false, nil
		}
		return Course{}, false, err
	}
	return c, true, nil
}

// ToggleFavorite flips the favorite flag of a course for viewer.
func (svc *Service) ToggleFavorite(ctx context.Context, viewer user.User, id int) (Course, error) {
	if _, err := svc.Get(ctx, viewer, id); err != nil {
		return Course{}, err
	}
	return svc.repo.ToggleFavorite(ctx, viewer.ID, id)
}

// MarkLessonComplete completes a lesson of a published course for viewer. Completing a lesson twice has no
// further effect. An unknown lesson leaves the course unchanged and is not an error.
func (svc *Service) MarkLessonComplete(ctx context.Context, viewer user.User, courseID, lessonID int) (Course, error) {
	current, err := svc.Get(ctx, viewer, courseID)
	if err != nil {
		return Course{}, err
	}
	if current.Status != StatusPublished {
		return Course{}, errors.Wrapf(core.ErrInvalidTransition, "course %d is %s", courseID, current.Status)
	}

	c, newlyCompleted, err := svc.repo.MarkLessonComplete(ctx, viewer.ID, courseID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrLessonNotFound {
			svc.logger.Warn(fmt.Sprintf("course %d has no lesson %d", courseID, lessonID))
			return current, nil
		}
		return Course{}, err
	}

	if newlyCompleted && viewer.ID != 0 && svc.rewarder != nil {
		firstLesson := c.CompletedLessons() == 1
		if err := svc.rewarder.RewardLessonCompletion(ctx, viewer.ID, firstLesson, c.IsCompleted()); err != nil {
			svc.logger.Error(fmt.Sprintf("rewarding user %d: %v", viewer.ID, err), err)
		}
	}
	return c, nil
}

func canAuthor(actor user.User) bool {
	return actor.IsActive() && (actor.IsTeacher() || actor.IsAdmin())
}

// canSeeUnpublished reports whether viewer may see the unpublished courses of instructorID (0 for any instructor).
func canSeeUnpublished(viewer user.User, instructorID int) bool {
	return viewer.IsActive() && (viewer.IsAdmin() || (viewer.IsTeacher() && instructorID == viewer.ID))
}

func canEdit(actor user.User, c Course) bool {
	return canSeeUnpublished(actor, c.InstructorID)
}

// CanView reports whether viewer may see c. Deleted courses are never shown.
// Unpublished courses are limited to their teacher and admins.
func CanView(viewer user.User, c Course) bool {
	switch c.Status {
	case StatusPublished:
		return true
	case StatusDeleted:
		return false
	}
	return canSeeUnpublished(viewer, c.InstructorID)
}

// Create adds a draft course taught by actor.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !canAuthor(actor) {
		return Course{}, core.ErrForbidden
	}
	nc.clean()
	if err := svc.validateStruct(nc); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	c := Course{
		Title:            nc.Title,
		Description:      nc.Description,
		Category:         nc.Category,
		InstructorID:     actor.ID,
		Instructor:       actor.Name,
		InstructorAvatar: actor.Avatar,
		Thumbnail:        nc.Thumbnail,
		Duration:         nc.Duration,
		Level:            nc.Level,
		Price:            nc.Price,
		Tags:             nc.Tags,
		Status:           StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

// Update edits the catalog fields of a course. Only its teacher or an admin may edit it.
func (svc *Service) Update(ctx context.Context, actor user.User, id int, uc UpdateCourse) (Course, error) {
	c, err := svc.get(ctx, actor.ID, id)
	if err != nil {
		return Course{}, err
	}
	if !canEdit(actor, c) {
		return Course{}, core.ErrForbidden
	}
	if err := svc.validateStruct(uc); err != nil {
		return Course{}, err
	}

	uc.apply(&c)
	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

// AddLesson appends a lesson to a course. Only its teacher or an admin may add lessons.
func (svc *Service) AddLesson(ctx context.Context, actor user.User, courseID int, nl NewLesson) (Course, error) {
	c, err := svc.editable(ctx, actor, courseID)
	if err != nil {
		return Course{}, err
	}
	nl.clean()
	if err := svc.validateStruct(nl); err != nil {
		return Course{}, err
	}

	l := Lesson{
		Title:       nl.Title,
		Description: nl.Description,
		Duration:    nl.Duration,
		VideoURL:    nl.VideoURL,
		Order:       len(c.Lessons) + 1,
		IsFree:      nl.IsFree,
		Materials:   nl.Materials,
	}
	if l.Materials == nil {
		l.Materials = []Material{}
	}
	c, err = svc.repo.AddLesson(ctx, courseID, l)
	return c, errors.Wrap(err, "adding lesson")
}

// editable returns the course when actor may edit it.
func (svc *Service) editable(ctx context.Context, actor user.User, courseID int) (Course, error) {
	c, err := svc.get(ctx, actor.ID, courseID)
	if err != nil {
		return Course{}, err
	}
	if !canEdit(actor, c) {
		return Course{}, core.ErrForbidden
	}
	return c, nil
}

// UpdateLesson edits a lesson of a course. Only its teacher or an admin may edit it.
func (svc *Service) UpdateLesson(ctx context.Context, actor user.User, courseID, lessonID int, ul UpdateLesson) (Course, error) {
	c, err := svc.editable(ctx, actor, courseID)
	if err != nil {
		return Course{}, err
	}
	l, ok := c.Lesson(lessonID)
	if !ok {
		return Course{}, ErrLessonNotFound
	}
	ul.clean()
	if err := svc.validateStruct(ul); err != nil {
		return Course{}, err
	}

	ul.apply(&l)
	c, err = svc.repo.UpdateLesson(ctx, courseID, l)
	return c, errors.Wrap(err, "updating lesson")
}

// DeleteLesson removes a lesson from a course. Its completions are lost.
func (svc *Service) DeleteLesson(ctx context.Context, actor user.User, courseID, lessonID int) (Course, error) {
	c, err := svc.editable(ctx, actor, courseID)
	if err != nil {
		return Course{}, err
	}
	if _, ok := c.Lesson(lessonID); !ok {
		return Course{}, ErrLessonNotFound
	}
	c, err = svc.repo.DeleteLesson(ctx, courseID, lessonID)
	return c, errors.Wrap(err, "deleting lesson")
}

// ReorderLessons sets the order of the lessons of a course. lo must list every lesson of the course once.
func (svc *Service) ReorderLessons(ctx context.Context, actor user.User, courseID int, lo LessonOrder) (Course, error) {
	c, err := svc.editable(ctx, actor, courseID)
	if err != nil {
		return Course{}, err
	}
	if err := svc.validateStruct(lo); err != nil {
		return Course{}, err
	}
	invalid := core.NewValidationError(nil, core.FieldError{Field: "lessonIds", Error: "must list every lesson of the course once"})
	if len(lo.LessonIDs) != len(c.Lessons) {
		return Course{}, invalid
	}
	for _, id := range lo.LessonIDs {
		if _, ok := c.Lesson(id); !ok {
			return Course{}, invalid
		}
	}
	c, err = svc.repo.ReorderLessons(ctx, courseID, lo.LessonIDs)
	return c, errors.Wrap(err, "reordering lessons")
}

// CanSubmit reports whether actor may submit c for review.
func CanSubmit(actor user.User, c Course) bool {
	return canEdit(actor, c)
}

// SetStatus moves a course to status. It returns core.ErrInvalidTransition when the move is not allowed.
// reason is kept for rejections only.
func (svc *Service) SetStatus(ctx context.Context, id int, status Status, reason string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, 0, id)
	if err != nil {
		return Course{}, err
	}
	if !CanTransition(c.Status, status) {
		return Course{}, errors.Wrapf(core.ErrInvalidTransition, "%s -> %s", c.Status, status)
	}
	c.Status = status
	c.RejectionReason = ""
	if status == StatusRejected {
		c.RejectionReason = core.CleanString(reason)
	}
	if status == StatusDeleted {
		c.IsFeatured = false
	}
	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course status")
}

// SetFeatured (un)features a published course.
func (svc *Service) SetFeatured(ctx context.Context, id int, featured bool) (Course, error) {
	c, err := svc.get(ctx, 0, id)
	if err != nil {
		return Course{}, err
	}
	if featured && c.Status != StatusPublished {
		return Course{}, errors.Wrap(core.ErrInvalidTransition, "only published courses can be featured")
	}
	c.IsFeatured = featured
	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}
