package moderation

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

type (
	// UserStore is the part of user.Service moderation works on.
	UserStore interface {
		Get(ctx context.Context, id int) (user.User, error)
		Query(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error)
		SetStatus(ctx context.Context, id int, status user.Status) (user.User, error)
		SetRole(ctx context.Context, id int, role string) (user.User, error)
	}

	// CourseStore is the part of course.Service moderation works on.
	CourseStore interface {
		Get(ctx context.Context, viewer user.User, id int) (course.Course, error)
		List(ctx context.Context, viewer user.User, filter course.QueryFilter) ([]course.Course, error)
		SetStatus(ctx context.Context, id int, status course.Status, reason string) (course.Course, error)
		SetFeatured(ctx context.Context, id int, featured bool) (course.Course, error)
	}

	Repository interface {
		AddActivity(ctx context.Context, a Activity) (Activity, error)
		// QueryActivities returns the latest activities, newest first.
		QueryActivities(ctx context.Context, limit int) ([]Activity, error)
	}

	// Notifier publishes activities as they happen.
	Notifier interface {
		Notify(a Activity)
	}

	Service struct {
		repo     Repository
		users    UserStore
		courses  CourseStore
		mailSvc  core.EmailService
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	users UserStore,
	courses CourseStore,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		courses: courses,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// SetNotifier sets the Notifier every recorded activity is published to.
func (svc *Service) SetNotifier(n Notifier) {
	svc.notifier = n
}

func requireAdmin(actor user.User) error {
	if !(actor.IsAdmin() && actor.IsActive()) {
		return core.ErrForbidden
	}
	return nil
}

// record stores and publishes an activity. Failures are logged: the moderation action already happened.
func (svc *Service) record(ctx context.Context, typ ActivityType, subject user.User, desc string) {
	a := Activity{
		Type:        typ,
		Description: desc,
		UserName:    subject.Name,
		Timestamp:   time.Now().UTC(),
	}
	if subject.ID != 0 {
		id := subject.ID
		a.UserID = &id
	}
	a, err := svc.repo.AddActivity(ctx, a)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording activity %s: %v", typ, err), err)
		return
	}
	if svc.notifier != nil {
		svc.notifier.Notify(a)
	}
}

func (svc *Service) sendMail(usr user.User, subject, tmpl string, data map[string]string) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	tmplData := map[string]string{"Name": usr.Name}
	for k, v := range data {
		tmplData[k] = v
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: tmplData,
	})
}

// RecordRegistration adds a user_registered activity.
func (svc *Service) RecordRegistration(ctx context.Context, usr user.User) {
	svc.record(ctx, ActivityUserRegistered, usr, fmt.Sprintf("%s joined as %s", usr.Name, usr.Role))
}

// Users

func (svc *Service) Users(ctx context.Context, actor user.User, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return svc.users.Query(ctx, filter, orderings...)
}

func (svc *Service) GetUser(ctx context.Context, actor user.User, id int) (user.User, error) {
	if err := requireAdmin(actor); err != nil {
		return user.User{}, err
	}
	return svc.users.Get(ctx, id)
}

func (svc *Service) setUserStatus(ctx context.Context, actor user.User, id int, status user.Status) (user.User, error) {
	if err := requireAdmin(actor); err != nil {
		return user.User{}, err
	}
	if id == actor.ID {
		return user.User{}, errors.Wrap(core.ErrForbidden, "moderating own account")
	}
	return svc.users.SetStatus(ctx, id, status)
}

func (svc *Service) SuspendUser(ctx context.Context, actor user.User, id int) (user.User, error) {
	usr, err := svc.setUserStatus(ctx, actor, id, user.StatusSuspended)
	if err != nil {
		return user.User{}, err
	}
	svc.record(ctx, ActivityUserSuspended, usr, fmt.Sprintf("%s was suspended by %s", usr.Name, actor.Name))
	svc.sendMail(usr, "Account suspended", "account_suspended", nil)
	return usr, nil
}

func (svc *Service) ReactivateUser(ctx context.Context, actor user.User, id int) (user.User, error) {
	usr, err := svc.setUserStatus(ctx, actor, id, user.StatusActive)
	if err != nil {
		return user.User{}, err
	}
	svc.record(ctx, ActivityUserReactivated, usr, fmt.Sprintf("%s was reactivated by %s", usr.Name, actor.Name))
	return usr, nil
}

// DeleteUser marks an account as deleted. Accounts are never removed.
func (svc *Service) DeleteUser(ctx context.Context, actor user.User, id int) (user.User, error) {
	usr, err := svc.setUserStatus(ctx, actor, id, user.StatusDeleted)
	if err != nil {
		return user.User{}, err
	}
	svc.record(ctx, ActivityUserDeleted, usr, fmt.Sprintf("%s was deleted by %s", usr.Name, actor.Name))
	return usr, nil
}

// SetUserStatus dispatches to SuspendUser, ReactivateUser or DeleteUser.
func (svc *Service) SetUserStatus(ctx context.Context, actor user.User, id int, status user.Status) (user.User, error) {
	switch status {
	case user.StatusSuspended:
		return svc.SuspendUser(ctx, actor, id)
	case user.StatusActive:
		return svc.ReactivateUser(ctx, actor, id)
	case user.StatusDeleted:
		return svc.DeleteUser(ctx, actor, id)
	}
	return user.User{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
}

func (svc *Service) SetUserRole(ctx context.Context, actor user.User, id int, role string) (user.User, error) {
	if err := requireAdmin(actor); err != nil {
		return user.User{}, err
	}
	if id == actor.ID {
		return user.User{}, errors.Wrap(core.ErrForbidden, "moderating own account")
	}
	usr, err := svc.users.SetRole(ctx, id, role)
	if err != nil {
		return user.User{}, err
	}
	svc.record(ctx, ActivityUserRoleChanged, usr, fmt.Sprintf("%s is now %s", usr.Name, usr.Role))
	return usr, nil
}

// Courses

// Courses lists courses of any status but deleted unless filter.Statuses is set.
func (svc *Service) Courses(ctx context.Context, actor user.User, filter course.QueryFilter) ([]course.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = []course.Status{course.StatusDraft, course.StatusPending, course.StatusPublished, course.StatusRejected}
	}
	return svc.courses.List(ctx, actor, filter)
}

func (svc *Service) instructor(ctx context.Context, c course.Course) user.User {
	usr, err := svc.users.Get(ctx, c.InstructorID)
	if err != nil {
		return user.User{ID: c.InstructorID, Name: c.Instructor}
	}
	return usr
}

// SubmitCourse sends a draft course to review. Only its teacher or an admin may submit it.
// The drafts of other teachers are not found.
func (svc *Service) SubmitCourse(ctx context.Context, actor user.User, id int) (course.Course, error) {
	c, err := svc.courses.Get(ctx, actor, id)
	if err != nil {
		return course.Course{}, err
	}
	if !course.CanSubmit(actor, c) {
		return course.Course{}, core.ErrForbidden
	}
	if c, err = svc.courses.SetStatus(ctx, id, course.StatusPending, ""); err != nil {
		return course.Course{}, err
	}
	svc.record(ctx, ActivityCourseSubmitted, actor, fmt.Sprintf("%s submitted %q for review", actor.Name, c.Title))
	return c, nil
}

func (svc *Service) ApproveCourse(ctx context.Context, actor user.User, id int) (course.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return course.Course{}, err
	}
	c, err := svc.courses.SetStatus(ctx, id, course.StatusPublished, "")
	if err != nil {
		return course.Course{}, err
	}
	teacher := svc.instructor(ctx, c)
	svc.record(ctx, ActivityCoursePublished, teacher, fmt.Sprintf("%q was published by %s", c.Title, actor.Name))
	svc.sendMail(teacher, "Course approved", "course_reviewed", map[string]string{
		"Course": c.Title, "Status": "approved", "Reason": "",
	})
	return c, nil
}

func (svc *Service) RejectCourse(ctx context.Context, actor user.User, id int, reason string) (course.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return course.Course{}, err
	}
	if core.CleanString(reason) == "" {
		return course.Course{}, core.NewValidationError(nil, core.FieldError{Field: "reason", Error: "this field is required"})
	}
	c, err := svc.courses.SetStatus(ctx, id, course.StatusRejected, reason)
	if err != nil {
		return course.Course{}, err
	}
	teacher := svc.instructor(ctx, c)
	svc.record(ctx, ActivityCourseRejected, teacher, fmt.Sprintf("%q was rejected by %s", c.Title, actor.Name))
	svc.sendMail(teacher, "Course rejected", "course_reviewed", map[string]string{
		"Course": c.Title, "Status": "rejected", "Reason": c.RejectionReason,
	})
	return c, nil
}

// DeleteCourse withdraws a published course. Deletion is terminal.
func (svc *Service) DeleteCourse(ctx context.Context, actor user.User, id int) (course.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return course.Course{}, err
	}
	c, err := svc.courses.SetStatus(ctx, id, course.StatusDeleted, "")
	if err != nil {
		return course.Course{}, err
	}
	svc.record(ctx, ActivityCourseDeleted, svc.instructor(ctx, c), fmt.Sprintf("%q was deleted by %s", c.Title, actor.Name))
	return c, nil
}

func (svc *Service) SetFeatured(ctx context.Context, actor user.User, id int, featured bool) (course.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return course.Course{}, err
	}
	c, err := svc.courses.SetFeatured(ctx, id, featured)
	if err != nil {
		return course.Course{}, err
	}
	typ, verb := ActivityCourseFeatured, "featured"
	if !featured {
		typ, verb = ActivityCourseUnfeatured, "unfeatured"
	}
	svc.record(ctx, typ, svc.instructor(ctx, c), fmt.Sprintf("%q was %s by %s", c.Title, verb, actor.Name))
	return c, nil
}

// Dashboard

// Activities returns the latest activities, newest first. limit is clamped to [1, MaxActivitiesLimit].
func (svc *Service) Activities(ctx context.Context, actor user.User, limit int) ([]Activity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivitiesLimit
	} else if limit > MaxActivitiesLimit {
		limit = MaxActivitiesLimit
	}
	return svc.repo.QueryActivities(ctx, limit)
}

func (svc *Service) Stats(ctx context.Context, actor user.User) (Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return Stats{}, err
	}
	var stats Stats

	users, err := svc.users.Query(ctx, user.QueryFilter{Statuses: []user.Status{user.StatusActive, user.StatusSuspended}})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying users")
	}
	for _, usr := range users {
		stats.TotalUsers++
		switch usr.Role {
		case user.RoleStudent:
			stats.TotalStudents++
		case user.RoleTeacher:
			stats.TotalTeachers++
		case user.RoleAdmin:
			stats.TotalAdmins++
		}
		switch usr.Status {
		case user.StatusActive:
			stats.ActiveUsers++
		case user.StatusSuspended:
			stats.SuspendedUsers++
		}
	}

	courses, err := svc.Courses(ctx, actor, course.QueryFilter{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying courses")
	}
	for _, c := range courses {
		stats.TotalCourses++
		switch c.Status {
		case course.StatusPublished:
			stats.CoursesPublished++
			stats.TotalRevenue += c.Price * float64(c.StudentsCount)
		case course.StatusPending:
			stats.CoursesPending++
		}
	}
	return stats, nil
}
