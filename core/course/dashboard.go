package course

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/user"
)

type (
	// Enrollment is the progress of one student in one course.
	Enrollment struct {
		UserID     int
		CourseID   int
		IsFavorite bool
		Completed  map[int]time.Time // lesson ID -> completion time (UTC)
	}

	// EnrollmentSource lists the enrollments of a course.
	EnrollmentSource interface {
		QueryEnrollments(ctx context.Context, courseID int) ([]Enrollment, error)
	}

	// Directory resolves the students of an enrollment.
	Directory interface {
		Get(ctx context.Context, id int) (user.User, error)
	}

	// StudentProgress is a student of a course as seen by its teacher.
	StudentProgress struct {
		UserID           int        `json:"userId"`
		Name             string     `json:"name"`
		Avatar           string     `json:"avatar"`
		CompletedLessons int        `json:"completedLessons"`
		LessonsCount     int        `json:"lessonsCount"`
		Progress         int        `json:"progress"`
		Completed        bool       `json:"completed"`
		LastActivity     *time.Time `json:"lastActivity,omitempty"`
	}

	LessonAnalytics struct {
		LessonID    int    `json:"lessonId"`
		Title       string `json:"title"`
		Order       int    `json:"order"`
		Completions int    `json:"completions"`
	}

	// Analytics sums up the enrollments of a course.
	Analytics struct {
		CourseID        int               `json:"courseId"`
		Title           string            `json:"title"`
		Status          Status            `json:"status"`
		StudentsCount   int               `json:"studentsCount"` // catalog counter
		ActiveStudents  int               `json:"activeStudents"`
		Completions     int               `json:"completions"`
		CompletionRate  int               `json:"completionRate"` // %
		AverageProgress int               `json:"averageProgress"`
		Favorites       int               `json:"favorites"`
		Rating          float64           `json:"rating"`
		Revenue         float64           `json:"revenue"`
		Lessons         []LessonAnalytics `json:"lessons"`
	}

	// Dashboard serves the teacher views over courses and their enrollments.
	Dashboard struct {
		courses     *Service
		enrollments EnrollmentSource
		students    Directory
	}
)

func NewDashboard(courses *Service, enrollments EnrollmentSource, students Directory) *Dashboard {
	return &Dashboard{courses: courses, enrollments: enrollments, students: students}
}

// progress counts the completions of e for lessons still in c and returns the latest of them.
func (e Enrollment) progress(c Course) (int, *time.Time) {
	var (
		n    int
		last *time.Time
	)
	for _, l := range c.Lessons {
		at, ok := e.Completed[l.ID]
		if !ok {
			continue
		}
		n++
		if last == nil || at.After(*last) {
			at := at
			last = &at
		}
	}
	return n, last
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(total)))
}

// TeacherStats computes the dashboard counters of teacherID. Teachers see their own, admins see anyone's.
// Deleted courses are not counted. Revenue is the price of each course times its students.
func (d *Dashboard) TeacherStats(ctx context.Context, actor user.User, teacherID int) (user.TeacherStats, error) {
	if !canSeeUnpublished(actor, teacherID) {
		return user.TeacherStats{}, core.ErrForbidden
	}
	courses, err := d.courses.repo.QueryCourses(ctx, 0, QueryFilter{InstructorID: teacherID})
	if err != nil {
		return user.TeacherStats{}, errors.Wrap(err, "querying courses")
	}

	var (
		stats   user.TeacherStats
		ratings float64
		rated   int
	)
	for _, c := range courses {
		if c.Status == StatusDeleted {
			continue
		}
		stats.TotalCourses++
		stats.TotalStudents += c.StudentsCount
		stats.TotalRevenue += c.Price * float64(c.StudentsCount)
		if c.Rating > 0 {
			ratings += c.Rating
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = ratings / float64(rated)
	}
	return stats, nil
}

// course returns the course with its enrollments when actor may manage it.
func (d *Dashboard) course(ctx context.Context, actor user.User, courseID int) (Course, []Enrollment, error) {
	c, err := d.courses.editable(ctx, actor, courseID)
	if err != nil {
		return Course{}, nil, err
	}
	enrollments, err := d.enrollments.QueryEnrollments(ctx, courseID)
	if err != nil {
		return Course{}, nil, errors.Wrap(err, "querying enrollments")
	}
	return c, enrollments, nil
}

// Students lists the students who completed at least one lesson of a course, most advanced first.
func (d *Dashboard) Students(ctx context.Context, actor user.User, courseID int) ([]StudentProgress, error) {
	c, enrollments, err := d.course(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}

	students := make([]StudentProgress, 0, len(enrollments))
	for _, e := range enrollments {
		n, last := e.progress(c)
		if n == 0 {
			continue
		}
		usr, err := d.students.Get(ctx, e.UserID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "getting student %d", e.UserID)
		}
		students = append(students, StudentProgress{
			UserID:           usr.ID,
			Name:             usr.Name,
			Avatar:           usr.Avatar,
			CompletedLessons: n,
			LessonsCount:     len(c.Lessons),
			Progress:         percent(n, len(c.Lessons)),
			Completed:        n == len(c.Lessons),
			LastActivity:     last,
		})
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].Progress != students[j].Progress {
			return students[i].Progress > students[j].Progress
		}
		return students[i].Name < students[j].Name
	})
	return students, nil
}

// Analytics sums up the enrollments of a course. Only students with a completed lesson are active.
func (d *Dashboard) Analytics(ctx context.Context, actor user.User, courseID int) (Analytics, error) {
	c, enrollments, err := d.course(ctx, actor, courseID)
	if err != nil {
		return Analytics{}, err
	}

	a := Analytics{
		CourseID:      c.ID,
		Title:         c.Title,
		Status:        c.Status,
		StudentsCount: c.StudentsCount,
		Rating:        c.Rating,
		Revenue:       c.Price * float64(c.StudentsCount),
		Lessons:       make([]LessonAnalytics, 0, len(c.Lessons)),
	}
	index := make(map[int]int, len(c.Lessons))
	for i, l := range c.Lessons {
		index[l.ID] = i
		a.Lessons = append(a.Lessons, LessonAnalytics{LessonID: l.ID, Title: l.Title, Order: l.Order})
	}

	var progress int
	for _, e := range enrollments {
		if e.IsFavorite {
			a.Favorites++
		}
		n, _ := e.progress(c)
		if n == 0 {
			continue
		}
		a.ActiveStudents++
		progress += percent(n, len(c.Lessons))
		if n == len(c.Lessons) {
			a.Completions++
		}
		for id := range e.Completed {
			if i, ok := index[id]; ok {
				a.Lessons[i].Completions++
			}
		}
	}
	if a.ActiveStudents > 0 {
		a.AverageProgress = int(math.Round(float64(progress) / float64(a.ActiveStudents)))
	}
	a.CompletionRate = percent(a.Completions, a.ActiveStudents)
	return a, nil
}
