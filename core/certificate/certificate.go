package certificate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

var (
	ErrNotCompleted = errors.New("course not completed")

	namespace = uuid.MustParse("5f0c3a52-6a1e-4b1c-9a57-0f6a3c1e2d4b")
)

// Certificate is derived from a completed course. It is never stored.
type Certificate struct {
	ID             string    `json:"id"`
	UserID         int       `json:"userId"`
	CourseID       int       `json:"courseId"`
	CourseName     string    `json:"courseName"`
	InstructorName string    `json:"instructorName"`
	CompletionDate time.Time `json:"completionDate"`
	Hours          float64   `json:"hours"`
}

// CourseLister is the part of course.Service certificates are derived from.
type CourseLister interface {
	List(ctx context.Context, viewer user.User, filter course.QueryFilter) ([]course.Course, error)
	Get(ctx context.Context, viewer user.User, id int) (course.Course, error)
}

type Service struct {
	courses CourseLister
}

func NewService(courses CourseLister) *Service {
	return &Service{courses: courses}
}

// New derives the certificate of userID for c, or returns ErrNotCompleted.
func New(userID int, c course.Course) (Certificate, error) {
	completedAt, ok := c.CompletedAt()
	if !ok {
		return Certificate{}, ErrNotCompleted
	}
	return Certificate{
		ID:             uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%d:%d", userID, c.ID))).String(),
		UserID:         userID,
		CourseID:       c.ID,
		CourseName:     c.Title,
		InstructorName: c.Instructor,
		CompletionDate: completedAt,
		Hours:          math.Round(c.TotalDuration().Hours()*100) / 100,
	}, nil
}

// ForUser returns one certificate per published course completed by usr.
func (svc *Service) ForUser(ctx context.Context, usr user.User) ([]Certificate, error) {
	courses, err := svc.courses.List(ctx, usr, course.QueryFilter{InProgress: true})
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	certs := make([]Certificate, 0, len(courses))
	for _, c := range courses {
		if cert, err := New(usr.ID, c); err == nil {
			certs = append(certs, cert)
		}
	}
	return certs, nil
}

// Get returns the certificate of usr for a course.
func (svc *Service) Get(ctx context.Context, usr user.User, courseID int) (Certificate, error) {
	c, err := svc.courses.Get(ctx, usr, courseID)
	if err != nil {
		return Certificate{}, err
	}
	return New(usr.ID, c)
}
