package remote

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/edukanda/edukanda/core/course"
)

// CourseRepository reads courses as seen by the session user. The userID arguments are ignored:
// the API resolves the user from the bearer token.
type CourseRepository struct {
	client *Client
}

var _ course.Repository = (*CourseRepository)(nil) // interface compliance check

func NewCourseRepository(client *Client) *CourseRepository {
	return &CourseRepository{client: client}
}

// QueryCourses sends the filter to the API and applies it again locally.
func (repo *CourseRepository) QueryCourses(ctx context.Context, _ int, filter course.QueryFilter) ([]course.Course, error) {
	query := make(map[string]string)
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Search != "" {
		query["search"] = filter.Search
	}
	if filter.Favorite {
		query["favorite"] = "true"
	}
	if filter.InProgress {
		query["inProgress"] = "true"
	}
	if filter.InstructorID != 0 {
		query["instructorId"] = strconv.Itoa(filter.InstructorID)
	}

	var found []course.Course
	if err := repo.client.do(ctx, rest.Get, "/courses", query, nil, &found, nil); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(found))
	for _, c := range found {
		if filter.Match(c) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *CourseRepository) GetCourse(ctx context.Context, _ int, id int) (course.Course, error) {
	var c course.Course
	err := repo.client.do(ctx, rest.Get, fmt.Sprintf("/courses/%d", id), nil, nil, &c, course.ErrNotFound)
	return c, err
}

func (repo *CourseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	nc := course.NewCourse{
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Thumbnail:   c.Thumbnail,
		Duration:    c.Duration,
		Level:       c.Level,
		Price:       c.Price,
		Tags:        c.Tags,
	}
	var created course.Course
	err := repo.client.do(ctx, rest.Post, "/courses", nil, nc, &created, nil)
	return created, err
}

func (repo *CourseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	uc := course.UpdateCourse{
		Title:       &c.Title,
		Description: &c.Description,
		Category:    &c.Category,
		Thumbnail:   &c.Thumbnail,
		Duration:    &c.Duration,
		Level:       &c.Level,
		Price:       &c.Price,
		Tags:        &c.Tags,
	}
	var updated course.Course
	err := repo.client.do(ctx, rest.Put, fmt.Sprintf("/courses/%d", c.ID), nil, uc, &updated, course.ErrNotFound)
	return updated, err
}

func (repo *CourseRepository) AddLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	nl := course.NewLesson{
		Title:       l.Title,
		Description: l.Description,
		Duration:    l.Duration,
		VideoURL:    l.VideoURL,
		IsFree:      l.IsFree,
		Materials:   l.Materials,
	}
	var c course.Course
	err := repo.client.do(ctx, rest.Post, fmt.Sprintf("/courses/%d/lessons", courseID), nil, nl, &c, course.ErrNotFound)
	return c, err
}

func (repo *CourseRepository) ToggleFavorite(ctx context.Context, _ int, id int) (course.Course, error) {
	var c course.Course
	err := repo.client.do(ctx, rest.Post, fmt.Sprintf("/courses/%d/favorite", id), nil, nil, &c, course.ErrNotFound)
	return c, err
}

// MarkLessonComplete never reports a new completion: the API rewards the student itself.
func (repo *CourseRepository) MarkLessonComplete(ctx context.Context, _ int, courseID, lessonID int) (course.Course, bool, error) {
	var c course.Course
	path := fmt.Sprintf("/courses/%d/lessons/%d/complete", courseID, lessonID)
	if err := repo.client.do(ctx, rest.Post, path, nil, nil, &c, course.ErrNotFound); err != nil {
		return course.Course{}, false, err
	}
	return c, false, nil
}

func (repo *CourseRepository) UpdateLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	ul := course.UpdateLesson{
		Title:       &l.Title,
		Description: &l.Description,
		Duration:    &l.Duration,
		VideoURL:    &l.VideoURL,
		IsFree:      &l.IsFree,
		Materials:   l.Materials,
	}
	if ul.Materials == nil {
		ul.Materials = []course.Material{}
	}
	var c course.Course
	path := fmt.Sprintf("/courses/%d/lessons/%d", courseID, l.ID)
	err := repo.client.do(ctx, rest.Put, path, nil, ul, &c, course.ErrLessonNotFound)
	return c, err
}

func (repo *CourseRepository) DeleteLesson(ctx context.Context, courseID, lessonID int) (course.Course, error) {
	var c course.Course
	path := fmt.Sprintf("/courses/%d/lessons/%d", courseID, lessonID)
	err := repo.client.do(ctx, rest.Delete, path, nil, nil, &c, course.ErrLessonNotFound)
	return c, err
}

func (repo *CourseRepository) ReorderLessons(ctx context.Context, courseID int, lessonIDs []int) (course.Course, error) {
	var c course.Course
	path := fmt.Sprintf("/courses/%d/lessons", courseID)
	err := repo.client.do(ctx, rest.Put, path, nil, course.LessonOrder{LessonIDs: lessonIDs}, &c, course.ErrNotFound)
	return c, err
}
