package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/edukanda/edukanda/core/course"
)

type courseRepository struct {
	db *DB
}

var (
	_ course.Repository       = (*courseRepository)(nil) // interface compliance check
	_ course.EnrollmentSource = (*courseRepository)(nil)
)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// copyCourse returns a deep copy of c.
func copyCourse(c course.Course) course.Course {
	c.Tags = append([]string{}, c.Tags...)
	lessons := make([]course.Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		l.Materials = append([]course.Material{}, l.Materials...)
		lessons[i] = l
	}
	c.Lessons = lessons
	return c
}

// view merges the enrollment of userID into a copy of c. Callers hold the course and enrollment read locks.
func (repo *courseRepository) view(c *course.Course, userID int) course.Course {
	v := copyCourse(*c)
	v.IsFavorite = false
	if userID == 0 {
		return v
	}
	e, ok := repo.db.enrollment.table[enrollmentKey{userID, c.ID}]
	if !ok {
		return v
	}
	v.IsFavorite = e.isFavorite
	for i := range v.Lessons {
		if at, done := e.completed[v.Lessons[i].ID]; done {
			at := at
			v.Lessons[i].Completed = true
			v.Lessons[i].CompletedAt = &at
		}
	}
	return v
}

func (repo *courseRepository) get(userID, id int) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	c, ok := repo.db.course.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return repo.view(c, userID), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, userID int, filter course.QueryFilter) ([]course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	ids := make([]int, 0, len(repo.db.course.table))
	for id := range repo.db.course.table {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		if c := repo.view(repo.db.course.table[id], userID); filter.Match(c) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, userID, id int) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	return repo.get(userID, id)
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	repo.db.course.pk++
	c.ID = repo.db.course.pk
	c.IsFavorite = false
	if c.Lessons == nil {
		c.Lessons = []course.Lesson{}
	}
	stored := copyCourse(c)
	repo.db.course.table[c.ID] = &stored
	repo.db.course.Unlock()
	return repo.get(0, c.ID)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	orig, ok := repo.db.course.table[c.ID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	updated := copyCourse(c)
	updated.Lessons = orig.Lessons
	updated.IsFavorite = false
	repo.db.course.table[c.ID] = &updated
	repo.db.course.Unlock()
	return repo.get(0, c.ID)
}

func (repo *courseRepository) AddLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	c, ok := repo.db.course.table[courseID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	for _, ol := range c.Lessons {
		if ol.ID >= l.ID {
			l.ID = ol.ID + 1
		}
	}
	if l.ID == 0 {
		l.ID = 1
	}
	l.Completed, l.CompletedAt = false, nil
	l.Materials = append([]course.Material{}, l.Materials...)
	c.Lessons = append(c.Lessons, l)
	c.UpdatedAt = time.Now().UTC()
	repo.db.course.Unlock()
	return repo.get(0, courseID)
}

func (repo *courseRepository) ToggleFavorite(ctx context.Context, userID, id int) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.RLock()
	_, ok := repo.db.course.table[id]
	repo.db.course.RUnlock()
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	repo.db.enrollment.Lock()
	key := enrollmentKey{userID, id}
	e, ok := repo.db.enrollment.table[key]
	if !ok {
		e = &enrollment{completed: make(map[int]time.Time)}
		repo.db.enrollment.table[key] = e
	}
	e.isFavorite = !e.isFavorite
	repo.db.enrollment.Unlock()
	return repo.get(userID, id)
}

func (repo *courseRepository) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID int) (course.Course, bool, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, false, err
	}
	repo.db.course.Lock()
	c, ok := repo.db.course.table[courseID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, false, course.ErrNotFound
	}
	if _, ok := c.Lesson(lessonID); !ok {
		repo.db.course.Unlock()
		return course.Course{}, false, course.ErrLessonNotFound
	}

	repo.db.enrollment.Lock()
	key := enrollmentKey{userID, courseID}
	e, enrolled := repo.db.enrollment.table[key]
	if !enrolled {
		e = &enrollment{completed: make(map[int]time.Time)}
		repo.db.enrollment.table[key] = e
	}
	if !enrolled || len(e.completed) == 0 {
		c.StudentsCount++
	}
	_, done := e.completed[lessonID]
	if !done {
		e.completed[lessonID] = time.Now().UTC()
	}
	repo.db.enrollment.Unlock()
	repo.db.course.Unlock()

	v, err := repo.get(userID, courseID)
	return v, !done, err
}

// lessonIndex returns the position of lessonID in c. Callers hold the course lock.
func lessonIndex(c *course.Course, lessonID int) (int, bool) {
	for i, l := range c.Lessons {
		if l.ID == lessonID {
			return i, true
		}
	}
	return 0, false
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	c, ok := repo.db.course.table[courseID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	i, ok := lessonIndex(c, l.ID)
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrLessonNotFound
	}
	stored := &c.Lessons[i]
	stored.Title = l.Title
	stored.Description = l.Description
	stored.Duration = l.Duration
	stored.VideoURL = l.VideoURL
	stored.IsFree = l.IsFree
	stored.Materials = append([]course.Material{}, l.Materials...)
	c.UpdatedAt = time.Now().UTC()
	repo.db.course.Unlock()
	return repo.get(0, courseID)
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, courseID, lessonID int) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	c, ok := repo.db.course.table[courseID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	i, ok := lessonIndex(c, lessonID)
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrLessonNotFound
	}
	lessons := append(append([]course.Lesson{}, c.Lessons[:i]...), c.Lessons[i+1:]...)
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	for i := range lessons {
		lessons[i].Order = i + 1
	}
	c.Lessons = lessons
	c.UpdatedAt = time.Now().UTC()

	repo.db.enrollment.Lock()
	for key, e := range repo.db.enrollment.table {
		if key.courseID == courseID {
			delete(e.completed, lessonID)
		}
	}
	repo.db.enrollment.Unlock()
	repo.db.course.Unlock()
	return repo.get(0, courseID)
}

func (repo *courseRepository) ReorderLessons(ctx context.Context, courseID int, lessonIDs []int) (course.Course, error) {
	if err := repo.db.delay(ctx); err != nil {
		return course.Course{}, err
	}
	repo.db.course.Lock()
	c, ok := repo.db.course.table[courseID]
	if !ok {
		repo.db.course.Unlock()
		return course.Course{}, course.ErrNotFound
	}
	lessons := make([]course.Lesson, 0, len(lessonIDs))
	for n, id := range lessonIDs {
		i, ok := lessonIndex(c, id)
		if !ok {
			repo.db.course.Unlock()
			return course.Course{}, course.ErrLessonNotFound
		}
		l := c.Lessons[i]
		l.Order = n + 1
		lessons = append(lessons, l)
	}
	c.Lessons = lessons
	c.UpdatedAt = time.Now().UTC()
	repo.db.course.Unlock()
	return repo.get(0, courseID)
}

// QueryEnrollments lists the enrollments of a course ordered by user ID.
func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for key, e := range repo.db.enrollment.table {
		if key.courseID != courseID {
			continue
		}
		completed := make(map[int]time.Time, len(e.completed))
		for id, at := range e.completed {
			completed[id] = at
		}
		enrollments = append(enrollments, course.Enrollment{
			UserID:     key.userID,
			CourseID:   key.courseID,
			IsFavorite: e.isFavorite,
			Completed:  completed,
		})
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].UserID < enrollments[j].UserID })
	return enrollments, nil
}
