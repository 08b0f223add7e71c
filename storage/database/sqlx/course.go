package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edukanda/edukanda/core/course"
)

// courseSelect selects the catalog merged with the enrollment of user $1.
const courseSelect = `SELECT
	c.id, c.title, c.description, c.category, c.instructor_id,
	u.name AS instructor, u.avatar AS instructor_avatar,
	c.thumbnail, c.duration, c.level, c.price, c.tags, c.students_count, c.rating,
	c.status, c.rejection_reason, c.is_featured,
	COALESCE(e.is_favorite, FALSE) AS is_favorite,
	c.created_at, c.updated_at
FROM courses c
JOIN users u ON u.id = c.instructor_id
LEFT JOIN enrollments e ON e.course_id = c.id AND e.user_id = $1`

// lessonSelect selects the lessons of courses $2 with the completions of user $1.
const lessonSelect = `SELECT
	l.course_id, l.id, l.title, l.description, l.duration, l.video_url, l."order", l.is_free, l.materials,
	lc.completed_at
FROM lessons l
LEFT JOIN lesson_completions lc ON lc.course_id = l.course_id AND lc.lesson_id = l.id AND lc.user_id = $1
WHERE l.course_id = ANY($2)
ORDER BY l.course_id, l."order", l.id`

type courseRow struct {
	ID               int         `db:"id"`
	Title            string      `db:"title"`
	Description      string      `db:"description"`
	Category         string      `db:"category"`
	InstructorID     int         `db:"instructor_id"`
	Instructor       string      `db:"instructor"`
	InstructorAvatar string      `db:"instructor_avatar"`
	Thumbnail        string      `db:"thumbnail"`
	Duration         string      `db:"duration"`
	Level            string      `db:"level"`
	Price            float64     `db:"price"`
	Tags             string      `db:"tags"` // comma separated
	StudentsCount    int         `db:"students_count"`
	Rating           float64     `db:"rating"`
	Status           string      `db:"status"`
	RejectionReason  null.String `db:"rejection_reason"`
	IsFeatured       bool        `db:"is_featured"`
	IsFavorite       bool        `db:"is_favorite"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		InstructorID:    c.InstructorID,
		Thumbnail:       c.Thumbnail,
		Duration:        c.Duration,
		Level:           c.Level,
		Price:           c.Price,
		Tags:            strings.Join(c.Tags, ","),
		StudentsCount:   c.StudentsCount,
		Rating:          c.Rating,
		Status:          string(c.Status),
		RejectionReason: null.NewString(c.RejectionReason, c.RejectionReason != ""),
		IsFeatured:      c.IsFeatured,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func (row courseRow) course() course.Course {
	tags := []string{}
	if row.Tags != "" {
		tags = strings.Split(row.Tags, ",")
	}
	return course.Course{
		ID:               row.ID,
		Title:            row.Title,
		Description:      row.Description,
		Category:         row.Category,
		InstructorID:     row.InstructorID,
		Instructor:       row.Instructor,
		InstructorAvatar: row.InstructorAvatar,
		Thumbnail:        row.Thumbnail,
		Duration:         row.Duration,
		Level:            row.Level,
		Price:            row.Price,
		Tags:             tags,
		StudentsCount:    row.StudentsCount,
		Rating:           row.Rating,
		Status:           course.Status(row.Status),
		RejectionReason:  row.RejectionReason.String,
		IsFeatured:       row.IsFeatured,
		IsFavorite:       row.IsFavorite,
		Lessons:          []course.Lesson{},
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

// materials is the JSONB materials column.
type materials []course.Material

func (m materials) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *materials) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*m = materials{}
		return nil
	default:
		return fmt.Errorf("unsupported materials type %T", src)
	}
	return json.Unmarshal(data, m)
}

type lessonRow struct {
	CourseID    int       `db:"course_id"`
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Duration    string    `db:"duration"`
	VideoURL    string    `db:"video_url"`
	Order       int       `db:"order"`
	IsFree      bool      `db:"is_free"`
	Materials   materials `db:"materials"`
	CompletedAt null.Time `db:"completed_at"`
}

func (row lessonRow) lesson() course.Lesson {
	l := course.Lesson{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Duration:    row.Duration,
		VideoURL:    row.VideoURL,
		Order:       row.Order,
		IsFree:      row.IsFree,
		Materials:   append([]course.Material{}, row.Materials...),
	}
	if row.CompletedAt.Valid {
		at := row.CompletedAt.Time.UTC()
		l.Completed, l.CompletedAt = true, &at
	}
	return l
}

type courseRepository struct {
	db *sqlx.DB
}

var (
	_ course.Repository       = (*courseRepository)(nil) // interface compliance check
	_ course.EnrollmentSource = (*courseRepository)(nil)
)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// selectCourses runs courseSelect with the extra where clause, then loads the lessons of every course found.
func (repo *courseRepository) selectCourses(ctx context.Context, userID int, where string, args ...interface{}) ([]course.Course, error) {
	q := courseSelect
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY c.id"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, append([]interface{}{userID}, args...)...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	if len(rows) == 0 {
		return []course.Course{}, nil
	}

	courses := make([]course.Course, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	index := make(map[int]int, len(rows))
	for i, row := range rows {
		courses = append(courses, row.course())
		ids = append(ids, int64(row.ID))
		index[row.ID] = i
	}

	var lessons []lessonRow
	if err := repo.db.SelectContext(ctx, &lessons, lessonSelect, userID, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	for _, l := range lessons {
		c := &courses[index[l.CourseID]]
		c.Lessons = append(c.Lessons, l.lesson())
	}
	return courses, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, userID int, filter course.QueryFilter) ([]course.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args)+1) // $1 is the viewing user
	}
	if filter.Category != "" && filter.Category != course.CategoryAll {
		where = append(where, "c.category = "+arg(filter.Category))
	}
	if filter.InstructorID != 0 {
		where = append(where, "c.instructor_id = "+arg(filter.InstructorID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "c.status = ANY("+arg(pq.Array(statuses))+")")
	}

	found, err := repo.selectCourses(ctx, userID, strings.Join(where, " AND "), args...)
	if err != nil {
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

func (repo *courseRepository) GetCourse(ctx context.Context, userID, id int) (course.Course, error) {
	courses, err := repo.selectCourses(ctx, userID, "c.id = $2", id)
	if err != nil {
		return course.Course{}, err
	}
	if len(courses) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return courses[0], nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO courses (
		title, description, category, instructor_id, thumbnail, duration, level, price, tags,
		students_count, rating, status, rejection_reason, is_featured, created_at, updated_at
	) VALUES (
		:title, :description, :category, :instructor_id, :thumbnail, :duration, :level, :price, :tags,
		:students_count, :rating, :status, :rejection_reason, :is_featured, :created_at, :updated_at
	) RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, toCourseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourse(ctx, 0, id)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `UPDATE courses SET
		title = :title, description = :description, category = :category, thumbnail = :thumbnail,
		duration = :duration, level = :level, price = :price, tags = :tags, rating = :rating,
		status = :status, rejection_reason = :rejection_reason, is_featured = :is_featured,
		updated_at = :updated_at
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toCourseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, 0, c.ID)
}

func (repo *courseRepository) exists(ctx context.Context, ext sqlx.QueryerContext, id int) error {
	var found bool
	if err := sqlx.GetContext(ctx, ext, &found, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, id); err != nil {
		return errors.Wrap(err, "checking course")
	}
	if !found {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) AddLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, courseID); err != nil {
			return err
		}
		q := `INSERT INTO lessons (course_id, id, title, description, duration, video_url, "order", is_free, materials)
		SELECT $1, COALESCE(MAX(id), 0) + 1, $2, $3, $4, $5, $6, $7, $8 FROM lessons WHERE course_id = $1`
		if _, err := tx.ExecContext(ctx, q,
			courseID, l.Title, l.Description, l.Duration, l.VideoURL, l.Order, l.IsFree, materials(l.Materials),
		); err != nil {
			return errors.Wrap(err, "inserting lesson")
		}
		_, err := tx.ExecContext(ctx, `UPDATE courses SET updated_at = $2 WHERE id = $1`, courseID, time.Now().UTC())
		return errors.Wrap(err, "updating course")
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, 0, courseID)
}

func (repo *courseRepository) ToggleFavorite(ctx context.Context, userID, id int) (course.Course, error) {
	if err := repo.exists(ctx, repo.db, id); err != nil {
		return course.Course{}, err
	}
	q := `INSERT INTO enrollments (user_id, course_id, is_favorite) VALUES ($1, $2, TRUE)
	ON CONFLICT (user_id, course_id) DO UPDATE SET is_favorite = NOT enrollments.is_favorite`
	if _, err := repo.db.ExecContext(ctx, q, userID, id); err != nil {
		return course.Course{}, errors.Wrap(err, "toggling favorite")
	}
	return repo.GetCourse(ctx, userID, id)
}

func (repo *courseRepository) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID int) (course.Course, bool, error) {
	var newly bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, courseID); err != nil {
			return err
		}
		var found bool
		q := `SELECT EXISTS (SELECT 1 FROM lessons WHERE course_id = $1 AND id = $2)`
		if err := tx.GetContext(ctx, &found, q, courseID, lessonID); err != nil {
			return errors.Wrap(err, "checking lesson")
		}
		if !found {
			return course.ErrLessonNotFound
		}

		var completed int
		q = `SELECT COUNT(*) FROM lesson_completions WHERE user_id = $1 AND course_id = $2`
		if err := tx.GetContext(ctx, &completed, q, userID, courseID); err != nil {
			return errors.Wrap(err, "counting completions")
		}

		q = `INSERT INTO enrollments (user_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, q, userID, courseID); err != nil {
			return errors.Wrap(err, "enrolling user")
		}
		q = `INSERT INTO lesson_completions (user_id, course_id, lesson_id, completed_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`
		res, err := tx.ExecContext(ctx, q, userID, courseID, lessonID, time.Now().UTC())
		if err != nil {
			return errors.Wrap(err, "completing lesson")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "completing lesson")
		}
		newly = n > 0

		if newly && completed == 0 {
			q = `UPDATE courses SET students_count = students_count + 1 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, q, courseID); err != nil {
				return errors.Wrap(err, "counting student")
			}
		}
		return nil
	})
	if err != nil {
		return course.Course{}, false, err
	}
	c, err := repo.GetCourse(ctx, userID, courseID)
	return c, newly, err
}

// touch bumps the updated_at of a course.
func touch(ctx context.Context, tx *sqlx.Tx, courseID int) error {
	_, err := tx.ExecContext(ctx, `UPDATE courses SET updated_at = $2 WHERE id = $1`, courseID, time.Now().UTC())
	return errors.Wrap(err, "updating course")
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, courseID int, l course.Lesson) (course.Course, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, courseID); err != nil {
			return err
		}
		q := `UPDATE lessons SET title = $3, description = $4, duration = $5, video_url = $6, is_free = $7, materials = $8
		WHERE course_id = $1 AND id = $2`
		res, err := tx.ExecContext(ctx, q,
			courseID, l.ID, l.Title, l.Description, l.Duration, l.VideoURL, l.IsFree, materials(l.Materials),
		)
		if err != nil {
			return errors.Wrap(err, "updating lesson")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return course.ErrLessonNotFound
		}
		return touch(ctx, tx, courseID)
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, 0, courseID)
}

// DeleteLesson relies on the lesson_completions foreign key to drop the completions.
func (repo *courseRepository) DeleteLesson(ctx context.Context, courseID, lessonID int) (course.Course, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, courseID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE course_id = $1 AND id = $2`, courseID, lessonID)
		if err != nil {
			return errors.Wrap(err, "deleting lesson")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return course.ErrLessonNotFound
		}
		q := `UPDATE lessons l SET "order" = r.n
		FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY "order", id) AS n FROM lessons WHERE course_id = $1) r
		WHERE l.course_id = $1 AND l.id = r.id`
		if _, err := tx.ExecContext(ctx, q, courseID); err != nil {
			return errors.Wrap(err, "renumbering lessons")
		}
		return touch(ctx, tx, courseID)
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, 0, courseID)
}

func (repo *courseRepository) ReorderLessons(ctx context.Context, courseID int, lessonIDs []int) (course.Course, error) {
	ids := make([]int64, 0, len(lessonIDs))
	for _, id := range lessonIDs {
		ids = append(ids, int64(id))
	}
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, courseID); err != nil {
			return err
		}
		q := `UPDATE lessons l SET "order" = o.n
		FROM unnest($2::int[]) WITH ORDINALITY AS o(id, n)
		WHERE l.course_id = $1 AND l.id = o.id`
		res, err := tx.ExecContext(ctx, q, courseID, pq.Array(ids))
		if err != nil {
			return errors.Wrap(err, "reordering lessons")
		}
		if n, err := res.RowsAffected(); err == nil && int(n) != len(ids) {
			return course.ErrLessonNotFound
		}
		return touch(ctx, tx, courseID)
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, 0, courseID)
}

type completionRow struct {
	UserID      int       `db:"user_id"`
	LessonID    int       `db:"lesson_id"`
	CompletedAt time.Time `db:"completed_at"`
}

// QueryEnrollments lists the enrollments of a course ordered by user ID.
func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	var rows []struct {
		UserID     int  `db:"user_id"`
		IsFavorite bool `db:"is_favorite"`
	}
	q := `SELECT user_id, is_favorite FROM enrollments WHERE course_id = $1 ORDER BY user_id`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	var completions []completionRow
	q = `SELECT user_id, lesson_id, completed_at FROM lesson_completions WHERE course_id = $1`
	if err := repo.db.SelectContext(ctx, &completions, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting completions")
	}

	enrollments := make([]course.Enrollment, 0, len(rows))
	index := make(map[int]int, len(rows))
	for i, row := range rows {
		index[row.UserID] = i
		enrollments = append(enrollments, course.Enrollment{
			UserID:     row.UserID,
			CourseID:   courseID,
			IsFavorite: row.IsFavorite,
			Completed:  make(map[int]time.Time),
		})
	}
	for _, c := range completions {
		if i, ok := index[c.UserID]; ok {
			enrollments[i].Completed[c.LessonID] = c.CompletedAt.UTC()
		}
	}
	return enrollments, nil
}
