package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/storage/database"
)

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func prepareDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB, "up", 0))
	_, err = db.Exec(`TRUNCATE activities, comments, lesson_completions, enrollments, lessons, courses, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, repo *userRepository, name, email, role string, points int) user.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	usr := user.User{
		Name:         name,
		Email:        email,
		Role:         role,
		Status:       user.StatusActive,
		StudentStats: user.StudentStats{Points: points},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, usr.SetPassword("123456"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(prepareDB(t))

	renato := createUser(t, repo, "Renato", "renato@edukanda.ao", user.RoleStudent, 1250)
	lucas := createUser(t, repo, "Lucas", "lucas@edukanda.ao", user.RoleStudent, 2850)
	teacher := createUser(t, repo, "Prof. João", "joao@edukanda.ao", user.RoleTeacher, 0)

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{Email: "RENATO@edukanda.ao"})
		require.NoError(t, err)
		assert.Equal(t, renato.ID, usr.ID)
		assert.NoError(t, usr.CheckPassword("123456"))

		_, err = repo.GetUser(ctx, user.GetFilter{ID: 999})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "Lucas@edukanda.ao"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "lucas@edukanda.ao", lucas))
	})

	t.Run("query", func(t *testing.T) {
		users, err := repo.QueryUsers(ctx, user.QueryFilter{Roles: []string{user.RoleStudent}},
			core.ParseOrdering("-points", user.OrderingFields...)...)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, lucas.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, user.QueryFilter{Search: "joão"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, teacher.ID, users[0].ID)
	})

	t.Run("update keeps password", func(t *testing.T) {
		renato.Bio = "Estudante"
		renato.PasswordHash = nil
		usr, err := repo.UpdateUser(ctx, renato)
		require.NoError(t, err)
		assert.Equal(t, "Estudante", usr.Bio)
		assert.NoError(t, usr.CheckPassword("123456"))
	})

	t.Run("stats and ranks", func(t *testing.T) {
		usr, err := repo.IncrementStats(ctx, renato.ID, user.StudentStats{Points: 10, CoursesInProgress: -1})
		require.NoError(t, err)
		assert.Equal(t, 1260, usr.Points)
		assert.Equal(t, 0, usr.CoursesInProgress)

		require.NoError(t, repo.SetRanks(ctx, map[int]int{lucas.ID: 1, renato.ID: 2}))
		entries, err := repo.RankingEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 2, entries[0].Rank)
		assert.Equal(t, 1, entries[1].Rank)
	})
}

func TestCourseRepository(t *testing.T) {
	ctx := context.Background()
	db := prepareDB(t)
	usrRepo := NewUserRepository(db)
	repo := NewCourseRepository(db)

	teacher := createUser(t, usrRepo, "Prof. João", "joao@edukanda.ao", user.RoleTeacher, 0)
	student := createUser(t, usrRepo, "Renato", "renato@edukanda.ao", user.RoleStudent, 0)

	now := time.Now().UTC()
	c, err := repo.CreateCourse(ctx, course.Course{
		Title:        "Python",
		Description:  "Fundamentos",
		Category:     "Programação",
		InstructorID: teacher.ID,
		Tags:         []string{"python", "iniciante"},
		Status:       course.StatusPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, "Prof. João", c.Instructor)
	assert.Equal(t, []string{"python", "iniciante"}, c.Tags)

	for _, title := range []string{"Introdução", "Variáveis"} {
		c, err = repo.AddLesson(ctx, c.ID, course.Lesson{
			Title:     title,
			Duration:  "10:00",
			Materials: []course.Material{{Title: "Slides", URL: "/slides.pdf", Type: "pdf"}},
		})
		require.NoError(t, err)
	}
	require.Len(t, c.Lessons, 2)
	assert.Equal(t, []int{1, 2}, []int{c.Lessons[0].ID, c.Lessons[1].ID})
	assert.Len(t, c.Lessons[0].Materials, 1)

	t.Run("favorite", func(t *testing.T) {
		fav, err := repo.ToggleFavorite(ctx, student.ID, c.ID)
		require.NoError(t, err)
		assert.True(t, fav.IsFavorite)
		fav, err = repo.ToggleFavorite(ctx, student.ID, c.ID)
		require.NoError(t, err)
		assert.False(t, fav.IsFavorite)
	})

	t.Run("complete", func(t *testing.T) {
		done, newly, err := repo.MarkLessonComplete(ctx, student.ID, c.ID, 1)
		require.NoError(t, err)
		assert.True(t, newly)
		assert.Equal(t, 50, done.Progress())
		assert.Equal(t, 1, done.StudentsCount)

		_, newly, err = repo.MarkLessonComplete(ctx, student.ID, c.ID, 1)
		require.NoError(t, err)
		assert.False(t, newly)

		_, _, err = repo.MarkLessonComplete(ctx, student.ID, c.ID, 999)
		assert.Equal(t, course.ErrLessonNotFound, err)
		_, _, err = repo.MarkLessonComplete(ctx, student.ID, 999, 1)
		assert.Equal(t, course.ErrNotFound, err)

		anon, err := repo.GetCourse(ctx, 0, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, anon.Progress())
	})

	t.Run("query", func(t *testing.T) {
		courses, err := repo.QueryCourses(ctx, student.ID, course.QueryFilter{Category: "programação"})
		require.NoError(t, err)
		assert.Empty(t, courses)

		courses, err = repo.QueryCourses(ctx, student.ID, course.QueryFilter{InProgress: true})
		require.NoError(t, err)
		assert.Len(t, courses, 1)
	})

	t.Run("update", func(t *testing.T) {
		c.Status = course.StatusDeleted
		updated, err := repo.UpdateCourse(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, course.StatusDeleted, updated.Status)
		assert.Len(t, updated.Lessons, 2)
	})

	t.Run("comments", func(t *testing.T) {
		comments := NewCommentRepository(db)
		lessonID := 1
		_, err := comments.AddComment(ctx, comment.Comment{UserID: student.ID, CourseID: c.ID, LessonID: &lessonID, Content: "Boa aula", Timestamp: now})
		require.NoError(t, err)
		_, err = comments.AddComment(ctx, comment.Comment{UserID: student.ID, CourseID: c.ID, Content: "Bom curso", Timestamp: now})
		require.NoError(t, err)

		missing := 9
		_, err = comments.AddComment(ctx, comment.Comment{UserID: student.ID, CourseID: c.ID, LessonID: &missing, Content: "?"})
		assert.Equal(t, course.ErrLessonNotFound, err)

		all, err := comments.QueryComments(ctx, comment.QueryFilter{CourseID: c.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Equal(t, "Renato", all[0].UserName)

		byLesson, err := comments.QueryComments(ctx, comment.QueryFilter{CourseID: c.ID, LessonID: &lessonID})
		require.NoError(t, err)
		assert.Len(t, byLesson, 1)
	})

	t.Run("enrollments", func(t *testing.T) {
		enrollments, err := repo.QueryEnrollments(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		assert.Equal(t, student.ID, enrollments[0].UserID)
		assert.False(t, enrollments[0].IsFavorite)
		assert.Contains(t, enrollments[0].Completed, 1)
		assert.Len(t, enrollments[0].Completed, 1)

		none, err := repo.QueryEnrollments(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("lessons", func(t *testing.T) {
		reordered, err := repo.ReorderLessons(ctx, c.ID, []int{2, 1})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, []int{reordered.Lessons[0].ID, reordered.Lessons[1].ID})
		assert.Equal(t, 1, reordered.Lessons[0].Order)

		_, err = repo.ReorderLessons(ctx, c.ID, []int{2, 9})
		assert.Equal(t, course.ErrLessonNotFound, err)

		l := reordered.Lessons[0]
		l.Title = "Tipos e variáveis"
		l.Materials = nil
		updated, err := repo.UpdateLesson(ctx, c.ID, l)
		require.NoError(t, err)
		assert.Equal(t, "Tipos e variáveis", updated.Lessons[0].Title)
		assert.Empty(t, updated.Lessons[0].Materials)
		assert.Equal(t, 1, updated.Lessons[0].Order)

		l.ID = 9
		_, err = repo.UpdateLesson(ctx, c.ID, l)
		assert.Equal(t, course.ErrLessonNotFound, err)

		deleted, err := repo.DeleteLesson(ctx, c.ID, 2)
		require.NoError(t, err)
		require.Len(t, deleted.Lessons, 1)
		assert.Equal(t, 1, deleted.Lessons[0].ID)
		assert.Equal(t, 1, deleted.Lessons[0].Order)

		_, err = repo.DeleteLesson(ctx, c.ID, 2)
		assert.Equal(t, course.ErrLessonNotFound, err)
	})
}

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(prepareDB(t))

	userID := 1
	for i, typ := range []moderation.ActivityType{moderation.ActivityUserRegistered, moderation.ActivityUserSuspended} {
		_, err := repo.AddActivity(ctx, moderation.Activity{
			Type:      typ,
			UserID:    &userID,
			UserName:  "Renato",
			Timestamp: time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	activities, err := repo.QueryActivities(ctx, 1)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, moderation.ActivityUserSuspended, activities[0].Type)
	assert.Equal(t, &userID, activities[0].UserID)
}
