package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/assets"
	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/user"
)

func seededDB(t *testing.T) *DB {
	db := Open(0)
	require.NoError(t, db.Seed(assets.FS, assets.FixturesDir))
	return db
}

func TestSeed(t *testing.T) {
	db := seededDB(t)

	assert.Len(t, db.user.table, 12)
	assert.Equal(t, 12, db.user.pk)
	assert.Len(t, db.course.table, 8)
	assert.Equal(t, 8, db.course.pk)
	assert.Len(t, db.comment.rows, 3)
	assert.Len(t, db.activity.rows, 2)

	usr := db.user.table[1]
	assert.NoError(t, usr.CheckPassword("123456"))

	c := db.course.table[1]
	assert.Equal(t, "Prof. João Silva", c.Instructor)
	for _, l := range c.Lessons {
		assert.False(t, l.Completed)
	}
}

func TestSeedMissingDir(t *testing.T) {
	db := Open(0)
	assert.Error(t, db.Seed(assets.FS, "nowhere"))
}

func TestLatency(t *testing.T) {
	db := seededDB(t)
	db.SetLatency(time.Hour)
	repo := NewCourseRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.GetCourse(ctx, 0, 1)
	assert.Equal(t, context.Canceled, err)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(seededDB(t))

	t.Run("email is case-insensitive", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{Email: "RENATO@edukanda.ao"})
		require.NoError(t, err)
		assert.Equal(t, 1, usr.ID)

		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "Renato@Edukanda.ao"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "renato@edukanda.ao", usr))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name      string
			filter    user.QueryFilter
			orderings string
			wantIDs   []int
		}{
			{"admins", user.QueryFilter{Roles: []string{user.RoleAdmin}}, "", []int{5}},
			{"suspended", user.QueryFilter{Statuses: []user.Status{user.StatusSuspended}}, "", []int{12}},
			{"search", user.QueryFilter{Search: "silva"}, "", []int{2, 4}},
			{"top students", user.QueryFilter{Roles: []string{user.RoleStudent}}, "-points,id", []int{9, 10, 11, 1, 2, 12}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tc.filter, core.ParseOrdering(tc.orderings, user.OrderingFields...)...)
				require.NoError(t, err)
				ids := make([]int, 0, len(users))
				for _, u := range users {
					ids = append(ids, u.ID)
				}
				assert.Equal(t, tc.wantIDs, ids)
			})
		}
	})

	t.Run("update keeps password", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: 2})
		require.NoError(t, err)
		usr.PasswordHash = nil
		usr.Bio = "Estudante"
		usr, err = repo.UpdateUser(ctx, usr)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("123456"))
	})

	t.Run("increment stats floors in progress", func(t *testing.T) {
		usr, err := repo.IncrementStats(ctx, 10, user.StudentStats{Points: 5, CoursesInProgress: -100})
		require.NoError(t, err)
		assert.Equal(t, 2645, usr.Points)
		assert.Equal(t, 0, usr.CoursesInProgress)
	})

	t.Run("ranking entries", func(t *testing.T) {
		entries, err := repo.RankingEntries(ctx)
		require.NoError(t, err)
		ids := make([]int, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []int{1, 2, 9, 10, 11}, ids)

		require.NoError(t, repo.SetRanks(ctx, map[int]int{1: 1, 999: 2}))
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, usr.Rank)
	})
}

func TestCourseRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("views are per user", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		mine, err := repo.GetCourse(ctx, 1, 1)
		require.NoError(t, err)
		assert.True(t, mine.IsFavorite)
		assert.Equal(t, 50, mine.Progress())

		anon, err := repo.GetCourse(ctx, 0, 1)
		require.NoError(t, err)
		assert.False(t, anon.IsFavorite)
		assert.Equal(t, 0, anon.Progress())
	})

	t.Run("returned courses are copies", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, err := repo.GetCourse(ctx, 0, 1)
		require.NoError(t, err)
		c.Lessons[0].Title = "changed"
		c.Tags[0] = "changed"

		c, err = repo.GetCourse(ctx, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, "Introdução ao Python", c.Lessons[0].Title)
		assert.Equal(t, "python", c.Tags[0])
	})

	t.Run("first completion counts the student", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, newly, err := repo.MarkLessonComplete(ctx, 11, 4, 1)
		require.NoError(t, err)
		assert.True(t, newly)
		assert.Equal(t, 433, c.StudentsCount)
		assert.Equal(t, 100, c.Progress())

		c, newly, err = repo.MarkLessonComplete(ctx, 11, 4, 1)
		require.NoError(t, err)
		assert.False(t, newly)
		assert.Equal(t, 433, c.StudentsCount)
	})

	t.Run("unknown lesson", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		_, _, err := repo.MarkLessonComplete(ctx, 1, 1, 999)
		assert.Equal(t, course.ErrLessonNotFound, err)
		_, _, err = repo.MarkLessonComplete(ctx, 1, 999, 1)
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("add lesson numbers after the last one", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, err := repo.AddLesson(ctx, 2, course.Lesson{Title: "Limites - Parte 2", Order: 3})
		require.NoError(t, err)
		require.Len(t, c.Lessons, 3)
		assert.Equal(t, 3, c.Lessons[2].ID)
		assert.NotNil(t, c.Lessons[2].Materials)

		c, err = repo.AddLesson(ctx, testDraftCourse, course.Lesson{Title: "A célula"})
		require.NoError(t, err)
		assert.Equal(t, 1, c.Lessons[0].ID)
	})

	t.Run("update keeps lessons", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, err := repo.GetCourse(ctx, 0, 1)
		require.NoError(t, err)
		c.Title = "Python"
		c.Lessons = nil
		c, err = repo.UpdateCourse(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, "Python", c.Title)
		assert.Len(t, c.Lessons, 4)
	})

	t.Run("concurrent completions", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		var wg sync.WaitGroup
		for lessonID := 1; lessonID <= 4; lessonID++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				_, _, _ = repo.MarkLessonComplete(ctx, 2, 1, id)
			}(lessonID)
		}
		wg.Wait()
		c, err := repo.GetCourse(ctx, 2, 1)
		require.NoError(t, err)
		assert.True(t, c.IsCompleted())
		assert.Equal(t, 1251, c.StudentsCount)
	})

	t.Run("enrollments", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		enrollments, err := repo.QueryEnrollments(ctx, 1)
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		assert.Equal(t, 1, enrollments[0].UserID)
		assert.True(t, enrollments[0].IsFavorite)
		assert.Len(t, enrollments[0].Completed, 2)

		enrollments[0].Completed[3] = time.Now()
		again, err := repo.QueryEnrollments(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, again[0].Completed, 2)
	})

	t.Run("edit lessons", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, err := repo.GetCourse(ctx, 0, 1)
		require.NoError(t, err)
		l := c.Lessons[1]
		l.Title = "Variáveis"
		l.Order = 9
		c, err = repo.UpdateLesson(ctx, 1, l)
		require.NoError(t, err)
		assert.Equal(t, "Variáveis", c.Lessons[1].Title)
		assert.Equal(t, 2, c.Lessons[1].Order)

		l.ID = 999
		_, err = repo.UpdateLesson(ctx, 1, l)
		assert.Equal(t, course.ErrLessonNotFound, err)

		c, err = repo.ReorderLessons(ctx, 1, []int{4, 3, 2, 1})
		require.NoError(t, err)
		assert.Equal(t, []int{4, 3, 2, 1}, []int{c.Lessons[0].ID, c.Lessons[1].ID, c.Lessons[2].ID, c.Lessons[3].ID})
		assert.Equal(t, []int{1, 2, 3, 4}, []int{c.Lessons[0].Order, c.Lessons[1].Order, c.Lessons[2].Order, c.Lessons[3].Order})
	})

	t.Run("delete lesson drops its completions", func(t *testing.T) {
		repo := NewCourseRepository(seededDB(t))
		c, err := repo.DeleteLesson(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, c.Lessons, 3)
		assert.Equal(t, []int{1, 3, 4}, []int{c.Lessons[0].ID, c.Lessons[1].ID, c.Lessons[2].ID})
		assert.Equal(t, []int{1, 2, 3}, []int{c.Lessons[0].Order, c.Lessons[1].Order, c.Lessons[2].Order})

		mine, err := repo.GetCourse(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, mine.CompletedLessons())

		_, err = repo.DeleteLesson(ctx, 1, 2)
		assert.Equal(t, course.ErrLessonNotFound, err)
		_, err = repo.DeleteLesson(ctx, 999, 1)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(seededDB(t))

	a, err := repo.AddActivity(ctx, moderation.Activity{
		Type:      moderation.ActivityUserRegistered,
		UserName:  "Nova",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, a.ID)

	activities, err := repo.QueryActivities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, 3, activities[0].ID)
	assert.Equal(t, 2, activities[1].ID)
}

const testDraftCourse = 8
