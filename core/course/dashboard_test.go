package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/tests"
)

func TestTeacherStats(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		actorID   int
		teacherID int
		want      user.TeacherStats
		wantErr   error
	}{
		{"own stats", testutil.TeacherID, testutil.TeacherID,
			user.TeacherStats{TotalCourses: 2, TotalStudents: 2817, TotalRevenue: 7051500, AverageRating: 4.85}, nil},
		{"unrated pending course is counted", testutil.Teacher2ID, testutil.Teacher2ID,
			user.TeacherStats{TotalCourses: 2, TotalStudents: 654, AverageRating: 4.7}, nil},
		{"admin sees any teacher", testutil.AdminID, testutil.TeacherID,
			user.TeacherStats{TotalCourses: 2, TotalStudents: 2817, TotalRevenue: 7051500, AverageRating: 4.85}, nil},
		{"other teacher", testutil.Teacher2ID, testutil.TeacherID, user.TeacherStats{}, core.ErrForbidden},
		{"student", testutil.StudentID, testutil.StudentID, user.TeacherStats{}, core.ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			stats, err := s.Dashboard.TeacherStats(ctx, s.GetUser(t, tc.actorID), tc.teacherID)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.TotalCourses, stats.TotalCourses)
			assert.Equal(t, tc.want.TotalStudents, stats.TotalStudents)
			assert.InDelta(t, tc.want.TotalRevenue, stats.TotalRevenue, 0.001)
			assert.InDelta(t, tc.want.AverageRating, stats.AverageRating, 0.001)
		})
	}

	t.Run("deleted courses are not counted", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.SetStatus(ctx, 6, course.StatusDeleted, "")
		require.NoError(t, err)
		stats, err := s.Dashboard.TeacherStats(ctx, s.GetUser(t, testutil.TeacherID), testutil.TeacherID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalCourses)
		assert.Equal(t, 1250, stats.TotalStudents)
		assert.Zero(t, stats.TotalRevenue)
	})

	t.Run("completions add students", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.MarkLessonComplete(ctx, s.GetUser(t, testutil.Student2ID), 6, 1)
		require.NoError(t, err)
		stats, err := s.Dashboard.TeacherStats(ctx, s.GetUser(t, testutil.TeacherID), testutil.TeacherID)
		require.NoError(t, err)
		assert.Equal(t, 2818, stats.TotalStudents)
		assert.InDelta(t, 7056000, stats.TotalRevenue, 0.001)
	})
}

func TestStudents(t *testing.T) {
	ctx := context.Background()

	t.Run("progress per student", func(t *testing.T) {
		s := testutil.NewServices(t)
		teacher := s.GetUser(t, testutil.TeacherID)
		for _, lessonID := range []int{1, 2, 3, 4} {
			_, err := s.Courses.MarkLessonComplete(ctx, s.GetUser(t, testutil.Student2ID), 1, lessonID)
			require.NoError(t, err)
		}

		students, err := s.Dashboard.Students(ctx, teacher, 1)
		require.NoError(t, err)
		require.Len(t, students, 2)

		assert.Equal(t, testutil.Student2ID, students[0].UserID)
		assert.Equal(t, "Ana Silva", students[0].Name)
		assert.Equal(t, 100, students[0].Progress)
		assert.True(t, students[0].Completed)

		assert.Equal(t, testutil.StudentID, students[1].UserID)
		assert.Equal(t, 2, students[1].CompletedLessons)
		assert.Equal(t, 4, students[1].LessonsCount)
		assert.Equal(t, 50, students[1].Progress)
		assert.False(t, students[1].Completed)
		require.NotNil(t, students[1].LastActivity)
		assert.Equal(t, time.Date(2024, 2, 12, 18, 30, 0, 0, time.UTC), students[1].LastActivity.UTC())
	})

	t.Run("favorites alone are not students", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.ToggleFavorite(ctx, s.GetUser(t, testutil.Student2ID), 6)
		require.NoError(t, err)
		students, err := s.Dashboard.Students(ctx, s.GetUser(t, testutil.TeacherID), 6)
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	t.Run("deleted lessons are not counted", func(t *testing.T) {
		s := testutil.NewServices(t)
		teacher := s.GetUser(t, testutil.Teacher2ID)
		_, err := s.Courses.DeleteLesson(ctx, teacher, 3, 1)
		require.NoError(t, err)
		students, err := s.Dashboard.Students(ctx, teacher, 3)
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	t.Run("permissions", func(t *testing.T) {
		tests := []struct {
			name     string
			actorID  int
			courseID int
			wantErr  error
		}{
			{"admin", testutil.AdminID, 1, nil},
			{"other teacher", testutil.Teacher2ID, 1, core.ErrForbidden},
			{"student", testutil.StudentID, 1, core.ErrForbidden},
			{"draft of its teacher", 6, testutil.DraftCourse, nil},
			{"unknown course", testutil.TeacherID, 999, course.ErrNotFound},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				s := testutil.NewServices(t)
				actor := s.GetUser(t, tc.actorID)
				_, err := s.Dashboard.Students(ctx, actor, tc.courseID)
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				_, err = s.Dashboard.Analytics(ctx, actor, tc.courseID)
				assert.Equal(t, tc.wantErr, errors.Cause(err))
			})
		}
	})
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewServices(t)
	teacher := s.GetUser(t, testutil.TeacherID)

	a, err := s.Dashboard.Analytics(ctx, teacher, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.CourseID)
	assert.Equal(t, course.StatusPublished, a.Status)
	assert.Equal(t, 1250, a.StudentsCount)
	assert.Equal(t, 1, a.ActiveStudents)
	assert.Equal(t, 0, a.Completions)
	assert.Equal(t, 0, a.CompletionRate)
	assert.Equal(t, 50, a.AverageProgress)
	assert.Equal(t, 1, a.Favorites)
	require.Len(t, a.Lessons, 4)
	assert.Equal(t, []int{1, 1, 0, 0}, []int{
		a.Lessons[0].Completions, a.Lessons[1].Completions, a.Lessons[2].Completions, a.Lessons[3].Completions,
	})

	student2 := s.GetUser(t, testutil.Student2ID)
	for _, lessonID := range []int{1, 2, 3, 4} {
		_, err := s.Courses.MarkLessonComplete(ctx, student2, 1, lessonID)
		require.NoError(t, err)
	}
	a, err = s.Dashboard.Analytics(ctx, teacher, 1)
	require.NoError(t, err)
	assert.Equal(t, 1251, a.StudentsCount)
	assert.Equal(t, 2, a.ActiveStudents)
	assert.Equal(t, 1, a.Completions)
	assert.Equal(t, 50, a.CompletionRate)
	assert.Equal(t, 75, a.AverageProgress)
	assert.Equal(t, []int{2, 2, 1, 1}, []int{
		a.Lessons[0].Completions, a.Lessons[1].Completions, a.Lessons[2].Completions, a.Lessons[3].Completions,
	})

	empty, err := s.Dashboard.Analytics(ctx, s.GetUser(t, 6), testutil.DraftCourse)
	require.NoError(t, err)
	assert.Zero(t, empty.ActiveStudents)
	assert.Zero(t, empty.AverageProgress)
	assert.Empty(t, empty.Lessons)
}
