package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/tests"
)

func courseIDs(courses []course.Course) []int {
	ids := make([]int, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestList(t *testing.T) {
	s := testutil.NewServices(t)
	student := s.GetUser(t, testutil.StudentID)
	teacher2 := s.GetUser(t, testutil.Teacher2ID)
	admin := s.GetUser(t, testutil.AdminID)
	unpublished := []course.Status{course.StatusPending, course.StatusDraft}

	tests := []struct {
		name    string
		viewer  user.User
		filter  course.QueryFilter
		wantIDs []int
	}{
		{"published catalog", user.User{}, course.QueryFilter{}, []int{1, 2, 3, 4, 5, 6}},
		{"all categories", user.User{}, course.QueryFilter{Category: course.CategoryAll}, []int{1, 2, 3, 4, 5, 6}},
		{"category", user.User{}, course.QueryFilter{Category: "Programação"}, []int{1, 6}},
		{"category is case-sensitive", user.User{}, course.QueryFilter{Category: "programação"}, []int{}},
		{"search title", user.User{}, course.QueryFilter{Search: " PYTHON "}, []int{1}},
		{"search instructor", user.User{}, course.QueryFilter{Search: "joão silva"}, []int{1, 6}},
		{"favorites", student, course.QueryFilter{Favorite: true}, []int{1, 3}},
		{"favorites of anonymous", user.User{}, course.QueryFilter{Favorite: true}, []int{}},
		{"in progress", student, course.QueryFilter{InProgress: true}, []int{1, 3}},
		{"statuses as admin", admin, course.QueryFilter{Statuses: unpublished}, []int{7, 8}},
		{"statuses as student", student, course.QueryFilter{Statuses: unpublished}, []int{1, 2, 3, 4, 5, 6}},
		{"own statuses as teacher", teacher2, course.QueryFilter{InstructorID: testutil.Teacher2ID, Statuses: unpublished}, []int{7}},
		{"statuses of another teacher", teacher2, course.QueryFilter{InstructorID: testutil.TeacherID, Statuses: unpublished}, []int{1, 6}},
		{"instructor", user.User{}, course.QueryFilter{InstructorID: testutil.Teacher2ID}, []int{3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			courses, err := s.Courses.List(context.Background(), tc.viewer, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.wantIDs, courseIDs(courses))
		})
	}
}

func TestGetAndFind(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	student := s.GetUser(t, testutil.StudentID)

	c, err := s.Courses.Get(ctx, student, 1)
	require.NoError(t, err)
	assert.Equal(t, "Prof. João Silva", c.Instructor)
	assert.Equal(t, 50, c.Progress())
	assert.True(t, c.IsFavorite)

	anon, err := s.Courses.Get(ctx, user.User{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, anon.Progress())
	assert.False(t, anon.IsFavorite)

	_, err = s.Courses.Get(ctx, user.User{}, 999)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))

	_, ok, err := s.Courses.Find(ctx, user.User{}, 999)
	assert.NoError(t, err)
	assert.False(t, ok)

	c, ok, err = s.Courses.Find(ctx, user.User{}, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, c.ID)

	_, ok, err = s.Courses.Find(ctx, student, testutil.DraftCourse)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		name     string
		viewerID int
		courseID int
		visible  bool
	}{
		{"student on draft", testutil.StudentID, testutil.DraftCourse, false},
		{"student on pending", testutil.StudentID, testutil.PendingCourse, false},
		{"other teacher on draft", testutil.TeacherID, testutil.DraftCourse, false},
		{"owner on pending", testutil.Teacher2ID, testutil.PendingCourse, true},
		{"admin on draft", testutil.AdminID, testutil.DraftCourse, true},
		{"student on published", testutil.StudentID, 2, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			c, err := s.Courses.Get(context.Background(), s.GetUser(t, tc.viewerID), tc.courseID)
			if !tc.visible {
				assert.Equal(t, course.ErrNotFound, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.courseID, c.ID)
		})
	}

	t.Run("deleted is hidden from admins", func(t *testing.T) {
		s := testutil.NewServices(t)
		ctx := context.Background()
		_, err := s.Courses.SetStatus(ctx, 2, course.StatusDeleted, "")
		require.NoError(t, err)
		_, err = s.Courses.Get(ctx, s.GetUser(t, testutil.AdminID), 2)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})
}

func TestCanView(t *testing.T) {
	owner := user.User{ID: 6, Role: user.RoleTeacher, Status: user.StatusActive}
	admin := user.User{ID: 5, Role: user.RoleAdmin, Status: user.StatusActive}
	student := user.User{ID: 1, Role: user.RoleStudent, Status: user.StatusActive}
	tests := []struct {
		name   string
		viewer user.User
		status course.Status
		want   bool
	}{
		{"published to anonymous", user.User{}, course.StatusPublished, true},
		{"draft to student", student, course.StatusDraft, false},
		{"rejected to owner", owner, course.StatusRejected, true},
		{"pending to admin", admin, course.StatusPending, true},
		{"deleted to owner", owner, course.StatusDeleted, false},
		{"deleted to admin", admin, course.StatusDeleted, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := course.Course{ID: 8, InstructorID: 6, Status: tc.status}
			assert.Equal(t, tc.want, course.CanView(tc.viewer, c))
		})
	}
}

func TestToggleFavoriteIsItsOwnInverse(t *testing.T) {
	tests := []struct {
		name     string
		userID   int
		courseID int
		start    bool
	}{
		{"favorite", testutil.StudentID, 1, true},
		{"not favorite", testutil.StudentID, 2, false},
		{"no enrollment", testutil.Student2ID, 5, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			ctx := context.Background()
			viewer := s.GetUser(t, tc.userID)

			c, err := s.Courses.ToggleFavorite(ctx, viewer, tc.courseID)
			require.NoError(t, err)
			assert.Equal(t, !tc.start, c.IsFavorite)

			c, err = s.Courses.ToggleFavorite(ctx, viewer, tc.courseID)
			require.NoError(t, err)
			assert.Equal(t, tc.start, c.IsFavorite)
		})
	}

	t.Run("unknown course", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.ToggleFavorite(context.Background(), s.GetUser(t, testutil.StudentID), 999)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("draft", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.ToggleFavorite(context.Background(), s.GetUser(t, testutil.StudentID), testutil.DraftCourse)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})
}

func TestMarkLessonComplete(t *testing.T) {
	tests := []struct {
		name         string
		courseID     int
		lessonID     int
		wantProgress int
		wantPoints   int
		wantErr      error
	}{
		{"next lesson", 1, 3, 75, 1260, nil},
		{"already completed", 1, 1, 50, 1250, nil},
		{"unknown lesson", 1, 999, 50, 1250, nil},
		{"last lesson", 3, 2, 100, 1360, nil},
		{"first lesson of a course", 2, 1, 50, 1260, nil},
		{"unknown course", 999, 1, 0, 1250, course.ErrNotFound},
		{"pending course", testutil.PendingCourse, 1, 0, 1250, course.ErrNotFound},
		{"draft course", testutil.DraftCourse, 1, 0, 1250, course.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			c, err := s.Courses.MarkLessonComplete(context.Background(), s.GetUser(t, testutil.StudentID), tc.courseID, tc.lessonID)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantProgress, c.Progress())
				expected := 0
				if len(c.Lessons) > 0 {
					expected = int(100*float64(c.CompletedLessons())/float64(len(c.Lessons)) + 0.5)
				}
				assert.Equal(t, expected, c.Progress())
			}
			assert.Equal(t, tc.wantPoints, s.GetUser(t, testutil.StudentID).Points)
		})
	}
}

func TestMarkLessonCompleteOnUnpublishedCourses(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		s := testutil.NewServices(t)
		ctx := context.Background()
		_, err := s.Courses.SetStatus(ctx, 2, course.StatusDeleted, "")
		require.NoError(t, err)

		_, err = s.Courses.MarkLessonComplete(ctx, s.GetUser(t, testutil.StudentID), 2, 1)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
		assert.Equal(t, 1250, s.GetUser(t, testutil.StudentID).Points)
	})

	t.Run("own pending course", func(t *testing.T) {
		s := testutil.NewServices(t)
		ctx := context.Background()
		owner := s.GetUser(t, testutil.Teacher2ID)
		_, err := s.Courses.MarkLessonComplete(ctx, owner, testutil.PendingCourse, 1)
		assert.Equal(t, core.ErrInvalidTransition, errors.Cause(err))

		c, err := s.Courses.Get(ctx, owner, testutil.PendingCourse)
		require.NoError(t, err)
		assert.Equal(t, 0, c.CompletedLessons())
	})
}

func TestMarkLessonCompleteIsIdempotent(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	student := s.GetUser(t, testutil.StudentID)

	first, err := s.Courses.MarkLessonComplete(ctx, student, 1, 3)
	require.NoError(t, err)
	second, err := s.Courses.MarkLessonComplete(ctx, student, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, first.Progress(), second.Progress())
	l1, _ := first.Lesson(3)
	l2, _ := second.Lesson(3)
	assert.Equal(t, l1.CompletedAt, l2.CompletedAt)
	assert.Equal(t, 1260, s.GetUser(t, testutil.StudentID).Points)
}

func TestAuthoring(t *testing.T) {
	ctx := context.Background()
	newCourse := course.NewCourse{
		Title:       "Álgebra Linear",
		Description: "Vetores, matrizes e transformações lineares.",
		Category:    "Matemática",
		Level:       "Intermediate",
		Tags:        []string{" Algebra ", ""},
	}

	t.Run("create", func(t *testing.T) {
		s := testutil.NewServices(t)
		teacher := s.GetUser(t, testutil.TeacherID)
		c, err := s.Courses.Create(ctx, teacher, newCourse)
		require.NoError(t, err)
		assert.Equal(t, course.StatusDraft, c.Status)
		assert.Equal(t, teacher.ID, c.InstructorID)
		assert.Equal(t, teacher.Name, c.Instructor)
		assert.Equal(t, "intermediate", c.Level)
		assert.Equal(t, []string{"algebra"}, c.Tags)
		assert.Empty(t, c.Lessons)
	})

	t.Run("create forbidden to students", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.Create(ctx, s.GetUser(t, testutil.StudentID), newCourse)
		assert.Equal(t, core.ErrForbidden, err)
	})

	t.Run("create invalid", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.Create(ctx, s.GetUser(t, testutil.TeacherID), course.NewCourse{Title: "Al", Category: "Culinária"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldMap(), "title")
		assert.Contains(t, vErr.FieldMap(), "category")
		assert.Contains(t, vErr.FieldMap(), "description")
	})

	t.Run("update", func(t *testing.T) {
		tests := []struct {
			name    string
			actorID int
			wantErr error
		}{
			{"owner", testutil.TeacherID, nil},
			{"admin", testutil.AdminID, nil},
			{"other teacher", testutil.Teacher2ID, core.ErrForbidden},
			{"student", testutil.StudentID, core.ErrForbidden},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				s := testutil.NewServices(t)
				title := "Python para Todos"
				c, err := s.Courses.Update(ctx, s.GetUser(t, tc.actorID), 1, course.UpdateCourse{Title: &title})
				if tc.wantErr != nil {
					assert.Equal(t, tc.wantErr, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, title, c.Title)
				assert.Len(t, c.Lessons, 4)
			})
		}
	})

	t.Run("add lesson", func(t *testing.T) {
		s := testutil.NewServices(t)
		c, err := s.Courses.AddLesson(ctx, s.GetUser(t, testutil.TeacherID), 1, course.NewLesson{
			Title:     "Funções",
			Duration:  "1:05:30",
			VideoURL:  "https://example.com/video5",
			Materials: []course.Material{{Title: "Slides", URL: "/materials/functions.pdf", Type: "pdf"}},
		})
		require.NoError(t, err)
		require.Len(t, c.Lessons, 5)
		assert.Equal(t, 5, c.Lessons[4].ID)
		assert.Equal(t, 5, c.Lessons[4].Order)

		progress, err := s.Courses.Get(ctx, s.GetUser(t, testutil.StudentID), 1)
		require.NoError(t, err)
		assert.Equal(t, 40, progress.Progress())
	})

	t.Run("add invalid lesson", func(t *testing.T) {
		s := testutil.NewServices(t)
		_, err := s.Courses.AddLesson(ctx, s.GetUser(t, testutil.TeacherID), 1, course.NewLesson{
			Title: "Funções", Duration: "90", VideoURL: "not a url",
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldMap(), "duration")
		assert.Contains(t, vErr.FieldMap(), "videoUrl")
	})
}

func lessonIDs(c course.Course) []int {
	ids := make([]int, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestLessonEditing(t *testing.T) {
	ctx := context.Background()

	t.Run("update", func(t *testing.T) {
		s := testutil.NewServices(t)
		title, duration := "  Variáveis e tipos ", "20:00"
		c, err := s.Courses.UpdateLesson(ctx, s.GetUser(t, testutil.TeacherID), 1, 2, course.UpdateLesson{
			Title:     &title,
			Duration:  &duration,
			Materials: []course.Material{},
		})
		require.NoError(t, err)
		l, ok := c.Lesson(2)
		require.True(t, ok)
		assert.Equal(t, "Variáveis e tipos", l.Title)
		assert.Equal(t, "20:00", l.Duration)
		assert.Empty(t, l.Materials)
		assert.Equal(t, 2, l.Order)

		mine, err := s.Courses.Get(ctx, s.GetUser(t, testutil.StudentID), 1)
		require.NoError(t, err)
		assert.Equal(t, 50, mine.Progress())
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		s := testutil.NewServices(t)
		before, err := s.Courses.Get(ctx, user.User{}, 1)
		require.NoError(t, err)
		free := false
		c, err := s.Courses.UpdateLesson(ctx, s.GetUser(t, testutil.AdminID), 1, 1, course.UpdateLesson{IsFree: &free})
		require.NoError(t, err)
		assert.False(t, c.Lessons[0].IsFree)
		assert.Equal(t, before.Lessons[0].Title, c.Lessons[0].Title)
		assert.Equal(t, before.Lessons[0].Materials, c.Lessons[0].Materials)
	})

	t.Run("update invalid", func(t *testing.T) {
		s := testutil.NewServices(t)
		duration, url := "90", "not a url"
		_, err := s.Courses.UpdateLesson(ctx, s.GetUser(t, testutil.TeacherID), 1, 1, course.UpdateLesson{
			Duration: &duration, VideoURL: &url,
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldMap(), "duration")
		assert.Contains(t, vErr.FieldMap(), "videoUrl")
	})

	t.Run("permissions", func(t *testing.T) {
		title := "Outra aula"
		tests := []struct {
			name     string
			actorID  int
			courseID int
			lessonID int
			wantErr  error
		}{
			{"other teacher", testutil.Teacher2ID, 1, 1, core.ErrForbidden},
			{"student", testutil.StudentID, 1, 1, core.ErrForbidden},
			{"unknown course", testutil.TeacherID, 999, 1, course.ErrNotFound},
			{"unknown lesson", testutil.TeacherID, 1, 999, course.ErrLessonNotFound},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				s := testutil.NewServices(t)
				actor := s.GetUser(t, tc.actorID)
				_, err := s.Courses.UpdateLesson(ctx, actor, tc.courseID, tc.lessonID, course.UpdateLesson{Title: &title})
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				_, err = s.Courses.DeleteLesson(ctx, actor, tc.courseID, tc.lessonID)
				assert.Equal(t, tc.wantErr, errors.Cause(err))
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := testutil.NewServices(t)
		c, err := s.Courses.DeleteLesson(ctx, s.GetUser(t, testutil.TeacherID), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 4}, lessonIDs(c))
		assert.Equal(t, 3, c.Lessons[2].Order)

		mine, err := s.Courses.Get(ctx, s.GetUser(t, testutil.StudentID), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, mine.CompletedLessons())
		assert.Equal(t, 33, mine.Progress())
	})

	t.Run("reorder", func(t *testing.T) {
		tests := []struct {
			name    string
			ids     []int
			wantErr bool
		}{
			{"permutation", []int{4, 1, 3, 2}, false},
			{"missing lesson", []int{4, 1, 3}, true},
			{"unknown lesson", []int{4, 1, 3, 9}, true},
			{"duplicate", []int{4, 1, 1, 2}, true},
			{"empty", nil, true},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				s := testutil.NewServices(t)
				c, err := s.Courses.ReorderLessons(ctx, s.GetUser(t, testutil.TeacherID), 1, course.LessonOrder{LessonIDs: tc.ids})
				if tc.wantErr {
					var vErr *core.ValidationError
					require.True(t, errors.As(err, &vErr), "%v", err)
					assert.Contains(t, vErr.FieldMap(), "lessonIds")
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.ids, lessonIDs(c))
				for i, l := range c.Lessons {
					assert.Equal(t, i+1, l.Order)
				}
			})
		}
	})
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		status  course.Status
		reason  string
		wantErr error
	}{
		{"submit draft", testutil.DraftCourse, course.StatusPending, "", nil},
		{"approve", testutil.PendingCourse, course.StatusPublished, "", nil},
		{"reject", testutil.PendingCourse, course.StatusRejected, " Falta conteúdo ", nil},
		{"delete published", 1, course.StatusDeleted, "", nil},
		{"publish draft", testutil.DraftCourse, course.StatusPublished, "", core.ErrInvalidTransition},
		{"resubmit published", 1, course.StatusPending, "", core.ErrInvalidTransition},
		{"unknown", 999, course.StatusPending, "", course.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			c, err := s.Courses.SetStatus(context.Background(), tc.id, tc.status, tc.reason)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, c.Status)
			if tc.status == course.StatusRejected {
				assert.Equal(t, "Falta conteúdo", c.RejectionReason)
			}
		})
	}

	t.Run("deleted courses are hidden", func(t *testing.T) {
		s := testutil.NewServices(t)
		ctx := context.Background()
		_, err := s.Courses.SetStatus(ctx, 1, course.StatusDeleted, "")
		require.NoError(t, err)
		_, err = s.Courses.Get(ctx, user.User{}, 1)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestSetFeatured(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()

	c, err := s.Courses.SetFeatured(ctx, 2, true)
	require.NoError(t, err)
	assert.True(t, c.IsFeatured)

	_, err = s.Courses.SetFeatured(ctx, testutil.DraftCourse, true)
	assert.Equal(t, core.ErrInvalidTransition, errors.Cause(err))
}

func TestCanSubmit(t *testing.T) {
	draft := course.Course{ID: 8, InstructorID: 6, Status: course.StatusDraft}
	tests := []struct {
		name  string
		actor user.User
		want  bool
	}{
		{"owner", user.User{ID: 6, Role: user.RoleTeacher, Status: user.StatusActive}, true},
		{"admin", user.User{ID: 5, Role: user.RoleAdmin, Status: user.StatusActive}, true},
		{"suspended owner", user.User{ID: 6, Role: user.RoleTeacher, Status: user.StatusSuspended}, false},
		{"other teacher", user.User{ID: 3, Role: user.RoleTeacher, Status: user.StatusActive}, false},
		{"student", user.User{ID: 1, Role: user.RoleStudent, Status: user.StatusActive}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, course.CanSubmit(tc.actor, draft))
		})
	}
}
