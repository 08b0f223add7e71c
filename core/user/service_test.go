package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/tests"
)

func countUsers(t *testing.T, svc *user.Service) int {
	users, err := svc.Query(context.Background(), user.QueryFilter{})
	require.NoError(t, err)
	return len(users)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		data       user.NewUser
		wantFields map[string]string
		wantRole   string
	}{
		{
			name:     "student by default",
			data:     user.NewUser{Name: "Nova Aluna", Email: " Nova@EduKanda.ao ", Password: "Kz#2024lu", PasswordConfirm: "Kz#2024lu"},
			wantRole: user.RoleStudent,
		},
		{
			name:     "teacher",
			data:     user.NewUser{Name: "Prof. Nova", Email: "prof.nova@edukanda.ao", Password: "Kz#2024lu", Role: "teacher"},
			wantRole: user.RoleTeacher,
		},
		{
			name:       "short password",
			data:       user.NewUser{Name: "Nova Aluna", Email: "nova@edukanda.ao", Password: "12345"},
			wantFields: map[string]string{"password": "password must contain at least 6 characters"},
		},
		{
			name:       "password similar to name",
			data:       user.NewUser{Name: "Nova Aluna", Email: "nova@edukanda.ao", Password: "novaaluna"},
			wantFields: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name:       "password mismatch",
			data:       user.NewUser{Name: "Nova Aluna", Email: "nova@edukanda.ao", Password: "Kz#2024lu", PasswordConfirm: "Kz#2024la"},
			wantFields: map[string]string{"passwordConfirm": "passwordConfirm must be equal to Password"},
		},
		{
			name:       "missing fields",
			data:       user.NewUser{},
			wantFields: map[string]string{"name": "this field is required", "email": "this field is required", "password": "this field is required"},
		},
		{
			name:       "short name and bad email",
			data:       user.NewUser{Name: "Jo", Email: "jo.edukanda.ao", Password: "Kz#2024lu"},
			wantFields: map[string]string{"name": "name must be at least 3 characters in length", "email": "email must be a valid email address"},
		},
		{
			name:       "admin role",
			data:       user.NewUser{Name: "Nova Aluna", Email: "nova@edukanda.ao", Password: "Kz#2024lu", Role: "admin"},
			wantFields: map[string]string{"role": "role must be one of student or teacher"},
		},
		{
			name:       "email taken",
			data:       user.NewUser{Name: "Outro Renato", Email: testutil.StudentEmail, Password: "Kz#2024lu"},
			wantFields: map[string]string{"email": user.ErrEmailExists.Error()},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			before := countUsers(t, s.Users)

			usr, err := s.Users.Register(context.Background(), tc.data)
			if tc.wantFields != nil {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "err = %v", err)
				assert.Equal(t, tc.wantFields, vErr.FieldMap())
				assert.Equal(t, before, countUsers(t, s.Users))
				assert.Empty(t, s.Mail.SentMessages())
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, usr.ID)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tc.data.Email)), usr.Email)
			assert.Equal(t, tc.wantRole, usr.Role)
			assert.Equal(t, user.StatusActive, usr.Status)
			assert.NoError(t, usr.CheckPassword(tc.data.Password))
			assert.Equal(t, before+1, countUsers(t, s.Users))
			require.Len(t, s.Mail.SentMessages(), 1)
			assert.Equal(t, "welcome", s.Mail.SentMessages()[0].TemplateName)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{"valid", testutil.StudentEmail, testutil.FixturePwd, nil},
		{"case insensitive email", "  RENATO@edukanda.ao", testutil.FixturePwd, nil},
		{"wrong password", testutil.StudentEmail, "654321", user.ErrInvalidCredentials},
		{"unknown email", "nobody@edukanda.ao", testutil.FixturePwd, user.ErrInvalidCredentials},
		{"empty email", "", testutil.FixturePwd, user.ErrInvalidCredentials},
		{"suspended", "juliana@edukanda.ao", testutil.FixturePwd, user.ErrAccountSuspended},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			usr, err := s.Users.Authenticate(context.Background(), tc.email, tc.pwd)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testutil.StudentID, usr.ID)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	_, err := s.Users.SetStatus(ctx, testutil.Student2ID, user.StatusDeleted)
	require.NoError(t, err)

	_, err = s.Users.Authenticate(ctx, "ana@edukanda.ao", testutil.FixturePwd)
	assert.Equal(t, user.ErrInvalidCredentials, err)
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name       string
		id         int
		data       user.UpdateUser
		wantName   string
		wantEmail  string
		wantFields map[string]string
		wantErr    error
	}{
		{
			name:      "name only",
			id:        testutil.StudentID,
			data:      user.UpdateUser{Name: " Renato Kanda "},
			wantName:  "Renato Kanda",
			wantEmail: testutil.StudentEmail,
		},
		{
			name:      "email",
			id:        testutil.StudentID,
			data:      user.UpdateUser{Email: "renato.k@edukanda.ao"},
			wantName:  "Renato",
			wantEmail: "renato.k@edukanda.ao",
		},
		{
			name:       "email taken",
			id:         testutil.StudentID,
			data:       user.UpdateUser{Email: "ana@edukanda.ao"},
			wantFields: map[string]string{"email": user.ErrEmailExists.Error()},
		},
		{
			name:       "password without confirmation",
			id:         testutil.StudentID,
			data:       user.UpdateUser{Password: "Kz#2024lu"},
			wantFields: map[string]string{"passwordConfirm": "this field is required"},
		},
		{
			name:    "unknown user",
			id:      999,
			data:    user.UpdateUser{Name: "Ghost"},
			wantErr: user.ErrNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			usr, err := s.Users.Update(context.Background(), tc.id, tc.data)
			switch {
			case tc.wantErr != nil:
				assert.Equal(t, tc.wantErr, errors.Cause(err))
			case tc.wantFields != nil:
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "err = %v", err)
				assert.Equal(t, tc.wantFields, vErr.FieldMap())
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.wantName, usr.Name)
				assert.Equal(t, tc.wantEmail, usr.Email)
				assert.NoError(t, usr.CheckPassword(testutil.FixturePwd))
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		status  user.Status
		wantErr error
	}{
		{"suspend", testutil.StudentID, user.StatusSuspended, nil},
		{"reactivate", testutil.SuspendedID, user.StatusActive, nil},
		{"delete suspended", testutil.SuspendedID, user.StatusDeleted, nil},
		{"already active", testutil.StudentID, user.StatusActive, core.ErrInvalidTransition},
		{"unknown", 999, user.StatusSuspended, user.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			usr, err := s.Users.SetStatus(context.Background(), tc.id, tc.status)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, usr.Status)
		})
	}
}

func TestPasswordReset(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()

	require.NoError(t, s.Users.RequestPasswordReset(ctx, testutil.StudentEmail))
	assert.Equal(t, user.ErrNotFound, s.Users.RequestPasswordReset(ctx, "juliana@edukanda.ao"))
	assert.Equal(t, user.ErrNotFound, errors.Cause(s.Users.RequestPasswordReset(ctx, "nobody@edukanda.ao")))

	sent := s.Mail.SentMessages()
	require.Len(t, sent, 1)
	data := sent[0].TemplateData.(map[string]string)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, data["Token"])

	t.Run("invalid token", func(t *testing.T) {
		_, err := s.Users.ResetPassword(ctx, user.ResetUserPassword{
			UID: data["UID"], Token: "bad-token", Password: "Kz#2024lu", PasswordConfirm: "Kz#2024lu",
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldMap(), "token")
	})

	t.Run("invalid uid", func(t *testing.T) {
		_, err := s.Users.ResetPassword(ctx, user.ResetUserPassword{
			UID: "zzz", Token: data["Token"], Password: "Kz#2024lu", PasswordConfirm: "Kz#2024lu",
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldMap(), "token")
	})

	t.Run("valid", func(t *testing.T) {
		usr, err := s.Users.ResetPassword(ctx, user.ResetUserPassword{
			UID: data["UID"], Token: data["Token"], Password: "Kz#2024lu", PasswordConfirm: "Kz#2024lu",
		})
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("Kz#2024lu"))
	})
}

func TestRewardLessonCompletion(t *testing.T) {
	tests := []struct {
		name            string
		firstLesson     bool
		courseCompleted bool
		wantStats       user.StudentStats
	}{
		{"plain lesson", false, false, user.StudentStats{Points: 1260, Rank: 4, CoursesInProgress: 2}},
		{"first lesson", true, false, user.StudentStats{Points: 1260, Rank: 4, CoursesInProgress: 3}},
		{"last lesson", false, true, user.StudentStats{Points: 1360, Rank: 4, CoursesCompleted: 1, CoursesInProgress: 1, Certificates: 1}},
		{"single lesson course", true, true, user.StudentStats{Points: 1360, Rank: 4, CoursesCompleted: 1, CoursesInProgress: 2, Certificates: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testutil.NewServices(t)
			err := s.Users.RewardLessonCompletion(context.Background(), testutil.StudentID, tc.firstLesson, tc.courseCompleted)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStats, s.GetUser(t, testutil.StudentID).StudentStats)
		})
	}
}

func TestQuery(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()

	teachers, err := s.Users.Query(ctx, user.QueryFilter{Roles: []string{user.RoleTeacher}})
	require.NoError(t, err)
	assert.Len(t, teachers, 5)

	found, err := s.Users.Query(ctx, user.QueryFilter{Search: "SILVA"})
	require.NoError(t, err)
	names := make([]string, 0, len(found))
	for _, u := range found {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"Ana Silva", "Prof. João Silva"}, names)

	byPoints, err := s.Users.Query(ctx, user.QueryFilter{Roles: []string{user.RoleStudent}}, core.ParseOrdering("-points", user.OrderingFields...)...)
	require.NoError(t, err)
	require.NotEmpty(t, byPoints)
	assert.Equal(t, "Lucas Fernandes", byPoints[0].Name)
}
