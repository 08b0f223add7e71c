package user

import (
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edukanda/edukanda/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

	// SignupRoles are the roles a user may pick when registering.
	SignupRoles = []string{RoleStudent, RoleTeacher}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// StudentStats are the gamification counters of a student.
type StudentStats struct {
	Points            int `json:"points"`
	Rank              int `json:"rank"`
	CoursesCompleted  int `json:"coursesCompleted"`
	CoursesInProgress int `json:"coursesInProgress"`
	Certificates      int `json:"certificates"`
}

// TeacherStats are the counters shown on a teacher's dashboard.
type TeacherStats struct {
	TotalCourses  int     `json:"totalCourses"`
	TotalStudents int     `json:"totalStudents"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AverageRating float64 `json:"averageRating"`
}

type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Status       Status `json:"status"`
	Avatar       string `json:"avatar"`
	Bio          string `json:"bio"`
	PasswordHash []byte `json:"-"`
	StudentStats
	TeacherStats
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
	LastLogin time.Time `json:"lastLogin"` // UTC
}

var _ core.Person = User{}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsActive() bool  { return u.Status == StatusActive }

func (u User) LogPerson() (id, username, email string) {
	return strconv.Itoa(u.ID), u.Name, u.Email
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,signuprole"`
}

func (nu *NewUser) clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
}

// UpdateUser defines what information may be provided to modify a User's profile.
type UpdateUser struct {
	Name            string `json:"name" validate:"omitempty,min=3"`
	Email           string `json:"email" validate:"omitempty,email"`
	Avatar          string `json:"avatar" validate:"omitempty,url"`
	Bio             string `json:"bio" validate:"omitempty,max=500"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	uu.Avatar = core.CleanString(uu.Avatar)
	uu.Bio = core.CleanString(uu.Bio)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

// GetFilter selects a single User. Zero fields are ignored.
type GetFilter struct {
	ID    int
	Email string
}

// OrderingFields are the fields users may be ordered by.
var OrderingFields = []string{"id", "name", "email", "role", "status", "points", "rank", "createdAt", "lastLogin"}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	Statuses []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0 && len(qf.Statuses) == 0
}
