package moderation

import (
	"time"
)

type ActivityType string

const (
	ActivityUserRegistered   ActivityType = "user_registered"
	ActivityCourseSubmitted  ActivityType = "course_submitted"
	ActivityCoursePublished  ActivityType = "course_published"
	ActivityCourseRejected   ActivityType = "course_rejected"
	ActivityCourseDeleted    ActivityType = "course_deleted"
	ActivityUserSuspended    ActivityType = "user_suspended"
	ActivityUserReactivated  ActivityType = "user_reactivated"
	ActivityUserDeleted      ActivityType = "user_deleted"
	ActivityUserRoleChanged  ActivityType = "user_role_changed"
	ActivityCourseFeatured   ActivityType = "course_featured"
	ActivityCourseUnfeatured ActivityType = "course_unfeatured"
)

// Activity is an entry of the platform activity feed.
type Activity struct {
	ID          int          `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	UserID      *int         `json:"userId,omitempty"`
	UserName    string       `json:"userName"`
	Timestamp   time.Time    `json:"timestamp"` // UTC
}

// Stats are the platform-wide counters of the admin dashboard.
type Stats struct {
	TotalUsers       int     `json:"totalUsers"`
	TotalStudents    int     `json:"totalStudents"`
	TotalTeachers    int     `json:"totalTeachers"`
	TotalAdmins      int     `json:"totalAdmins"`
	ActiveUsers      int     `json:"activeUsers"`
	SuspendedUsers   int     `json:"suspendedUsers"`
	TotalCourses     int     `json:"totalCourses"`
	CoursesPublished int     `json:"coursesPublished"`
	CoursesPending   int     `json:"coursesPending"`
	TotalRevenue     float64 `json:"totalRevenue"`
}

const (
	DefaultActivitiesLimit = 10
	MaxActivitiesLimit     = 100
)
