package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

type teacherApi struct {
	auth      *authenticator
	courses   *course.Service
	dashboard *course.Dashboard
}

// ownStatuses are the statuses listed on a teacher's dashboard.
var ownStatuses = []course.Status{
	course.StatusDraft, course.StatusPending, course.StatusPublished, course.StatusRejected,
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *teacherApi) {
	tg := g.Group("/teacher", jwt, rolesMiddleware(api.auth, user.RoleTeacher, user.RoleAdmin))
	tg.GET("/stats", api.stats)
	tg.GET("/courses", api.listCourses)
}

// stats returns the dashboard counters of the session teacher. Admins may pass ?teacherId=.
func (api *teacherApi) stats(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	teacherID := usr.ID
	id, err := intQueryParam(ctx, "teacherId")
	if err != nil {
		return err
	}
	if id != nil {
		teacherID = *id
	}

	stats, err := api.dashboard.TeacherStats(ctx.Request().Context(), usr, teacherID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

// listCourses lists every course of the session teacher that is not deleted.
func (api *teacherApi) listCourses(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	filter := course.QueryFilter{InstructorID: usr.ID, Statuses: ownStatuses}
	courses, err := api.courses.List(ctx.Request().Context(), usr, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}
