package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
	"github.com/edukanda/edukanda/services/report"
)

const orderingParam = "ordering"

type adminApi struct {
	auth       *authenticator
	moderation *moderation.Service
	ranking    *ranking.Service
	hub        *activityHub
}

type (
	StatusRequest struct {
		Status user.Status `json:"status"`
	}

	RoleRequest struct {
		Role string `json:"role"`
	}

	RejectRequest struct {
		Reason string `json:"reason"`
	}

	FeaturedRequest struct {
		Featured bool `json:"featured"`
	}
)

func registerAdminAPI(g *echo.Group, jwt, wsJWT echo.MiddlewareFunc, api *adminApi) {
	admin := rolesMiddleware(api.auth, user.RoleAdmin)

	// browsers cannot set headers on websocket requests: the token is read from the query string
	g.GET("/admin/activities/ws", api.hub.serveWS, wsJWT, admin)

	ag := g.Group("/admin", jwt, admin)
	ag.GET("/stats", api.stats)
	ag.GET("/activities", api.activities)
	ag.GET("/reports/ranking", api.rankingReport)

	ag.GET("/users", api.queryUsers)
	ag.GET("/users/:id", api.retrieveUser)
	ag.PUT("/users/:id/status", api.setUserStatus)
	ag.PUT("/users/:id/role", api.setUserRole)
	ag.DELETE("/users/:id", api.deleteUser)

	ag.GET("/courses", api.queryCourses)
	ag.PUT("/courses/:id/approve", api.approveCourse)
	ag.PUT("/courses/:id/reject", api.rejectCourse)
	ag.PUT("/courses/:id/featured", api.setFeatured)
	ag.DELETE("/courses/:id", api.deleteCourse)
}

// actorAndID returns the context admin and the `:id` path parameter.
func (api *adminApi) actorAndID(ctx echo.Context) (user.User, int, error) {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return user.User{}, 0, err
	}
	id, err := intParam(ctx, "id")
	return actor, id, err
}

// Dashboard

func (api *adminApi) stats(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	stats, err := api.moderation.Stats(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *adminApi) activities(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit")) // invalid means default
	activities, err := api.moderation.Activities(ctx.Request().Context(), actor, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, activities)
}

func (api *adminApi) rankingReport(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := report.WriteRanking(ctx.Request().Context(), &buf, api.ranking); err != nil {
		return errors.Wrap(err, "writing ranking report")
	}
	filename := report.RankingFilename(time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, report.ContentType, buf.Bytes())
}

// Users

func (api *adminApi) queryUsers(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	orderings := core.ParseOrdering(ctx.QueryParam(orderingParam), user.OrderingFields...)

	users, err := api.moderation.Users(ctx.Request().Context(), actor, filter, orderings...)
	if err != nil {
		return err
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) retrieveUser(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	usr, err := api.moderation.GetUser(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) setUserStatus(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	usr, err := api.moderation.SetUserStatus(ctx.Request().Context(), actor, id, data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) setUserRole(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	var data RoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleRequest")
	}
	usr, err := api.moderation.SetUserRole(ctx.Request().Context(), actor, id, data.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) deleteUser(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	if _, err := api.moderation.DeleteUser(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Courses

func (api *adminApi) queryCourses(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	courses, err := api.moderation.Courses(ctx.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) approveCourse(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	c, err := api.moderation.ApproveCourse(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) rejectCourse(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	var data RejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}
	c, err := api.moderation.RejectCourse(ctx.Request().Context(), actor, id, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) setFeatured(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	var data FeaturedRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeaturedRequest")
	}
	c, err := api.moderation.SetFeatured(ctx.Request().Context(), actor, id, data.Featured)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) deleteCourse(ctx echo.Context) error {
	actor, id, err := api.actorAndID(ctx)
	if err != nil {
		return err
	}
	if _, err := api.moderation.DeleteCourse(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
