package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/moderation"
	"github.com/edukanda/edukanda/core/user"
)

type courseApi struct {
	auth       *authenticator
	courses    *course.Service
	dashboard  *course.Dashboard
	moderation *moderation.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *courseApi) {
	cg := g.Group("/courses", jwt, rolesMiddleware(api.auth))
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/favorite", api.toggleFavorite)
	cg.POST("/:id/lessons/:lessonId/complete", api.completeLesson)

	authors := rolesMiddleware(api.auth, user.RoleTeacher, user.RoleAdmin)
	cg.POST("", api.create, authors)
	cg.PUT("/:id", api.update, authors)
	cg.POST("/:id/lessons", api.addLesson, authors)
	cg.PUT("/:id/lessons", api.reorderLessons, authors)
	cg.PUT("/:id/lessons/:lessonId", api.updateLesson, authors)
	cg.DELETE("/:id/lessons/:lessonId", api.deleteLesson, authors)
	cg.GET("/:id/students", api.students, authors)
	cg.GET("/:id/analytics", api.analytics, authors)
	cg.POST("/:id/publish", api.publish, authors)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	courses, err := api.courses.List(ctx.Request().Context(), usr, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) get(ctx echo.Context) (user.User, course.Course, error) {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return user.User{}, course.Course{}, err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return user.User{}, course.Course{}, err
	}
	c, err := api.courses.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return user.User{}, course.Course{}, err
	}
	return usr, c, nil
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	_, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) toggleFavorite(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	c, err = api.courses.ToggleFavorite(ctx.Request().Context(), usr, c.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) completeLesson(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	lessonID, err := intParam(ctx, "lessonId")
	if err != nil {
		return err
	}
	c, err = api.courses.MarkLessonComplete(ctx.Request().Context(), usr, c.ID, lessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.courses.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	c, err = api.courses.Update(ctx.Request().Context(), usr, c.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	c, err = api.courses.AddLesson(ctx.Request().Context(), usr, c.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	lessonID, err := intParam(ctx, "lessonId")
	if err != nil {
		return err
	}
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	c, err = api.courses.UpdateLesson(ctx.Request().Context(), usr, c.ID, lessonID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) deleteLesson(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	lessonID, err := intParam(ctx, "lessonId")
	if err != nil {
		return err
	}
	c, err = api.courses.DeleteLesson(ctx.Request().Context(), usr, c.ID, lessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) reorderLessons(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data course.LessonOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonOrder")
	}
	c, err = api.courses.ReorderLessons(ctx.Request().Context(), usr, c.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) students(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	students, err := api.dashboard.Students(ctx.Request().Context(), usr, c.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) analytics(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	a, err := api.dashboard.Analytics(ctx.Request().Context(), usr, c.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseApi) publish(ctx echo.Context) error {
	usr, c, err := api.get(ctx)
	if err != nil {
		return err
	}
	c, err = api.moderation.SubmitCourse(ctx.Request().Context(), usr, c.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}
