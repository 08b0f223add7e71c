package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/ranking"
)

type commentApi struct {
	auth     *authenticator
	comments *comment.Service
}

func registerCommentAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *commentApi) {
	cg := g.Group("/comments", jwt, rolesMiddleware(api.auth))
	cg.GET("", api.query)
	cg.POST("", api.create)
}

func (api *commentApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	courseID, err := intQueryParam(ctx, "courseId")
	if err != nil {
		return err
	}
	if courseID == nil {
		return ctx.JSON(http.StatusOK, []comment.Comment{})
	}
	lessonID, err := intQueryParam(ctx, "lessonId")
	if err != nil {
		return err
	}

	comments, err := api.comments.List(ctx.Request().Context(), usr, *courseID, lessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *commentApi) create(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	c, err := api.comments.Add(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

type rankingApi struct {
	auth    *authenticator
	ranking *ranking.Service
}

func registerRankingAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *rankingApi) {
	g.GET("/ranking", api.leaderboard, jwt, rolesMiddleware(api.auth))
}

func (api *rankingApi) leaderboard(ctx echo.Context) error {
	entries, err := api.ranking.Leaderboard(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}
