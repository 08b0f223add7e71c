package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edukanda/edukanda/core/access"
)

// rolesMiddleware lets through the active users holding one of roles. No roles means any active user.
// It must run after the JWT middleware.
func rolesMiddleware(auth *authenticator, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return err
			}
			if d := access.Decide(true, usr.Role, roles...); d.Action != access.Render {
				return newRedirectError(d)
			}
			return next(ctx)
		}
	}
}

// intParam reads a positive integer path parameter. Anything else is answered with 404.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// intQueryParam reads an optional integer query parameter.
func intQueryParam(ctx echo.Context, name string) (*int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return &n, nil
}
