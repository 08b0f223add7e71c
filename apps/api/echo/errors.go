package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/access"
	"github.com/edukanda/edukanda/core/certificate"
	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")

	// domain errors answered with a client error status
	errStatuses = map[error]int{
		core.ErrForbidden:           http.StatusForbidden,
		core.ErrInvalidTransition:   http.StatusConflict,
		user.ErrNotFound:            http.StatusNotFound,
		user.ErrInvalidCredentials:  http.StatusBadRequest,
		user.ErrAccountSuspended:    http.StatusForbidden,
		course.ErrNotFound:          http.StatusNotFound,
		course.ErrLessonNotFound:    http.StatusNotFound,
		comment.ErrNotFound:         http.StatusNotFound,
		certificate.ErrNotCompleted: http.StatusNotFound,
	}
)

// redirectError denies access and tells the client which page to open instead.
type redirectError struct {
	code    int
	message string
	path    string
}

func (e *redirectError) Error() string {
	return e.message
}

func newRedirectError(d access.Decision) error {
	if d.Action == access.RedirectLogin {
		return &redirectError{code: http.StatusUnauthorized, message: errUnauthorized.Message.(string), path: d.Path}
	}
	return &redirectError{code: http.StatusForbidden, message: core.ErrForbidden.Error(), path: d.Path}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := errStatuses[cause]; ok {
			code = status
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *redirectError:
				code = origErr.code
				message = echo.Map{"error": origErr.message, "redirect": origErr.path}
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case *core.ValidationError:
				if len(origErr.Fields) > 0 {
					message = origErr.FieldMap()
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID, _ = claims.userID()
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) && signalShutdown != nil {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			if code == http.StatusUnauthorized {
				message = echo.Map{"error": m, "redirect": access.LoginPath}
			} else {
				message = echo.Map{"error": m}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
