package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errTokenRevoked     = echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")
	errAlreadyMarked    = echo.NewHTTPError(http.StatusBadRequest, "Attendance already marked for today")
	errInvalidMonth     = echo.NewHTTPError(http.StatusBadRequest, "Invalid month format")
	errClassReportFetch = echo.NewHTTPError(http.StatusInternalServerError, "Server error while fetching class report")
)

// httpError maps the domain errors that have a fixed HTTP response.
func httpError(err error) (*echo.HTTPError, bool) {
	switch err {
	case user.ErrInvalidCredentials:
		return errUnauthorized, true
	case user.ErrNotFound, student.ErrNotFound:
		return errHttpNotFound, true
	case attendance.ErrAlreadyMarked:
		return errAlreadyMarked, true
	case attendance.ErrInvalidMonth:
		return errInvalidMonth, true
	case attendance.ErrReportFailed: // logged by the attendance service
		return errClassReportFetch, true
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := httpError(cause); ok {
			cause = herr
		}

		switch origErr := cause.(type) {
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
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[core.FieldPath(vErr)] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg), map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Path(),
			}}
			if p, pErr := getContextPrincipal(ctx); pErr == nil {
				args = append(args, p)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
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
