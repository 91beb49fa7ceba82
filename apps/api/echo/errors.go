package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errMissingToken   = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errGateLocked     = echo.NewHTTPError(http.StatusForbidden, "admin session locked")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyReqs    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
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
				fldErrs[vErr.Field()] = vErr.Translate(translator)
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
		case *auth.LockedError:
			secs := auth.LockoutStatus{Remaining: origErr.Remaining}.RemainingSeconds()
			ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			code = http.StatusLocked
			message = echo.Map{"error": origErr.Error(), "remaining_seconds": secs}
		case *contact.ThrottledError:
			secs := auth.LockoutStatus{Remaining: origErr.Remaining}.RemainingSeconds()
			ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			code = http.StatusTooManyRequests
			message = echo.Map{"error": origErr.Error(), "remaining_seconds": secs}
		default:
			code, message = sentinelError(origErr)
			if code != 0 {
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var person core.Person
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				person = core.Person{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
			}
			logger.Error(msg, errors.Wrap(err, msg), person)

			// shutting down...
			if core.IsShutdown(err) && signalShutdown != nil {
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
			if ctx.Request().Method == http.MethodHead {
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

// sentinelError maps the domain errors to their status; code is 0 for unknown errors.
func sentinelError(err error) (code int, message interface{}) {
	switch err {
	case auth.ErrInvalidCredentials:
		return http.StatusUnauthorized, err.Error()
	case auth.ErrUnavailable:
		return http.StatusServiceUnavailable, err.Error()
	case auth.ErrWrongCode:
		return http.StatusUnauthorized, err.Error()
	case attendance.ErrLocked:
		return http.StatusConflict, err.Error()
	case student.ErrUnknownKind, admission.ErrUnknownStatus:
		return http.StatusBadRequest, err.Error()
	case notice.ErrNotFound, admission.ErrNotFound, attendance.ErrNotFound, student.ErrNotFound, auth.ErrNotFound:
		return http.StatusNotFound, err.Error()
	}
	return 0, nil
}
