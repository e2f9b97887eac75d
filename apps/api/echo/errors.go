package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "identity not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// ledgerErrorCode maps the ledger's typed errors to HTTP statuses. Every
// mutating call surfaces exactly one of these; none is ever swallowed or
// retried here.
func ledgerErrorCode(err error) (int, bool) {
	switch err {
	case identity.ErrNotRegistered, course.ErrNotFound, evaluation.ErrNotFound:
		return http.StatusNotFound, true
	case identity.ErrAlreadyRegistered, evaluation.ErrAlreadyEvaluated:
		return http.StatusConflict, true
	case course.ErrUnauthorized, evaluation.ErrUnauthorized:
		return http.StatusForbidden, true
	case course.ErrInactive, evaluation.ErrNotMember, evaluation.ErrOutsideWindow:
		return http.StatusUnprocessableEntity, true
	case course.ErrInvalidWindow, evaluation.ErrInvalidRating, evaluation.ErrTooManyImages:
		return http.StatusBadRequest, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if ledgerCode, ok := ledgerErrorCode(cause); ok {
			code = ledgerCode
			message = cause.Error()
		} else {
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
					fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
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

				var idt identity.Identity
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					idt.Address = claims.Subject
					idt.Name = claims.Name
					idt.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), idt)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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
