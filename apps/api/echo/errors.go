package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// reportErrorResponse maps the report errors to their HTTP status and user-visible message.
func reportErrorResponse(err error) (int, string, bool) {
	var (
		delivery *report.DeliveryError
		source   *report.SourceError
	)
	switch {
	case errors.Is(err, report.ErrNoData):
		return http.StatusUnprocessableEntity, report.StatusMessage(err), true
	case errors.Is(err, report.ErrInProgress):
		return http.StatusConflict, report.ErrInProgress.Error(), true
	case errors.Is(err, report.ErrNotFound), errors.Is(err, academic.ErrNotFound):
		return http.StatusNotFound, "not found", true
	case errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest, errors.Cause(err).Error(), true
	case errors.As(err, &delivery):
		return http.StatusBadGateway, report.StatusMessage(err) + ": " + delivery.Err.Error(), true
	case errors.As(err, &source):
		return http.StatusServiceUnavailable, report.StatusMessage(err), true
	}
	return 0, "", false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if c, msg, ok := reportErrorResponse(err); ok {
			code, message = c, msg
		} else {
			switch origErr := errors.Cause(err).(type) {
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
				code = http.StatusBadRequest
				message = core.TranslateValidationErrors(origErr, translator)
			case *core.ValidationError:
				if origErr.Fields != nil {
					message = origErr.FieldsMap()
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				if isComputation(err) {
					msg = report.StatusMessage(err)
				}
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					args = append(args, claims)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
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

func isComputation(err error) bool {
	var compErr *report.ComputationError
	return errors.As(err, &compErr)
}
