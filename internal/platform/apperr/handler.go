package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// HTTPErrorHandler converts classified errors into the API's JSON error
// shape. Unclassified errors are logged with context and surfaced as an
// opaque internal error.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			if appErr.Kind == Internal {
				logger.Error().Err(err).
					Str("path", c.Request().URL.Path).
					Msg("internal error")
			}
			msg := appErr.Message
			if appErr.Kind == Internal {
				msg = "erro interno do servidor"
			}
			_ = c.JSON(appErr.Kind.HTTPStatus(), errorEnvelope{
				Error: errorBody{Code: appErr.Kind.String(), Message: msg},
			})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			code := "internal"
			switch httpErr.Code {
			case http.StatusBadRequest:
				code = ValidationFailed.String()
			case http.StatusUnauthorized:
				code = Unauthenticated.String()
			case http.StatusForbidden:
				code = Forbidden.String()
			case http.StatusNotFound:
				code = NotFound.String()
			}
			_ = c.JSON(httpErr.Code, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
			return
		}

		logger.Error().Err(err).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, errorEnvelope{
			Error: errorBody{Code: Internal.String(), Message: "erro interno do servidor"},
		})
	}
}
