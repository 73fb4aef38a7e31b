package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusRule maps a sentinel to a status. An empty msg echoes err.Error().
type statusRule struct {
	target error
	code   int
	msg    string
}

var statusRules = []statusRule{
	{domain.ErrMalformedEvent, http.StatusUnprocessableEntity, ""},
	{domain.ErrInvalidIdentity, http.StatusUnprocessableEntity, ""},
	{domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid token"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{domain.ErrUnknownConnection, http.StatusNotFound, "unknown connection"},
	{domain.ErrUserExists, http.StatusConflict, "user already exists"},
	{domain.ErrNotInitialized, http.StatusServiceUnavailable, "sync core not ready"},
}

// NewHTTPErrorHandler renders every error as {"error": "..."}. Domain
// sentinels get fixed status codes; anything else is logged and hidden
// behind a 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err)
		if code == http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("unhandled error")
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, r := range statusRules {
		if !errors.Is(err, r.target) {
			continue
		}
		if r.msg == "" {
			return r.code, err.Error()
		}
		return r.code, r.msg
	}

	return http.StatusInternalServerError, "internal server error"
}
