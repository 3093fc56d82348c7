package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/debtflow/authcore"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// statusFor maps a Service error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case authcore.CodeInvalidCredentials,
		authcore.CodeInvalidRefreshToken,
		authcore.CodeSessionExpired,
		authcore.CodeUnauthorized:
		return http.StatusUnauthorized
	case authcore.CodeAccountBlocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(code string) string {
	switch code {
	case authcore.CodeInvalidCredentials:
		return "invalid email or password"
	case authcore.CodeAccountBlocked:
		return "too many failed attempts, try again later"
	case authcore.CodeInvalidRefreshToken:
		return "invalid refresh token"
	case authcore.CodeSessionExpired:
		return "session expired"
	case authcore.CodeUnauthorized:
		return "unauthorized"
	default:
		return "internal error"
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		code := "common." + strings.ToLower(strings.ReplaceAll(http.StatusText(echoErr.Code), " ", "_"))
		_ = c.JSON(echoErr.Code, errorResponse{Code: code, Message: msg})
		return
	}

	code := authcore.Code(err)
	status := statusFor(code)
	resp := errorResponse{Code: code, Message: messageFor(code)}

	var blocked *authcore.AccountBlockedError
	if errors.As(err, &blocked) {
		resp.RetryAfter = blocked.RetryAfterSeconds()
		c.Response().Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfter, 10))
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	}

	_ = c.JSON(status, resp)
}
