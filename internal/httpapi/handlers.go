package httpapi

import (
	"net/http"
	"strings"

	"github.com/debtflow/authcore"
	"github.com/debtflow/authcore/middleware"
	"github.com/labstack/echo/v4"
)

const (
	accessCookie  = middleware.AccessTokenCookie
	refreshCookie = "refresh_token"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type meResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sessionId"`
}

// login handles POST /auth/login.
func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	tokens, err := s.svc.Login(s.requestContext(c), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}

	s.setCookie(c, accessCookie, tokens.AccessToken, int(s.accessTTL.Seconds()))
	s.setCookie(c, refreshCookie, tokens.RefreshToken, int(s.refreshTTL.Seconds()))
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// refresh handles POST /auth/refresh. The refresh token is not rotated.
func (s *Server) refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(refreshCookie); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
		}
		raw = req.RefreshToken
	}

	access, err := s.svc.RefreshAccessToken(s.requestContext(c), raw)
	if err != nil {
		return err
	}

	s.setCookie(c, accessCookie, access, int(s.accessTTL.Seconds()))
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// logout handles POST /auth/logout. Cookies are cleared even when the token
// is no longer valid.
func (s *Server) logout(c echo.Context) error {
	s.clearCookie(c, accessCookie)
	s.clearCookie(c, refreshCookie)

	token, ok := middleware.TokenFromRequest(c.Request())
	if !ok {
		return authcore.ErrUnauthorized
	}
	if err := s.svc.Logout(s.requestContext(c), token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// me handles GET /auth/me behind RequireSession.
func (s *Server) me(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c.Request().Context())
	if !ok {
		return authcore.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, meResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		SessionID: p.SessionID,
	})
}

// health handles GET /healthz.
func (s *Server) health(c echo.Context) error {
	latency, err := s.svc.Ping(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":           "ok",
		"store_latency_ms": latency.Milliseconds(),
	})
}
