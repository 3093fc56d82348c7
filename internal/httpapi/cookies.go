package httpapi

import (
	"context"
	"net/http"

	"github.com/debtflow/authcore"
	"github.com/labstack/echo/v4"
)

func (s *Server) setCookie(c echo.Context, name, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// requestContext carries the client IP and user agent into audit events.
func (s *Server) requestContext(c echo.Context) context.Context {
	ctx := authcore.WithClientIP(c.Request().Context(), c.RealIP())
	if ua := c.Request().UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return ctx
}
