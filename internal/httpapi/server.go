package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/debtflow/authcore"
	"github.com/debtflow/authcore/metrics/export/prometheus"
	"github.com/debtflow/authcore/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Options configures a [Server].
type Options struct {
	// SecureCookies marks auth cookies Secure. Enable behind TLS.
	SecureCookies bool
	// TrustProxy takes the client IP from X-Forwarded-For. Only enable behind
	// a proxy that overwrites the header; the IP keys the login lockout.
	TrustProxy bool
	Logger     zerolog.Logger
}

// Server is the HTTP adapter around a Service.
type Server struct {
	svc        *authcore.Service
	echo       *echo.Echo
	logger     zerolog.Logger
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New builds the echo instance and registers all routes.
func New(svc *authcore.Service, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if opts.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	cfg := svc.Config()
	s := &Server{
		svc:        svc,
		echo:       e,
		logger:     opts.Logger.With().Str("component", "httpapi").Logger(),
		secure:     opts.SecureCookies,
		accessTTL:  cfg.JWT.Access.TTL,
		refreshTTL: cfg.JWT.Refresh.TTL,
	}

	e.HTTPErrorHandler = s.errorHandler
	e.Use(echomw.Recover())
	e.Use(s.requestLogger())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	auth := s.echo.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)
	auth.POST("/logout", s.logout)
	auth.GET("/me", s.me, echo.WrapMiddleware(middleware.RequireSession(s.svc)))

	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(prometheus.NewPrometheusExporter(s.svc).Handler()))
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. A graceful stop returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
