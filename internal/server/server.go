// Package server exposes planning sessions over HTTP. Sessions created here
// run without an attached operator: they suspend at the review checkpoint and
// resume when a decision is posted.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planora/planora/config"
	"github.com/planora/planora/internal/runner"
	"github.com/planora/planora/internal/runtime"
)

// Server holds the HTTP dependencies.
type Server struct {
	cfg    *config.Config
	runner *runner.Runner
	logger *log.Logger
}

// New builds a Server around a configured runner.
func New(cfg *config.Config, r *runner.Runner) *Server {
	return &Server{
		cfg:    cfg,
		runner: r,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Echo assembles the echo instance with middleware and routes. The metrics
// endpoint serves the given registry, or the default one when nil.
func (s *Server) Echo(registry *prometheus.Registry) (*echo.Echo, error) {
	if err := s.cfg.Server.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	metricsHandler := promhttp.Handler()
	if registry != nil {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	e.GET("/metrics", echo.WrapHandler(metricsHandler))

	secret := []byte(s.cfg.Server.JWTSecret)
	api := e.Group("/api")

	auth := &AuthHandler{
		Secret:       secret,
		PasswordHash: s.cfg.Server.OperatorPasswordHash,
		TokenTTL:     s.cfg.Server.TokenTTL,
	}
	auth.Register(api.Group("/auth"))

	sh := &SessionsHandler{Runner: s.runner, Logger: s.logger}
	sessions := api.Group("/sessions")
	sessions.Use(runtime.EchoAuthMiddleware(secret))
	sh.Register(sessions)

	return e, nil
}

// Run serves the API until the listener fails.
func (s *Server) Run(registry *prometheus.Registry) error {
	e, err := s.Echo(registry)
	if err != nil {
		return err
	}
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Printf("listening on %s", addr)
	return e.Start(addr)
}
