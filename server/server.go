// Package server wires the HTTP surface of the voice-conversation backend.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/lingualive/internal/profile"
	"github.com/hrygo/lingualive/server/middleware"
	apiv1 "github.com/hrygo/lingualive/server/router/api/v1"
)

// Server is the HTTP server hosting the voice pipeline API.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
}

// New creates the server and registers middleware and routes.
func New(p *profile.Profile, api *apiv1.APIV1Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     p.Origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("32M"))
	e.Use(middleware.NewRateLimiter().Middleware())
	e.Use(requestLogger())

	api.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": p.Version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		echoServer: e,
		profile:    p,
	}
}

// Start runs the HTTP listener until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server listening", "address", address, "mode", s.profile.Mode)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echoServer.Shutdown(ctx)
}

// Echo exposes the underlying echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

// requestLogger logs one line per completed request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}
	}
}
