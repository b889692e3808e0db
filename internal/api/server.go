package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"comment-scout/internal/api/handlers"
	"comment-scout/internal/api/routes"
	"comment-scout/internal/logging"
)

// Server serves run status over HTTP while a crawl is in progress
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	logger logging.Logger

	started atomic.Bool
}

// NewServer binds addr and wires the status routes. The server does not
// accept connections until Start.
func NewServer(addr string, provider handlers.StatusProvider, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("component", "status_api")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = ln
	routes.SetupRoutes(e, provider, logger)

	return &Server{echo: e, ln: ln, logger: logger}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Start serves in the background
func (s *Server) Start() {
	s.logger.Info("Status API listening", map[string]interface{}{
		"address": s.Addr(),
	})
	s.started.Store(true)
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status API stopped unexpectedly", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return s.ln.Close()
	}
	err := s.echo.Shutdown(ctx)
	s.logger.Info("Status API stopped", map[string]interface{}{})
	return err
}
