package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"comment-scout/internal/api/handlers"
	"comment-scout/internal/api/middleware"
	"comment-scout/internal/logging"
)

const requestTimeout = 10 * time.Second

// SetupRoutes configures the status API routes
func SetupRoutes(e *echo.Echo, provider handlers.StatusProvider, logger logging.Logger) {
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestTimeout(requestTimeout))

	e.GET("/health", handlers.HealthHandler(provider))

	v1 := e.Group("/api/v1")
	{
		v1.GET("/status", handlers.StatusHandler(provider))
	}
}
