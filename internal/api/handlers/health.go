package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"comment-scout/pkg/models"
)

var startTime = time.Now()

// Version is reported by the health endpoint
var Version = "dev"

// StatusProvider exposes the live counters of the current crawl
type StatusProvider interface {
	Snapshot() models.RunStats
}

// HealthHandler handles health check requests
func HealthHandler(provider StatusProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		run := provider.Snapshot()

		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks: map[string]string{
				"api":      "ok",
				"pipeline": string(run.Phase),
			},
		}
		if run.Engine != "" {
			response.Checks["browser"] = run.Engine
		}

		return c.JSON(http.StatusOK, response)
	}
}
