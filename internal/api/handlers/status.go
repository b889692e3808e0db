package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"comment-scout/pkg/models"
)

// StatusHandler returns a snapshot of the running crawl
func StatusHandler(provider StatusProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		run := provider.Snapshot()
		return c.JSON(http.StatusOK, models.StatusResponse{
			Status: string(run.Phase),
			Run:    run,
		})
	}
}

// ErrorHandler renders every error as an ErrorResponse
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	requestID, _ := c.Get("request_id").(string)
	_ = c.JSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}
