package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comment-scout/internal/api/routes"
	"comment-scout/internal/logging"
	"comment-scout/pkg/models"
)

type staticProvider struct {
	stats models.RunStats
}

func (p staticProvider) Snapshot() models.RunStats { return p.stats }

var running = staticProvider{stats: models.RunStats{
	RunID:           "run-1",
	Keyword:         "台球杆",
	Engine:          "rod",
	Phase:           models.PhaseExtraction,
	LinksDiscovered: 10,
	ItemsProcessed:  4,
	RecordsFlushed:  7,
}}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	logger, _ := logging.NewMemoryLogger()
	e := echo.New()
	routes.SetupRoutes(e, running, logger)
	return e
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var body models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "extraction", body.Status)
	assert.Equal(t, running.stats.RunID, body.Run.RunID)
	assert.Equal(t, 7, body.Run.RecordsFlushed)
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))

	var body models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "extraction", body.Checks["pipeline"])
	assert.Equal(t, "rod", body.Checks["browser"])
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not Found", body.Error)
	assert.NotEmpty(t, body.RequestID)
}

func TestServerLifecycle(t *testing.T) {
	logger, _ := logging.NewMemoryLogger()
	srv, err := NewServer("127.0.0.1:0", running, logger)
	require.NoError(t, err)
	srv.Start()

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, err = http.Get("http://" + srv.Addr() + "/health")
	assert.Error(t, err)
}

func TestServerBindFailure(t *testing.T) {
	logger, _ := logging.NewMemoryLogger()
	srv, err := NewServer("127.0.0.1:0", running, logger)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	_, err = NewServer(srv.Addr(), running, logger)
	assert.Error(t, err)
}
