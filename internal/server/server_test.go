package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexindevs/roomey-api/internal/observability"
)

func TestObservabilityRoutes(t *testing.T) {
	srv := NewObservability("roomey-api-test", ":0", map[string]observability.Pinger{
		"redis": func(ctx context.Context) error { return errors.New("down") },
	})
	h := srv.httpServer.Handler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New("main", ":0", http.NotFoundHandler())
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Start())
}
