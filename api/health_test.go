package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"argus/detect"
	"argus/trigger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDispatcher struct{ health detect.DispatcherHealth }

func (s *stubDispatcher) Health() detect.DispatcherHealth { return s.health }

type stubTriggers struct{ health map[string]trigger.WorkerHealth }

func (s *stubTriggers) Health() map[string]trigger.WorkerHealth { return s.health }

func TestHealthEndpoint_OK(t *testing.T) {
	dispatcher := &stubDispatcher{health: detect.DispatcherHealth{Draining: true, QueueDepth: 3}}
	triggers := &stubTriggers{health: map[string]trigger.WorkerHealth{
		"burst": {RuleName: "burst", Alive: true},
	}}
	s := NewServer("127.0.0.1", 0, dispatcher, triggers, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Dispatcher.Draining)
	assert.Equal(t, 3, resp.Dispatcher.QueueDepth)
	require.Contains(t, resp.Triggers, "burst")
	assert.True(t, resp.Triggers["burst"].Alive)
}

func TestHealthEndpoint_DegradedWhenNotDraining(t *testing.T) {
	dispatcher := &stubDispatcher{health: detect.DispatcherHealth{Draining: false}}
	s := NewServer("127.0.0.1", 0, dispatcher, nil, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer("127.0.0.1", 0, nil, nil, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
