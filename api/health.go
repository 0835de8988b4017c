// Package api exposes the operational HTTP surface: health and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"argus/detect"
	"argus/trigger"
	"argus/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DispatcherHealther reports the detection pipeline's liveness.
type DispatcherHealther interface {
	Health() detect.DispatcherHealth
}

// TriggerHealther reports per-worker trigger liveness.
type TriggerHealther interface {
	Health() map[string]trigger.WorkerHealth
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status     string                          `json:"status"`
	Dispatcher detect.DispatcherHealth         `json:"dispatcher"`
	Triggers   map[string]trigger.WorkerHealth `json:"triggers,omitempty"`
}

// Server serves /healthz and /metrics.
type Server struct {
	dispatcher DispatcherHealther
	triggers   TriggerHealther
	server     *http.Server
	logger     *zap.SugaredLogger
}

// NewServer creates the operational server. triggers may be nil when the
// trigger engine is not running.
func NewServer(host string, port int, dispatcher DispatcherHealther, triggers TriggerHealther, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{dispatcher: dispatcher, triggers: triggers, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins serving in the background.
func (s *Server) Start() {
	s.logger.Infof("Health server started on %s", s.server.Addr)
	go func() {
		defer goroutine.Recover("health-server", s.logger)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Health server error: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Errorf("Health server shutdown error: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.dispatcher != nil {
		resp.Dispatcher = s.dispatcher.Health()
		if !resp.Dispatcher.Draining {
			resp.Status = "degraded"
		}
	}
	if s.triggers != nil {
		resp.Triggers = s.triggers.Health()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Errorf("Failed to encode health response: %v", err)
	}
}
