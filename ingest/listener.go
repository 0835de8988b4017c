// Package ingest accepts normalized security events over HTTP and feeds
// them into the detection pipeline's channel.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/util/goroutine"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodySize = 1024 * 1024

// rawEvent is the accepted wire shape. Severity is optional; a missing
// severity is derived from the content.
type rawEvent struct {
	Source   string `json:"source"`
	Content  string `json:"content"`
	Severity string `json:"severity,omitempty"`
}

// ParseJSON turns one JSON payload into a normalized event.
func ParseJSON(raw string) (*core.Event, error) {
	var in rawEvent
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("invalid JSON event: %w", err)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, core.ErrMissingContent
	}
	if strings.TrimSpace(in.Source) == "" {
		return nil, core.ErrMissingSource
	}

	event := core.NewEvent(core.NormalizeSource(in.Source), in.Content)
	if in.Severity != "" {
		event.Severity = strings.ToUpper(in.Severity)
	}
	return event, nil
}

// JSONListener accepts events as HTTP POSTs of single JSON objects.
type JSONListener struct {
	host    string
	port    int
	limiter *rate.Limiter
	eventCh chan<- *core.Event
	server  *http.Server
	logger  *zap.SugaredLogger
}

// NewJSONListener creates a listener feeding eventCh. rateLimit is events
// per second, with a burst of the same size.
func NewJSONListener(host string, port, rateLimit int, eventCh chan<- *core.Event, logger *zap.SugaredLogger) *JSONListener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &JSONListener{
		host:    host,
		port:    port,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		eventCh: eventCh,
		logger:  logger,
	}
}

// Handler returns the listener's HTTP routes.
func (l *JSONListener) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/events", l.handlePost).Methods(http.MethodPost)
	return r
}

// Start begins serving. The error channel of the underlying server only
// surfaces through logs; callers stop the listener via Stop.
func (l *JSONListener) Start() {
	addr := fmt.Sprintf("%s:%d", l.host, l.port)
	l.server = &http.Server{
		Addr:              addr,
		Handler:           l.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	l.logger.Infof("JSON event listener started on %s", addr)
	go func() {
		defer goroutine.Recover("json-listener", l.logger)
		if err := l.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.logger.Errorf("JSON listener error: %v", err)
		}
	}()
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// requests.
func (l *JSONListener) Stop() {
	if l.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		l.logger.Errorf("JSON listener shutdown error: %v", err)
	}
}

func (l *JSONListener) handlePost(w http.ResponseWriter, r *http.Request) {
	if !l.limiter.Allow() {
		metrics.EventsDiscarded.WithLabelValues("rate_limited").Inc()
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	// One byte past the limit distinguishes an exactly-full body from an
	// oversize one.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodySize {
		metrics.EventsDiscarded.WithLabelValues("oversize").Inc()
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := ParseJSON(string(body))
	if err != nil {
		metrics.EventsDiscarded.WithLabelValues("malformed").Inc()
		l.logger.Warnf("Discarding malformed event from %s: %v", r.RemoteAddr, err)
		http.Error(w, "Invalid event", http.StatusBadRequest)
		return
	}

	select {
	case l.eventCh <- event:
		metrics.EventsIngested.WithLabelValues(event.Source).Inc()
		w.WriteHeader(http.StatusAccepted)
	default:
		metrics.EventsDiscarded.WithLabelValues("backpressure").Inc()
		l.logger.Warn("Event channel full, dropping event")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	}
}
