// Package notify delivers alerts to external channels. The webhook sink
// plugs into the alert fanout beside the storage sink.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// severityRank orders severities for the minimum-severity filter.
var severityRank = map[string]int{
	core.SeverityInfo:     1,
	core.SeverityWarning:  2,
	core.SeverityError:    3,
	core.SeverityMedium:   3,
	core.SeverityHigh:     4,
	core.SeverityCritical: 5,
}

// WebhookConfig configures a webhook alert sink.
type WebhookConfig struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	MinSeverity string            `json:"min_severity"`
	Timeout     time.Duration     `json:"timeout"`
}

// WebhookSink posts alerts as JSON to a configured endpoint. Alerts below
// the minimum severity are silently dropped.
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
	logger *zap.SugaredLogger
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(cfg WebhookConfig, logger *zap.SugaredLogger) *WebhookSink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookSink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Emit implements core.AlertSink.
func (s *WebhookSink) Emit(ctx context.Context, alert *core.Alert) error {
	if !s.wants(alert) {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert %s: %w", alert.AlertID, err)
	}

	req, err := http.NewRequestWithContext(ctx, s.cfg.Method, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debugf("Delivered %s alert %s to webhook", alert.Type, alert.AlertID)
	return nil
}

func (s *WebhookSink) wants(alert *core.Alert) bool {
	if s.cfg.MinSeverity == "" {
		return true
	}
	min, ok := severityRank[s.cfg.MinSeverity]
	if !ok {
		return true
	}
	rank, ok := severityRank[alert.Severity]
	if !ok {
		rank = 1
	}
	return rank >= min
}
