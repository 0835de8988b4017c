package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Alert types emitted by the detection pipeline and the trigger engine.
const (
	AlertTypePattern     = "pattern"
	AlertTypeCorrelation = "correlation"
	AlertTypeFrequency   = "frequency"
	AlertTypeSequence    = "sequence"
	AlertTypeSignature   = "signature"
	AlertTypeML          = "ml"
	AlertTypeThreshold   = "threshold"
)

// Alert is the unit of detected-condition output. Alerts are write-once:
// once emitted to a sink they are never mutated or retracted.
type Alert struct {
	AlertID     string    `json:"alert_id"`
	Type        string    `json:"type"`
	RuleName    string    `json:"rule_name,omitempty"`
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"`
	Description string    `json:"description"`

	// Type-specific evidence.
	EventIDs  []string `json:"event_ids,omitempty"`
	Count     int      `json:"count,omitempty"`
	Score     float64  `json:"score,omitempty"`
	Magnitude int      `json:"magnitude,omitempty"`
}

// NewAlert creates a write-once Alert with a generated UUID and a UTC
// timestamp.
func NewAlert(alertType, ruleName, severity, source, description string) *Alert {
	return &Alert{
		AlertID:     uuid.New().String(),
		Type:        alertType,
		RuleName:    ruleName,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		Source:      source,
		Description: description,
	}
}

// AlertSink receives alerts exactly once each, in the order they are
// handed over. Implementations must tolerate concurrent writers: the
// dispatcher and every trigger worker share one sink.
type AlertSink interface {
	Emit(ctx context.Context, alert *Alert) error
}

// FanoutSink forwards each alert to every wrapped sink in order. The first
// emission error is returned after all sinks have been attempted.
type FanoutSink []AlertSink

// Emit implements AlertSink.
func (f FanoutSink) Emit(ctx context.Context, alert *Alert) error {
	var firstErr error
	for _, s := range f {
		if err := s.Emit(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
