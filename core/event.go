package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event source categories.
const (
	SourceSystem      = "system"
	SourceNetwork     = "network"
	SourceApplication = "application"
	SourceOther       = "other"
)

// Severity levels shared by events and alerts.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Errors returned by Event.Validate.
var (
	ErrMissingContent = errors.New("event is missing content")
	ErrMissingSource  = errors.New("event is missing source")
)

// Event represents a single normalized security event. Events are created
// at the ingestion boundary and never mutated afterwards; they are retained
// only inside an EventHistory until evicted.
type Event struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Severity  string    `json:"severity"`
}

// NewEvent creates a new Event with a generated UUID and a UTC timestamp.
func NewEvent(source, content string) *Event {
	e := &Event{
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Content:   content,
	}
	e.Severity = DeriveSeverity(content)
	return e
}

// Validate reports whether the event carries the fields the pipeline
// requires. Malformed events are rejected at the dispatcher boundary and
// never stored partially.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Content) == "" {
		return ErrMissingContent
	}
	if strings.TrimSpace(e.Source) == "" {
		return ErrMissingSource
	}
	return nil
}

// DeriveSeverity infers an event severity from its content when the
// ingestion layer did not supply one.
func DeriveSeverity(content string) string {
	c := strings.ToLower(content)
	switch {
	case strings.Contains(c, "critical"):
		return SeverityCritical
	case strings.Contains(c, "error"):
		return SeverityError
	case strings.Contains(c, "warning"):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// NormalizeSource maps an arbitrary source tag onto one of the known
// categories, defaulting to "other".
func NormalizeSource(source string) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case SourceSystem:
		return SourceSystem
	case SourceNetwork:
		return SourceNetwork
	case SourceApplication:
		return SourceApplication
	default:
		return SourceOther
	}
}
