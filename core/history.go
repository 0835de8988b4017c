package core

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds the event history when no capacity is
// configured.
const DefaultHistoryCapacity = 10000

// EventHistory is a bounded, insertion-ordered buffer of events. The
// oldest entry is evicted when the buffer is at capacity. It is owned by
// a single dispatcher; analyzers get read-only query access. Timestamps
// are not assumed monotonic: window queries filter by explicit timestamp
// comparison, never by position.
type EventHistory struct {
	mu    sync.RWMutex
	buf   []*Event
	start int
	size  int
}

// NewEventHistory creates an EventHistory holding at most capacity events.
// A non-positive capacity falls back to DefaultHistoryCapacity.
func NewEventHistory(capacity int) *EventHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &EventHistory{buf: make([]*Event, capacity)}
}

// Append inserts an event, evicting the oldest entry when full. O(1).
func (h *EventHistory) Append(event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = event
		h.size++
		return
	}
	h.buf[h.start] = event
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of retained events.
func (h *EventHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// EventsInWindow returns, in insertion order, the retained events whose
// timestamp falls in [start, end] inclusive.
func (h *EventHistory) EventsInWindow(start, end time.Time) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Event
	for i := 0; i < h.size; i++ {
		e := h.buf[(h.start+i)%len(h.buf)]
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// Tail returns the last n inserted events in insertion order. When fewer
// than n events are retained, all of them are returned.
func (h *EventHistory) Tail(n int) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.size {
		n = h.size
	}
	out := make([]*Event, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

// maxAlertsPerRule bounds the per-rule alert history so correlation
// lookups cannot grow without bound.
const maxAlertsPerRule = 1000

// AlertHistory retains recently emitted alerts keyed by rule name for
// correlation lookups. Like EventHistory it has a single writer, the
// dispatcher.
type AlertHistory struct {
	mu      sync.RWMutex
	byRule  map[string][]*Alert
}

// NewAlertHistory creates an empty AlertHistory.
func NewAlertHistory() *AlertHistory {
	return &AlertHistory{byRule: make(map[string][]*Alert)}
}

// Append records an emitted alert. Alerts without a rule name are not
// retained; nothing correlates on them.
func (h *AlertHistory) Append(alert *Alert) {
	if alert.RuleName == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.byRule[alert.RuleName], alert)
	if len(list) > maxAlertsPerRule {
		list = list[len(list)-maxAlertsPerRule:]
	}
	h.byRule[alert.RuleName] = list
}

// HasPatternAlert reports whether a pattern alert for the named rule and
// event source was emitted at or after since. Correlation keys on the
// (rule name, event source) pair.
func (h *AlertHistory) HasPatternAlert(ruleName, source string, since time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, a := range h.byRule[ruleName] {
		if a.Type == AlertTypePattern && a.Source == source && !a.Timestamp.Before(since) {
			return true
		}
	}
	return false
}
