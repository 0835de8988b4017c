package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventAt(source, content string, ts time.Time) *Event {
	e := NewEvent(source, content)
	e.Timestamp = ts
	return e
}

func TestEventHistory_Eviction(t *testing.T) {
	const capacity = 10
	const extra = 3
	h := NewEventHistory(capacity)
	now := time.Now().UTC()

	for i := 0; i < capacity+extra; i++ {
		h.Append(eventAt(SourceSystem, fmt.Sprintf("event %d", i), now))
	}

	require.Equal(t, capacity, h.Len())

	// The oldest `extra` events are unreachable by any window query.
	all := h.EventsInWindow(now.Add(-time.Hour), now.Add(time.Hour))
	require.Len(t, all, capacity)
	assert.Equal(t, "event 3", all[0].Content)
	assert.Equal(t, "event 12", all[capacity-1].Content)
}

func TestEventHistory_WindowInclusiveBounds(t *testing.T) {
	h := NewEventHistory(100)
	base := time.Now().UTC()

	early := eventAt(SourceSystem, "early", base.Add(-10*time.Minute))
	onStart := eventAt(SourceSystem, "on start", base.Add(-5*time.Minute))
	inside := eventAt(SourceSystem, "inside", base.Add(-time.Minute))
	onEnd := eventAt(SourceSystem, "on end", base)
	for _, e := range []*Event{early, onStart, inside, onEnd} {
		h.Append(e)
	}

	got := h.EventsInWindow(base.Add(-5*time.Minute), base)
	require.Len(t, got, 3)
	assert.Equal(t, "on start", got[0].Content)
	assert.Equal(t, "on end", got[2].Content)
}

func TestEventHistory_WindowOutOfOrderTimestamps(t *testing.T) {
	// Events can arrive out of temporal order; filtering is by timestamp,
	// not position.
	h := NewEventHistory(100)
	base := time.Now().UTC()

	h.Append(eventAt(SourceSystem, "newest first", base))
	h.Append(eventAt(SourceSystem, "stale", base.Add(-time.Hour)))
	h.Append(eventAt(SourceSystem, "recent", base.Add(-time.Second)))

	got := h.EventsInWindow(base.Add(-time.Minute), base)
	require.Len(t, got, 2)
	assert.Equal(t, "newest first", got[0].Content)
	assert.Equal(t, "recent", got[1].Content)
}

func TestEventHistory_Tail(t *testing.T) {
	h := NewEventHistory(5)
	now := time.Now().UTC()
	for i := 0; i < 8; i++ {
		h.Append(eventAt(SourceSystem, fmt.Sprintf("event %d", i), now))
	}

	tail := h.Tail(3)
	require.Len(t, tail, 3)
	assert.Equal(t, "event 5", tail[0].Content)
	assert.Equal(t, "event 7", tail[2].Content)

	assert.Len(t, h.Tail(50), 5)
	assert.Empty(t, h.Tail(0))
}

func TestAlertHistory_HasPatternAlert(t *testing.T) {
	h := NewAlertHistory()
	now := time.Now().UTC()

	a := NewAlert(AlertTypePattern, "brute_force", SeverityHigh, SourceSystem, "pattern brute_force matched")
	h.Append(a)

	assert.True(t, h.HasPatternAlert("brute_force", SourceSystem, now.Add(-time.Minute)))
	assert.False(t, h.HasPatternAlert("brute_force", SourceNetwork, now.Add(-time.Minute)))
	assert.False(t, h.HasPatternAlert("privilege_escalation", SourceSystem, now.Add(-time.Minute)))
	assert.False(t, h.HasPatternAlert("brute_force", SourceSystem, now.Add(time.Minute)))
}

func TestAlertHistory_Bounded(t *testing.T) {
	h := NewAlertHistory()
	for i := 0; i < maxAlertsPerRule+10; i++ {
		h.Append(NewAlert(AlertTypePattern, "brute_force", SeverityHigh, SourceSystem, "x"))
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Len(t, h.byRule["brute_force"], maxAlertsPerRule)
}
