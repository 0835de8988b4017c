package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseJSON(t *testing.T) {
	event, err := ParseJSON(`{"source": "System", "content": "kernel panic"}`)
	require.NoError(t, err)
	assert.Equal(t, core.SourceSystem, event.Source)
	assert.Equal(t, "kernel panic", event.Content)
	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, core.SeverityInfo, event.Severity, "derived from content")

	event, err = ParseJSON(`{"source": "network", "content": "probe", "severity": "high"}`)
	require.NoError(t, err)
	assert.Equal(t, core.SeverityHigh, event.Severity, "explicit severity wins")

	event, err = ParseJSON(`{"source": "mainframe", "content": "tape full"}`)
	require.NoError(t, err)
	assert.Equal(t, core.SourceOther, event.Source, "unknown sources normalize to other")
}

func TestParseJSON_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"source": "system",`,
		"missing content": `{"source": "system"}`,
		"missing source":  `{"content": "something"}`,
		"blank content":   `{"source": "system", "content": "   "}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON(raw)
			require.Error(t, err)
		})
	}
}

func newTestListener(buffer, rateLimit int) (*JSONListener, chan *core.Event) {
	ch := make(chan *core.Event, buffer)
	l := NewJSONListener("127.0.0.1", 0, rateLimit, ch, zap.NewNop().Sugar())
	return l, ch
}

func TestHandlePost_AcceptsAndForwards(t *testing.T) {
	l, ch := newTestListener(4, 100)
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/events", "application/json",
		strings.NewReader(`{"source": "system", "content": "disk failure on sda"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case event := <-ch:
		assert.Equal(t, "disk failure on sda", event.Content)
	default:
		t.Fatal("event was not forwarded to the channel")
	}
}

func TestHandlePost_RejectsMalformed(t *testing.T) {
	l, ch := newTestListener(4, 100)
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/events", "application/json",
		strings.NewReader(`{"content": "no source"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, ch)
}

func TestHandlePost_BackpressureDropsWithStatus(t *testing.T) {
	l, _ := newTestListener(1, 100)
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	payload := `{"source": "network", "content": "connection reset"}`
	first, err := http.Post(server.URL+"/api/v1/events", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusAccepted, first.StatusCode)

	// The single-slot channel is full now; the listener must not block.
	second, err := http.Post(server.URL+"/api/v1/events", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, second.StatusCode)
}

func TestHandlePost_BodySizeBoundary(t *testing.T) {
	l, ch := newTestListener(4, 100)
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	// Pad the content so the whole body is exactly maxBodySize bytes.
	prefix := `{"source": "system", "content": "`
	suffix := `"}`
	exact := prefix + strings.Repeat("a", maxBodySize-len(prefix)-len(suffix)) + suffix
	require.Len(t, exact, maxBodySize)

	resp, err := http.Post(server.URL+"/api/v1/events", "application/json", strings.NewReader(exact))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "a body at the limit is accepted")
	<-ch

	over := prefix + strings.Repeat("a", maxBodySize-len(prefix)-len(suffix)+1) + suffix
	resp, err = http.Post(server.URL+"/api/v1/events", "application/json", strings.NewReader(over))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, ch)
}

func TestHandlePost_RateLimit(t *testing.T) {
	l, _ := newTestListener(10, 1)
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	payload := `{"source": "system", "content": "probe"}`
	statuses := make(map[int]int)
	for i := 0; i < 5; i++ {
		resp, err := http.Post(server.URL+"/api/v1/events", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		resp.Body.Close()
		statuses[resp.StatusCode]++
	}
	assert.Positive(t, statuses[http.StatusTooManyRequests], "burst beyond the limit is rejected")
}
