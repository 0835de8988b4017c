package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookSink_DeliversAlert(t *testing.T) {
	var mu sync.Mutex
	var bodies [][]byte
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, body)
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
	}, zap.NewNop().Sugar())

	alert := core.NewAlert(core.AlertTypePattern, "brute_force", core.SeverityHigh,
		core.SourceSystem, "Threshold reached")
	require.NoError(t, sink.Emit(context.Background(), alert))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Equal(t, "Bearer token", gotAuth)

	var got core.Alert
	require.NoError(t, json.Unmarshal(bodies[0], &got))
	assert.Equal(t, alert.AlertID, got.AlertID)
	assert.Equal(t, "brute_force", got.RuleName)
}

func TestWebhookSink_MinSeverityFilter(t *testing.T) {
	var mu sync.Mutex
	delivered := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		delivered++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookConfig{URL: server.URL, MinSeverity: core.SeverityHigh},
		zap.NewNop().Sugar())
	ctx := context.Background()

	low := core.NewAlert(core.AlertTypeFrequency, "repeat", core.SeverityWarning, "", "noisy")
	require.NoError(t, sink.Emit(ctx, low))

	high := core.NewAlert(core.AlertTypeCorrelation, "potential_attack", core.SeverityCritical, "", "chained")
	require.NoError(t, sink.Emit(ctx, high))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered, "alerts below the minimum severity are dropped")
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookConfig{URL: server.URL}, zap.NewNop().Sugar())
	alert := core.NewAlert(core.AlertTypeSignature, "Generic Backdoor", core.SeverityCritical, "", "matched")
	require.Error(t, sink.Emit(context.Background(), alert))
}

func TestWebhookSink_UnreachableEndpoint(t *testing.T) {
	sink := NewWebhookSink(WebhookConfig{URL: "http://127.0.0.1:1"}, zap.NewNop().Sugar())
	alert := core.NewAlert(core.AlertTypeThreshold, "burst", core.SeverityHigh, "", "over limit")
	require.Error(t, sink.Emit(context.Background(), alert))
}
