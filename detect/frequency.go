package detect

import (
	"fmt"
	"strings"
	"time"

	"argus/core"
)

const (
	// frequencyWindow is the lookback window for burst detection.
	frequencyWindow = 5 * time.Minute
	// frequencyThreshold is the similar-event count above which a burst
	// alert fires.
	frequencyThreshold = 10
	// similarityThreshold is the minimum shared-token ratio for two events
	// to count as near-duplicates.
	similarityThreshold = 0.8
)

// FrequencyAnalyzer detects bursts of near-duplicate events from a single
// source: more than frequencyThreshold events in the last five minutes
// whose contents share over 80% of their tokens with the current event.
// The comparison is O(window size) per event, which is acceptable because
// the window is time-bounded, not history-size-bounded.
type FrequencyAnalyzer struct {
	history *core.EventHistory
}

// NewFrequencyAnalyzer creates a FrequencyAnalyzer over a read-only view
// of history.
func NewFrequencyAnalyzer(history *core.EventHistory) *FrequencyAnalyzer {
	return &FrequencyAnalyzer{history: history}
}

// Name implements Analyzer.
func (a *FrequencyAnalyzer) Name() string { return "frequency" }

// Evaluate implements Analyzer. The history already contains the current
// event, which trivially matches itself and is included in the count.
func (a *FrequencyAnalyzer) Evaluate(event *core.Event) ([]*core.Alert, error) {
	now := time.Now().UTC()
	tokens := tokenize(event.Content)

	count := 0
	for _, e := range a.history.EventsInWindow(now.Add(-frequencyWindow), now) {
		if e.Source != event.Source {
			continue
		}
		if tokenSimilarity(tokens, tokenize(e.Content)) > similarityThreshold {
			count++
		}
	}
	if count <= frequencyThreshold {
		return nil, nil
	}

	alert := core.NewAlert(core.AlertTypeFrequency, "", core.SeverityWarning, event.Source,
		fmt.Sprintf("High frequency of similar events detected: %d in %s", count, frequencyWindow))
	alert.Count = count
	return []*core.Alert{alert}, nil
}

func tokenize(content string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(content)) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// tokenSimilarity returns intersection over union of two token sets, 0
// when both are empty.
func tokenSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
