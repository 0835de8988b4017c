// Package ml provides anomaly scoring for the detection pipeline: feature
// extraction per event source, a pluggable scorer, and a feature cache in
// front of extraction.
package ml

import (
	"strings"
	"unicode"

	"argus/core"
)

// FeatureDim is the fixed width of every feature vector.
const FeatureDim = 20

// FeatureVector holds the extracted features for one event. Vectors are
// immutable once built and safe to cache.
type FeatureVector struct {
	EventID string              `json:"event_id"`
	Source  string              `json:"source"`
	Values  [FeatureDim]float64 `json:"values"`
}

// ExtractFeatures builds the feature vector for an event, selecting the
// extractor by source category. Unknown sources get the generic extractor.
func ExtractFeatures(event *core.Event) *FeatureVector {
	fv := &FeatureVector{EventID: event.EventID, Source: event.Source}
	content := strings.ToLower(event.Content)

	switch event.Source {
	case core.SourceSystem:
		extractSystem(content, &fv.Values)
	case core.SourceNetwork:
		extractNetwork(content, &fv.Values)
	case core.SourceApplication:
		extractApplication(content, &fv.Values)
	default:
		extractGeneric(content, &fv.Values)
	}
	return fv
}

func indicator(content, substr string) float64 {
	if strings.Contains(content, substr) {
		return 1
	}
	return 0
}

func extractSystem(content string, out *[FeatureDim]float64) {
	out[0] = indicator(content, "error")
	out[1] = indicator(content, "warning")
	out[2] = indicator(content, "critical")
	out[3] = float64(len(strings.Fields(content)))
	out[4] = float64(strings.Count(content, "failed"))
	out[5] = indicator(content, "permission denied")
	out[6] = indicator(content, "crash")
	out[7] = indicator(content, "kernel")
}

func extractNetwork(content string, out *[FeatureDim]float64) {
	out[0] = indicator(content, "404")
	out[1] = indicator(content, "500")
	out[2] = indicator(content, "403")
	out[3] = indicator(content, "denied")
	out[4] = indicator(content, "timeout")
	out[5] = float64(strings.Count(content, "failed"))
	out[6] = float64(len(strings.Fields(content)))
}

func extractApplication(content string, out *[FeatureDim]float64) {
	out[0] = indicator(content, "exception")
	out[1] = indicator(content, "error")
	out[2] = float64(strings.Count(content, "failed"))
	out[3] = float64(len(strings.Fields(content)))
	out[4] = indicator(content, "null")
	out[5] = indicator(content, "undefined")
	out[6] = indicator(content, "crash")
}

func extractGeneric(content string, out *[FeatureDim]float64) {
	out[0] = float64(len(content))
	out[1] = float64(len(strings.Fields(content)))
	var digits, other float64
	for _, r := range content {
		switch {
		case unicode.IsDigit(r):
			digits++
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			other++
		}
	}
	out[2] = digits
	out[3] = other
}
