package ml

import (
	"context"
	"fmt"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// Anomaly score thresholds. A score above alertThreshold produces an ml
// alert; above highThreshold the alert is HIGH instead of MEDIUM.
const (
	alertThreshold = 0.8
	highThreshold  = 0.9
)

// Scorer turns a feature vector into an anomaly score in [0, 1].
type Scorer interface {
	Score(features *FeatureVector) (float64, error)
}

// HeuristicScorer is the built-in deterministic scorer. It weighs the
// indicator features of each source category; count features saturate at
// three occurrences. Scores are always in [0, 1].
type HeuristicScorer struct{}

// NewHeuristicScorer creates the default scorer.
func NewHeuristicScorer() *HeuristicScorer { return &HeuristicScorer{} }

// Score implements Scorer.
func (s *HeuristicScorer) Score(fv *FeatureVector) (float64, error) {
	if fv == nil {
		return 0, fmt.Errorf("feature vector cannot be nil")
	}

	v := fv.Values
	switch fv.Source {
	case core.SourceSystem:
		return 0.15*v[0] + 0.05*v[1] + 0.25*v[2] + 0.10*saturate(v[4]) +
			0.15*v[5] + 0.20*v[6] + 0.10*v[7], nil
	case core.SourceNetwork:
		return 0.05*v[0] + 0.15*v[1] + 0.15*v[2] + 0.20*v[3] +
			0.15*v[4] + 0.30*saturate(v[5]), nil
	case core.SourceApplication:
		return 0.20*v[0] + 0.15*v[1] + 0.15*saturate(v[2]) + 0.15*v[4] +
			0.15*v[5] + 0.20*v[6], nil
	default:
		// Generic vectors carry only shape features; score by the share
		// of non-alphanumeric characters.
		if v[0] == 0 {
			return 0, nil
		}
		ratio := v[3] / v[0]
		if ratio > 1 {
			ratio = 1
		}
		return ratio, nil
	}
}

// saturate maps an occurrence count onto [0, 1], flat from three up.
func saturate(count float64) float64 {
	if count >= 3 {
		return 1
	}
	return count / 3
}

// ScoringAdapter exposes a Scorer as a pipeline analyzer. Feature vectors
// are looked up in the cache before extraction and stored after.
type ScoringAdapter struct {
	scorer Scorer
	cache  FeatureCache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewScoringAdapter creates the ml analyzer. cache may be nil to disable
// caching.
func NewScoringAdapter(scorer Scorer, cache FeatureCache, ttl time.Duration, logger *zap.SugaredLogger) *ScoringAdapter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ScoringAdapter{scorer: scorer, cache: cache, ttl: ttl, logger: logger}
}

// Name identifies the analyzer in logs and metrics.
func (a *ScoringAdapter) Name() string { return "ml" }

// Evaluate scores one event and produces an ml alert when the score
// crosses the alert threshold.
func (a *ScoringAdapter) Evaluate(event *core.Event) ([]*core.Alert, error) {
	features, err := a.features(event)
	if err != nil {
		return nil, err
	}

	score, err := a.scorer.Score(features)
	if err != nil {
		return nil, fmt.Errorf("scoring event %s: %w", event.EventID, err)
	}
	if score <= alertThreshold {
		return nil, nil
	}

	severity := core.SeverityMedium
	if score > highThreshold {
		severity = core.SeverityHigh
	}
	alert := core.NewAlert(core.AlertTypeML, "anomaly_score", severity, event.Source,
		fmt.Sprintf("Anomaly score %.2f for %s event", score, event.Source))
	alert.Score = score
	alert.EventIDs = []string{event.EventID}
	return []*core.Alert{alert}, nil
}

func (a *ScoringAdapter) features(event *core.Event) (*FeatureVector, error) {
	if a.cache == nil {
		return ExtractFeatures(event), nil
	}

	ctx := context.Background()
	cached, found, err := a.cache.Get(ctx, event.EventID)
	if err != nil {
		a.logger.Warnf("Feature cache lookup failed for event %s: %v", event.EventID, err)
	} else if found {
		return cached, nil
	}

	features := ExtractFeatures(event)
	if err := a.cache.Set(ctx, features, a.ttl); err != nil {
		a.logger.Warnf("Feature cache store failed for event %s: %v", event.EventID, err)
	}
	return features, nil
}
