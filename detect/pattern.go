package detect

import (
	"fmt"
	"regexp"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

type compiledPattern struct {
	rule core.PatternRule
	re   *regexp.Regexp
}

// PatternAnalyzer evaluates threshold-in-timeframe rules against the
// shared event history. The match count is re-derived from the history on
// every matching event instead of keeping a separate counter: recomputing
// is what keeps counts honest when old events are evicted.
type PatternAnalyzer struct {
	patterns []compiledPattern
	history  *core.EventHistory
	logger   *zap.SugaredLogger
}

// NewPatternAnalyzer compiles the given rules over a read-only view of
// history. Rules with invalid patterns are skipped with a log entry.
func NewPatternAnalyzer(rules []core.PatternRule, history *core.EventHistory, logger *zap.SugaredLogger) *PatternAnalyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	a := &PatternAnalyzer{history: history, logger: logger}
	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			logger.Warnf("Skipping pattern rule %s: %v", rule.Name, err)
			continue
		}
		a.patterns = append(a.patterns, compiledPattern{rule: rule, re: re})
	}
	return a
}

// Name implements Analyzer.
func (a *PatternAnalyzer) Name() string { return "pattern" }

// Evaluate implements Analyzer. The history already contains the current
// event when Evaluate runs, so the recomputed window count includes it. A
// rule with threshold 1 fires on every matching event; repeated alerts
// are expected, not deduplicated.
func (a *PatternAnalyzer) Evaluate(event *core.Event) ([]*core.Alert, error) {
	now := time.Now().UTC()

	var alerts []*core.Alert
	for _, p := range a.patterns {
		if !p.re.MatchString(event.Content) {
			continue
		}

		window := a.history.EventsInWindow(now.Add(-p.rule.Timeframe), now)
		var matched []*core.Event
		for _, e := range window {
			if p.re.MatchString(e.Content) {
				matched = append(matched, e)
			}
		}
		if len(matched) < p.rule.Threshold {
			continue
		}

		alert := core.NewAlert(core.AlertTypePattern, p.rule.Name, p.rule.Severity, event.Source,
			fmt.Sprintf("Pattern %s matched %d times within %s", p.rule.Name, len(matched), p.rule.Timeframe))
		alert.Count = len(matched)
		for _, e := range matched {
			alert.EventIDs = append(alert.EventIDs, e.EventID)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
