package detect

import (
	"fmt"
	"time"

	"argus/core"
)

// CorrelationAnalyzer evaluates multi-rule temporal correlation: a rule is
// satisfied when pattern alerts for every constituent rule exist for the
// same event source within the rule's timeframe. This is an
// AND-within-window check; the order in which constituents fired is
// irrelevant, and constituent alerts need not share timestamps beyond
// falling in the common window.
type CorrelationAnalyzer struct {
	rules  []core.CorrelationRule
	alerts *core.AlertHistory
}

// NewCorrelationAnalyzer creates a CorrelationAnalyzer over a read-only
// view of the emitted-alert history.
func NewCorrelationAnalyzer(rules []core.CorrelationRule, alerts *core.AlertHistory) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{rules: rules, alerts: alerts}
}

// Name implements Analyzer.
func (a *CorrelationAnalyzer) Name() string { return "correlation" }

// Evaluate implements Analyzer.
func (a *CorrelationAnalyzer) Evaluate(event *core.Event) ([]*core.Alert, error) {
	now := time.Now().UTC()

	var alerts []*core.Alert
	for _, rule := range a.rules {
		satisfied := true
		for _, pattern := range rule.Patterns {
			if !a.alerts.HasPatternAlert(pattern, event.Source, now.Add(-rule.Timeframe)) {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}

		alert := core.NewAlert(core.AlertTypeCorrelation, rule.Name, rule.Severity, event.Source,
			fmt.Sprintf("Correlation rule %s triggered", rule.Name))
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
