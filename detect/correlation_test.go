package detect

import (
	"testing"
	"time"

	"argus/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func potentialAttackRule() core.CorrelationRule {
	return core.CorrelationRule{
		Name:      "potential_attack",
		Patterns:  []string{"brute_force", "privilege_escalation"},
		Timeframe: 15 * time.Minute,
		Severity:  core.SeverityCritical,
	}
}

func patternAlert(rule, source string) *core.Alert {
	return core.NewAlert(core.AlertTypePattern, rule, core.SeverityHigh, source, "pattern matched")
}

func TestCorrelationAnalyzer_AllConstituentsSameSource(t *testing.T) {
	alerts := core.NewAlertHistory()
	alerts.Append(patternAlert("brute_force", core.SourceSystem))
	alerts.Append(patternAlert("privilege_escalation", core.SourceSystem))

	analyzer := NewCorrelationAnalyzer([]core.CorrelationRule{potentialAttackRule()}, alerts)
	got, err := analyzer.Evaluate(core.NewEvent(core.SourceSystem, "sudo -i by operator"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.AlertTypeCorrelation, got[0].Type)
	assert.Equal(t, "potential_attack", got[0].RuleName)
	assert.Equal(t, core.SeverityCritical, got[0].Severity)
	assert.Equal(t, core.SourceSystem, got[0].Source)
}

func TestCorrelationAnalyzer_MissingConstituentSuppresses(t *testing.T) {
	alerts := core.NewAlertHistory()
	alerts.Append(patternAlert("brute_force", core.SourceSystem))

	analyzer := NewCorrelationAnalyzer([]core.CorrelationRule{potentialAttackRule()}, alerts)
	got, err := analyzer.Evaluate(core.NewEvent(core.SourceSystem, "sudo -i by operator"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorrelationAnalyzer_DifferentSourceDoesNotCorrelate(t *testing.T) {
	alerts := core.NewAlertHistory()
	alerts.Append(patternAlert("brute_force", core.SourceNetwork))
	alerts.Append(patternAlert("privilege_escalation", core.SourceSystem))

	analyzer := NewCorrelationAnalyzer([]core.CorrelationRule{potentialAttackRule()}, alerts)
	got, err := analyzer.Evaluate(core.NewEvent(core.SourceSystem, "sudo -i by operator"))
	require.NoError(t, err)
	assert.Empty(t, got, "constituents must share the event source")
}

func TestCorrelationAnalyzer_StaleConstituentSuppresses(t *testing.T) {
	alerts := core.NewAlertHistory()
	stale := patternAlert("brute_force", core.SourceSystem)
	stale.Timestamp = time.Now().UTC().Add(-time.Hour)
	alerts.Append(stale)
	alerts.Append(patternAlert("privilege_escalation", core.SourceSystem))

	analyzer := NewCorrelationAnalyzer([]core.CorrelationRule{potentialAttackRule()}, alerts)
	got, err := analyzer.Evaluate(core.NewEvent(core.SourceSystem, "sudo -i by operator"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorrelationAnalyzer_OrderOfConstituentsIrrelevant(t *testing.T) {
	alerts := core.NewAlertHistory()
	// Reversed firing order relative to the rule's pattern list.
	alerts.Append(patternAlert("privilege_escalation", core.SourceSystem))
	alerts.Append(patternAlert("brute_force", core.SourceSystem))

	analyzer := NewCorrelationAnalyzer([]core.CorrelationRule{potentialAttackRule()}, alerts)
	got, err := analyzer.Evaluate(core.NewEvent(core.SourceSystem, "sudo -i by operator"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
