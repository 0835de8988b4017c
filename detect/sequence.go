package detect

import (
	"regexp"

	"argus/core"
)

// sequenceTailSize is how many trailing events the analyzer inspects.
const sequenceTailSize = 5

// The fixed three-step login-abuse sequence, evaluated freshly from the
// trailing window on every event rather than tracked as a live automaton.
var (
	seqFailedLogin  = regexp.MustCompile(`(?i)Failed login`)
	seqSuccessLogin = regexp.MustCompile(`(?i)Successful login`)
	seqPrivEsc      = regexp.MustCompile(`(?i)sudo|su`)
)

// SequenceAnalyzer detects an exact ordered subsequence over the most
// recent events: a failed login, then a successful login, then privilege
// escalation as the last three events in insertion order.
type SequenceAnalyzer struct {
	history *core.EventHistory
}

// NewSequenceAnalyzer creates a SequenceAnalyzer over a read-only view of
// history.
func NewSequenceAnalyzer(history *core.EventHistory) *SequenceAnalyzer {
	return &SequenceAnalyzer{history: history}
}

// Name implements Analyzer.
func (a *SequenceAnalyzer) Name() string { return "sequence" }

// Evaluate implements Analyzer. The trailing window includes the current
// event, which occupies the final position of the triple when it fires.
func (a *SequenceAnalyzer) Evaluate(event *core.Event) ([]*core.Alert, error) {
	tail := a.history.Tail(sequenceTailSize)
	if len(tail) < 3 {
		return nil, nil
	}

	last := len(tail)
	if !seqFailedLogin.MatchString(tail[last-3].Content) ||
		!seqSuccessLogin.MatchString(tail[last-2].Content) ||
		!seqPrivEsc.MatchString(tail[last-1].Content) {
		return nil, nil
	}

	alert := core.NewAlert(core.AlertTypeSequence, "", core.SeverityHigh, event.Source,
		"Suspicious login sequence detected")
	alert.EventIDs = []string{tail[last-3].EventID, tail[last-2].EventID, tail[last-1].EventID}
	return []*core.Alert{alert}, nil
}
