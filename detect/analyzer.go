// Package detect implements the correlation and alerting core: a set of
// analyzers evaluated in a fixed order over a shared event history, fanned
// out by a single-consumer dispatcher.
package detect

import "argus/core"

// Analyzer is the capability interface shared by all detection strategies.
// Evaluate inspects one incoming event against whatever state the analyzer
// reads and returns zero or more alerts. A returned error (or panic,
// recovered at the dispatcher call site) means "no alerts from this
// analyzer for this event" and must never halt the pipeline.
type Analyzer interface {
	Name() string
	Evaluate(event *core.Event) ([]*core.Alert, error)
}
