package core

import "time"

// PatternRule defines threshold-in-timeframe detection: alert when at
// least Threshold matching events occurred within the last Timeframe,
// including the current one. Immutable once loaded.
type PatternRule struct {
	Name      string        `json:"name"`
	Pattern   string        `json:"pattern"`
	Threshold int           `json:"threshold"`
	Timeframe time.Duration `json:"timeframe"`
	Severity  string        `json:"severity"`
}

// CorrelationRule is satisfied when pattern alerts for every named
// constituent rule have fired for the same event source within Timeframe.
// Order of constituent satisfaction is irrelevant.
type CorrelationRule struct {
	Name      string        `json:"name"`
	Patterns  []string      `json:"patterns"`
	Timeframe time.Duration `json:"timeframe"`
	Severity  string        `json:"severity"`
}

// TriggerRule is a persisted, periodically polled query-based threshold
// rule. Loaded once per engine start; a disabled rule spawns no worker.
type TriggerRule struct {
	RuleName    string `json:"rule_name" validate:"required"`
	SQLQuery    string `json:"sql_query" validate:"required"`
	EventLimit  int    `json:"event_limit" validate:"gte=0"`
	TimeInt     int    `json:"time_int" validate:"gte=0"` // poll interval, minutes; 0 means run once
	Severity    int    `json:"severity" validate:"gte=0,lte=7"`
	SourceTable string `json:"source_table"`
	OutTable    string `json:"out_table" validate:"required"`
	Message     string `json:"message"`
	IsEnabled   bool   `json:"is_enabled"`
}

// DefaultPatternRules returns the built-in threshold-in-timeframe rules.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			Name:      "brute_force",
			Pattern:   `Failed login attempt|Authentication failure`,
			Threshold: 5,
			Timeframe: 5 * time.Minute,
			Severity:  SeverityHigh,
		},
		{
			Name:      "privilege_escalation",
			Pattern:   `sudo|su\s|privilege|elevation`,
			Threshold: 3,
			Timeframe: 10 * time.Minute,
			Severity:  SeverityCritical,
		},
		{
			Name:      "data_exfiltration",
			Pattern:   `large file transfer|unusual network activity|data transfer`,
			Threshold: 2,
			Timeframe: 15 * time.Minute,
			Severity:  SeverityCritical,
		},
		{
			Name:      "system_crash",
			Pattern:   `kernel panic|system halt|crash dump`,
			Threshold: 1,
			Timeframe: 5 * time.Minute,
			Severity:  SeverityCritical,
		},
	}
}

// DefaultCorrelationRules returns the built-in multi-rule correlations.
func DefaultCorrelationRules() []CorrelationRule {
	return []CorrelationRule{
		{
			Name:      "potential_attack",
			Patterns:  []string{"brute_force", "privilege_escalation"},
			Timeframe: 15 * time.Minute,
			Severity:  SeverityCritical,
		},
		{
			Name:      "data_breach",
			Patterns:  []string{"privilege_escalation", "data_exfiltration"},
			Timeframe: 30 * time.Minute,
			Severity:  SeverityCritical,
		},
	}
}
