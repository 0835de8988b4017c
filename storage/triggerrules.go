package storage

import (
	"context"
	"fmt"

	"argus/core"
)

// GetTriggerRules loads every rule from one rule table. Callers filter on
// IsEnabled; disabled rules are returned so the engine can report them.
func (s *SQLite) GetTriggerRules(ctx context.Context, table string) ([]core.TriggerRule, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT rule_name, sql_query, event_limit, time_int, severity,
       source_table, out_table, message, is_enabled
FROM %s`, table)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger rules from %s: %w", table, err)
	}
	defer rows.Close()

	var rules []core.TriggerRule
	for rows.Next() {
		var r core.TriggerRule
		var enabled int
		if err := rows.Scan(&r.RuleName, &r.SQLQuery, &r.EventLimit, &r.TimeInt,
			&r.Severity, &r.SourceTable, &r.OutTable, &r.Message, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan trigger rule: %w", err)
		}
		r.IsEnabled = enabled != 0
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// InsertTriggerRule stores one rule, replacing any existing rule of the
// same name.
func (s *SQLite) InsertTriggerRule(ctx context.Context, table string, rule core.TriggerRule) error {
	if err := validIdent(table); err != nil {
		return err
	}

	enabled := 0
	if rule.IsEnabled {
		enabled = 1
	}
	query := fmt.Sprintf(`
INSERT OR REPLACE INTO %s
	(rule_name, sql_query, event_limit, time_int, severity,
	 source_table, out_table, message, is_enabled)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	if _, err := s.DB.ExecContext(ctx, query, rule.RuleName, rule.SQLQuery,
		rule.EventLimit, rule.TimeInt, rule.Severity, rule.SourceTable,
		rule.OutTable, rule.Message, enabled); err != nil {
		return fmt.Errorf("failed to insert trigger rule %s: %w", rule.RuleName, err)
	}
	return nil
}
