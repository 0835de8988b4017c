package storage

import (
	"context"
	"fmt"
)

const triggerRulesSchema = `
CREATE TABLE IF NOT EXISTS trigger_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_name TEXT NOT NULL UNIQUE,
	sql_query TEXT NOT NULL,
	event_limit INTEGER NOT NULL DEFAULT 0,
	time_int INTEGER NOT NULL DEFAULT 0,
	severity INTEGER NOT NULL DEFAULT 0,
	source_table TEXT NOT NULL DEFAULT '',
	out_table TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	is_enabled INTEGER NOT NULL DEFAULT 1
);
`

const alertsSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	alert_id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	rule_name TEXT,
	severity TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	source TEXT,
	description TEXT NOT NULL,
	event_ids TEXT,
	event_count INTEGER NOT NULL DEFAULT 0,
	score REAL NOT NULL DEFAULT 0,
	magnitude INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
CREATE INDEX IF NOT EXISTS idx_alerts_rule_name ON alerts(rule_name);
`

// Migrate creates the tables the engine itself depends on. Rule-event
// out-tables are created on demand per rule.
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, schema := range []string{triggerRulesSchema, alertsSchema} {
		if _, err := s.DB.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// CreateRuleEventTable creates the out-table a trigger rule writes its
// threshold rows into. The name is validated before interpolation.
func (s *SQLite) CreateRuleEventTable(ctx context.Context, table string) error {
	if err := validIdent(table); err != nil {
		return err
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date_stamp TEXT NOT NULL,
	date_stamp_utc TEXT NOT NULL,
	t_zone TEXT NOT NULL,
	source_rule TEXT NOT NULL,
	severity INTEGER NOT NULL,
	source_table TEXT NOT NULL,
	event_limit INTEGER NOT NULL,
	event_count INTEGER NOT NULL,
	magnitude INTEGER NOT NULL,
	time_int INTEGER NOT NULL,
	message TEXT NOT NULL,
	source_ids TEXT NOT NULL
)`, table)

	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create rule event table %s: %w", table, err)
	}
	return nil
}
