package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// AlertStore persists pipeline and trigger alerts. It is the primary
// core.AlertSink; notification sinks fan out beside it.
type AlertStore struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewAlertStore creates an alert store over an open database.
func NewAlertStore(db *SQLite, logger *zap.SugaredLogger) *AlertStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AlertStore{db: db, logger: logger}
}

// Emit implements core.AlertSink.
func (s *AlertStore) Emit(ctx context.Context, alert *core.Alert) error {
	eventIDs, err := json.Marshal(alert.EventIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event IDs: %w", err)
	}

	_, err = s.db.DB.ExecContext(ctx, `
INSERT INTO alerts
	(alert_id, type, rule_name, severity, timestamp, source,
	 description, event_ids, event_count, score, magnitude)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.AlertID, alert.Type, alert.RuleName, alert.Severity,
		alert.Timestamp.UTC().Format(time.RFC3339Nano), alert.Source,
		alert.Description, string(eventIDs), alert.Count, alert.Score,
		alert.Magnitude)
	if err != nil {
		return fmt.Errorf("failed to store alert %s: %w", alert.AlertID, err)
	}
	return nil
}

// CountAlerts reports how many alerts are stored, optionally filtered by
// type. An empty alertType counts everything.
func (s *AlertStore) CountAlerts(ctx context.Context, alertType string) (int, error) {
	var count int
	var err error
	if alertType == "" {
		err = s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&count)
	} else {
		err = s.db.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM alerts WHERE type = ?`, alertType).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// RuleEvent is one threshold row a trigger rule writes into its out-table.
type RuleEvent struct {
	DateStamp    string
	DateStampUTC string
	TZone        string
	SourceRule   string
	Severity     int
	SourceTable  string
	EventLimit   int
	EventCount   int
	Magnitude    int
	TimeInt      int
	Message      string
	SourceIDs    []int64
}

// InsertRuleEvent appends one threshold row to a rule's out-table.
func (s *SQLite) InsertRuleEvent(ctx context.Context, table string, ev RuleEvent) error {
	if err := validIdent(table); err != nil {
		return err
	}

	sourceIDs, err := json.Marshal(ev.SourceIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal source IDs: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s
	(date_stamp, date_stamp_utc, t_zone, source_rule, severity,
	 source_table, event_limit, event_count, magnitude, time_int,
	 message, source_ids)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	if _, err := s.DB.ExecContext(ctx, query, ev.DateStamp, ev.DateStampUTC,
		ev.TZone, ev.SourceRule, ev.Severity, ev.SourceTable, ev.EventLimit,
		ev.EventCount, ev.Magnitude, ev.TimeInt, ev.Message,
		string(sourceIDs)); err != nil {
		return fmt.Errorf("failed to insert rule event into %s: %w", table, err)
	}
	return nil
}
