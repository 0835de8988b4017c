package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/storage"
	"argus/util/goroutine"

	"go.uber.org/zap"
)

const datestampLayout = "20060102150405"

// WorkerHealth is one worker's liveness snapshot.
type WorkerHealth struct {
	RuleName            string    `json:"rule_name"`
	Alive               bool      `json:"alive"`
	LastPoll            time.Time `json:"last_poll,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// worker polls one trigger rule. A worker failure only kills that worker;
// the engine reports it through Health and the all-exited channel.
type worker struct {
	rule    core.TriggerRule
	store   Store
	sink    core.AlertSink
	stagger func(maxSeconds int) time.Duration
	oneshot bool
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	alive    bool
	lastPoll time.Time
	failures int
}

func (w *worker) health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerHealth{
		RuleName:            w.rule.RuleName,
		Alive:               w.alive,
		LastPoll:            w.lastPoll,
		ConsecutiveFailures: w.failures,
	}
}

func (w *worker) run(ctx context.Context) {
	defer goroutine.Recover("trigger-"+w.rule.RuleName, w.logger)

	w.mu.Lock()
	w.alive = true
	w.mu.Unlock()
	metrics.TriggerWorkersAlive.Inc()
	defer func() {
		w.mu.Lock()
		w.alive = false
		w.mu.Unlock()
		metrics.TriggerWorkersAlive.Dec()
	}()

	if err := w.store.CreateRuleEventTable(ctx, w.rule.OutTable); err != nil {
		w.logger.Errorf("Worker for rule %s cannot create out-table: %v", w.rule.RuleName, err)
		return
	}

	// Oneshot checks immediately, and an interval of zero means a single
	// immediate check as well.
	if w.oneshot || w.rule.TimeInt == 0 {
		w.poll(ctx)
		return
	}

	interval := time.Duration(w.rule.TimeInt) * time.Minute

	// Stagger the first poll so workers sharing the database do not all
	// wake at once.
	if !w.sleep(ctx, w.stagger(w.rule.TimeInt*60)) {
		return
	}

	for {
		w.poll(ctx)
		if !w.sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits for d, reporting false when the context ended first.
func (w *worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// poll runs the rule query once and fires a threshold alert when the row
// count exceeds the event limit.
func (w *worker) poll(ctx context.Context) {
	w.mu.Lock()
	w.lastPoll = time.Now().UTC()
	w.mu.Unlock()

	ids, err := w.store.RunQuery(ctx, w.rule.SQLQuery)
	if err != nil {
		metrics.TriggerPolls.WithLabelValues(w.rule.RuleName, "error").Inc()
		w.mu.Lock()
		w.failures++
		w.mu.Unlock()
		w.logger.Errorf("Trigger rule %s query failed: %v", w.rule.RuleName, err)
		return
	}

	w.mu.Lock()
	w.failures = 0
	w.mu.Unlock()

	if len(ids) <= w.rule.EventLimit {
		metrics.TriggerPolls.WithLabelValues(w.rule.RuleName, "quiet").Inc()
		return
	}

	if err := w.fire(ctx, ids); err != nil {
		metrics.TriggerPolls.WithLabelValues(w.rule.RuleName, "error").Inc()
		w.logger.Errorf("Trigger rule %s failed to record threshold: %v", w.rule.RuleName, err)
		return
	}
	metrics.TriggerPolls.WithLabelValues(w.rule.RuleName, "fired").Inc()
}

func (w *worker) fire(ctx context.Context, ids []int64) error {
	magnitude := Magnitude(len(ids), w.rule.EventLimit, w.rule.Severity)
	now := time.Now()

	ev := storage.RuleEvent{
		DateStamp:    now.Format(datestampLayout),
		DateStampUTC: now.UTC().Format(datestampLayout),
		TZone:        now.Format("-0700"),
		SourceRule:   w.rule.RuleName,
		Severity:     w.rule.Severity,
		SourceTable:  w.rule.SourceTable,
		EventLimit:   w.rule.EventLimit,
		EventCount:   len(ids),
		Magnitude:    magnitude,
		TimeInt:      w.rule.TimeInt,
		Message:      w.rule.Message,
		SourceIDs:    ids,
	}
	if err := w.store.InsertRuleEvent(ctx, w.rule.OutTable, ev); err != nil {
		return err
	}

	alert := core.NewAlert(core.AlertTypeThreshold, w.rule.RuleName,
		SeverityLabel(w.rule.Severity), "",
		fmt.Sprintf("%s: %d events over limit %d",
			w.rule.Message, len(ids), w.rule.EventLimit))
	alert.Count = len(ids)
	alert.Magnitude = magnitude

	if w.sink != nil {
		if err := w.sink.Emit(ctx, alert); err != nil {
			w.logger.Errorf("Trigger rule %s failed to emit alert: %v", w.rule.RuleName, err)
		}
	}
	return nil
}

// Magnitude computes a threshold row's magnitude. Division is integral;
// lower numeric severities weigh heavier.
func Magnitude(eventCount, eventLimit, severity int) int {
	return ((eventCount/2)/(eventLimit+1)/2 + 5) * (7 - severity)
}

// SeverityLabel maps the numeric 0..7 rule severity onto an alert
// severity, 0 being the most severe.
func SeverityLabel(severity int) string {
	switch {
	case severity <= 1:
		return core.SeverityCritical
	case severity <= 3:
		return core.SeverityHigh
	case severity <= 5:
		return core.SeverityMedium
	default:
		return core.SeverityWarning
	}
}
