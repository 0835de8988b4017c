// Package trigger runs persisted query-based threshold rules, one worker
// per enabled rule.
package trigger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"argus/core"
	"argus/storage"

	"go.uber.org/zap"
)

// Store is the persistence surface the engine needs. *storage.SQLite
// satisfies it.
type Store interface {
	GetTriggerRules(ctx context.Context, table string) ([]core.TriggerRule, error)
	CreateRuleEventTable(ctx context.Context, table string) error
	RunQuery(ctx context.Context, query string) ([]int64, error)
	InsertRuleEvent(ctx context.Context, table string, ev storage.RuleEvent) error
}

// Config holds the engine's run options.
type Config struct {
	// RuleTables are the tables rules are loaded from, in order.
	RuleTables []string
	// Oneshot checks every rule once and exits, skipping staggering.
	Oneshot bool
}

// Engine loads trigger rules and runs one polling worker per enabled
// rule. The engine's Done channel closes once every worker has exited,
// which in oneshot mode doubles as completion.
type Engine struct {
	cfg     Config
	store   Store
	sink    core.AlertSink
	logger  *zap.SugaredLogger
	stagger func(maxSeconds int) time.Duration

	mu      sync.Mutex
	workers []*worker

	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewEngine creates a trigger engine. sink may be nil when threshold rows
// alone are wanted.
func NewEngine(cfg Config, store Store, sink core.AlertSink, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		logger: logger,
		stagger: func(maxSeconds int) time.Duration {
			if maxSeconds <= 0 {
				return 0
			}
			return time.Duration(rand.Intn(maxSeconds)) * time.Second
		},
		done: make(chan struct{}),
	}
}

// Start loads the rules and spawns the workers. It returns an error when
// no rule table yields rules; individual worker failures surface through
// Health and Done instead.
func (e *Engine) Start(ctx context.Context) error {
	var rules []core.TriggerRule
	for _, table := range e.cfg.RuleTables {
		loaded, err := e.store.GetTriggerRules(ctx, table)
		if err != nil {
			// No workers were spawned; close done so Stop returns.
			close(e.done)
			return fmt.Errorf("loading trigger rules from %s: %w", table, err)
		}
		rules = append(rules, loaded...)
	}

	ctx, e.cancel = context.WithCancel(ctx)

	started := 0
	for _, rule := range rules {
		if !rule.IsEnabled {
			e.logger.Infof("Trigger rule %s is disabled, skipping", rule.RuleName)
			continue
		}
		w := &worker{
			rule:    rule,
			store:   e.store,
			sink:    e.sink,
			stagger: e.stagger,
			oneshot: e.cfg.Oneshot,
			logger:  e.logger,
		}
		e.mu.Lock()
		e.workers = append(e.workers, w)
		e.mu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			w.run(ctx)
		}()
		started++
	}

	e.logger.Infof("Trigger engine started %d of %d rules", started, len(rules))

	go func() {
		e.wg.Wait()
		close(e.done)
	}()
	return nil
}

// Done closes once every worker has exited, whether by completion,
// cancellation, or failure.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Stop cancels all workers at their next wake point and waits for them.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
}

// Health reports per-worker liveness keyed by rule name.
func (e *Engine) Health() map[string]WorkerHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]WorkerHealth, len(e.workers))
	for _, w := range e.workers {
		h := w.health()
		out[h.RuleName] = h
	}
	return out
}
