package detect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/util/goroutine"

	"go.uber.org/zap"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	HistoryCapacity  int
	PatternRules     []core.PatternRule
	CorrelationRules []core.CorrelationRule
	Signatures       *SignatureCatalog
	// Scorer is the ML analyzer slot; nil disables anomaly scoring.
	Scorer Analyzer
	Sink   core.AlertSink
	Logger *zap.SugaredLogger
}

// DispatcherHealth is the dispatcher's liveness snapshot for external
// supervision.
type DispatcherHealth struct {
	Draining   bool `json:"draining"`
	QueueDepth int  `json:"queue_depth"`
}

// Dispatcher is the single logical consumer of the ingestion channel. It
// exclusively owns the event and alert histories and fans each event out
// to all analyzers in a fixed order (signature, ml, pattern, correlation,
// frequency, sequence) so alert emission is deterministic and
// reproducible. Events are fully handled before the next is dequeued.
type Dispatcher struct {
	history   *core.EventHistory
	alerts    *core.AlertHistory
	analyzers []Analyzer
	sink      core.AlertSink
	in        <-chan *core.Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	logger    *zap.SugaredLogger
	draining  atomic.Bool
}

// NewDispatcher creates a Dispatcher reading from in. The dispatcher
// constructs its own histories; analyzers receive read-only views.
func NewDispatcher(cfg DispatcherConfig, in <-chan *core.Event) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	history := core.NewEventHistory(cfg.HistoryCapacity)
	alerts := core.NewAlertHistory()

	analyzers := []Analyzer{NewSignatureAnalyzer(cfg.Signatures)}
	if cfg.Scorer != nil {
		analyzers = append(analyzers, cfg.Scorer)
	}
	analyzers = append(analyzers,
		NewPatternAnalyzer(cfg.PatternRules, history, logger),
		NewCorrelationAnalyzer(cfg.CorrelationRules, alerts),
		NewFrequencyAnalyzer(history),
		NewSequenceAnalyzer(history),
	)

	return &Dispatcher{
		history:   history,
		alerts:    alerts,
		analyzers: analyzers,
		sink:      cfg.Sink,
		in:        in,
		stopCh:    make(chan struct{}),
		logger:    logger,
	}
}

// Start begins consuming events.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop signals the consumer to stop after the event in flight and waits
// for it to exit.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// Health implements the liveness surface: whether the queue is being
// drained and how deep it currently is.
func (d *Dispatcher) Health() DispatcherHealth {
	return DispatcherHealth{
		Draining:   d.draining.Load(),
		QueueDepth: len(d.in),
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	defer goroutine.Recover("dispatcher", d.logger)

	d.draining.Store(true)
	defer d.draining.Store(false)

	d.logger.Info("Dispatcher started, waiting for events")
	processed := 0
	for {
		select {
		case <-d.stopCh:
			d.logger.Infof("Dispatcher stopping after %d events", processed)
			return
		case event, ok := <-d.in:
			if !ok {
				d.logger.Infof("Dispatcher input closed after %d events", processed)
				return
			}
			d.Handle(event)
			processed++
		}
	}
}

// Handle runs one event through the full pipeline: validation, history
// append, every analyzer in order, then ordered emission of the produced
// alerts. A failure inside a single analyzer is logged and skipped; it
// never prevents the remaining analyzers or subsequent events from being
// processed.
func (d *Dispatcher) Handle(event *core.Event) {
	if err := event.Validate(); err != nil {
		metrics.EventsDiscarded.WithLabelValues("malformed").Inc()
		d.logger.Warnf("Discarding malformed event: %v", err)
		return
	}

	d.history.Append(event)

	start := time.Now()
	var produced []*core.Alert
	for _, analyzer := range d.analyzers {
		alerts, err := d.evaluate(analyzer, event)
		if err != nil {
			metrics.AnalyzerFailures.WithLabelValues(analyzer.Name()).Inc()
			d.logger.Errorf("Error in %s analyzer: %v", analyzer.Name(), err)
			continue
		}
		produced = append(produced, alerts...)
	}
	metrics.EventProcessingDuration.Observe(time.Since(start).Seconds())

	// Emission order matches production order; alerts become visible to
	// correlation lookups only once emitted.
	for _, alert := range produced {
		metrics.AlertsGenerated.WithLabelValues(alert.Type, alert.Severity).Inc()
		if err := d.sink.Emit(context.Background(), alert); err != nil {
			metrics.SinkEmitFailures.Inc()
			d.logger.Errorf("Failed to emit %s alert: %v", alert.Type, err)
		}
		d.alerts.Append(alert)
	}
}

// evaluate calls one analyzer with panic isolation.
func (d *Dispatcher) evaluate(analyzer Analyzer, event *core.Event) (alerts []*core.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer %s panicked: %v", analyzer.Name(), r)
		}
	}()
	return analyzer.Evaluate(event)
}
