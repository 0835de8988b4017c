// Package bootstrap wires the service components together and manages
// their lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"argus/api"
	"argus/config"
	"argus/core"
	"argus/detect"
	"argus/ingest"
	"argus/ml"
	"argus/notify"
	"argus/storage"
	"argus/trigger"

	"go.uber.org/zap"
)

// App is the assembled service: listener, detection pipeline, trigger
// engine, alert sinks, and the operational HTTP surface.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Storage *storage.SQLite
	Redis   *core.RedisCache

	EventCh chan *core.Event

	Dispatcher    *detect.Dispatcher
	TriggerEngine *trigger.Engine
	Listener      *ingest.JSONListener
	HealthServer  *api.Server

	shutdownCh chan struct{}
}

// NewApp creates and initializes all components without starting them.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	app := &App{shutdownCh: make(chan struct{})}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Argus starting...")

	cfg, err := InitConfig(configPath, sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	db, err := storage.NewSQLite(cfg.Storage.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	app.Storage = db
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.EventCh = make(chan *core.Event, cfg.Pipeline.ChannelBuffer)

	sink, err := app.buildSink(ctx)
	if err != nil {
		return nil, err
	}

	scorer, err := app.buildScorer()
	if err != nil {
		return nil, err
	}

	catalog := detect.NewSignatureCatalog(sugar)
	if cfg.Signatures.CustomFile != "" {
		if err := catalog.LoadCustomFile(cfg.Signatures.CustomFile); err != nil {
			sugar.Warnf("Could not load custom signatures: %v", err)
		}
	}

	app.Dispatcher = detect.NewDispatcher(detect.DispatcherConfig{
		HistoryCapacity:  cfg.Pipeline.HistoryCapacity,
		PatternRules:     core.DefaultPatternRules(),
		CorrelationRules: core.DefaultCorrelationRules(),
		Signatures:       catalog,
		Scorer:           scorer,
		Sink:             sink,
		Logger:           sugar,
	}, app.EventCh)

	app.TriggerEngine = trigger.NewEngine(trigger.Config{
		RuleTables: cfg.Trigger.RuleTables,
	}, db, sink, sugar)

	app.Listener = ingest.NewJSONListener(cfg.Listener.Host, cfg.Listener.Port,
		cfg.Listener.RateLimit, app.EventCh, sugar)

	app.HealthServer = api.NewServer(cfg.Health.Host, cfg.Health.Port,
		app.Dispatcher, app.TriggerEngine, sugar)

	return app, nil
}

// buildSink assembles the alert fanout: the store sink always, the
// webhook sink when configured.
func (a *App) buildSink(_ context.Context) (core.AlertSink, error) {
	sinks := core.FanoutSink{storage.NewAlertStore(a.Storage, a.Sugar)}

	wh := a.Config.Notify.Webhook
	if wh.Enabled {
		sinks = append(sinks, notify.NewWebhookSink(notify.WebhookConfig{
			URL:         wh.URL,
			Method:      wh.Method,
			Headers:     wh.Headers,
			MinSeverity: wh.MinSeverity,
		}, a.Sugar))
		a.Sugar.Infof("Webhook alert sink enabled for %s", wh.URL)
	}
	return sinks, nil
}

// buildScorer assembles the ml analyzer when enabled, with the configured
// feature cache in front of extraction.
func (a *App) buildScorer() (detect.Analyzer, error) {
	mlCfg := a.Config.ML
	if !mlCfg.Enabled {
		return nil, nil
	}

	var cache ml.FeatureCache
	if mlCfg.Redis.Enabled {
		a.Redis = core.NewRedisCache(mlCfg.Redis.Addr, mlCfg.Redis.Password,
			mlCfg.Redis.DB, a.Sugar)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis feature cache unreachable: %w", err)
		}
		cache = ml.NewRedisFeatureCache(a.Redis, a.Sugar)
		a.Sugar.Infof("Redis feature cache enabled at %s", mlCfg.Redis.Addr)
	} else {
		lruCache, err := ml.NewLRUFeatureCache(mlCfg.CacheSize)
		if err != nil {
			return nil, err
		}
		cache = lruCache
	}

	return ml.NewScoringAdapter(ml.NewHeuristicScorer(), cache, mlCfg.CacheTTL, a.Sugar), nil
}

// Start starts all services.
func (a *App) Start(ctx context.Context) error {
	a.Dispatcher.Start()
	if err := a.TriggerEngine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start trigger engine: %w", err)
	}
	a.Listener.Start()
	a.HealthServer.Start()
	a.Sugar.Info("Argus started")
	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		a.Sugar.Infof("Received signal %s, shutting down", sig)
	case <-a.shutdownCh:
	}
}

// Shutdown stops all services in reverse start order and closes the
// storage.
func (a *App) Shutdown() {
	a.Sugar.Info("Argus shutting down...")

	if a.Listener != nil {
		a.Listener.Stop()
	}
	if a.HealthServer != nil {
		a.HealthServer.Stop()
	}
	if a.TriggerEngine != nil {
		a.TriggerEngine.Stop()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Sugar.Errorf("Failed to close storage: %v", err)
		}
	}

	a.Sugar.Info("Argus stopped")
	_ = a.Logger.Sync()
}
