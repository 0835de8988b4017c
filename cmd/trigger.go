// Package cmd provides command-line interface commands for Argus.
package cmd

import (
	"context"
	"fmt"

	"argus/bootstrap"
	"argus/storage"
	"argus/trigger"

	"github.com/spf13/cobra"
)

var (
	triggerConfigFile string
	triggerTables     []string
	triggerOneshot    bool
)

// NewTriggerCmd builds the `argus trigger` command: run the query-based
// threshold rules without the ingestion pipeline.
func NewTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run the trigger rule engine",
		Long: `Run the trigger rule engine standalone. Rules are loaded from the
configured rule tables and polled on their own intervals; --oneshot
checks every rule once and exits.`,
		RunE: runTrigger,
	}

	cmd.Flags().StringVarP(&triggerConfigFile, "config", "c", "", "config file path")
	cmd.Flags().StringArrayVar(&triggerTables, "table", nil, "rule table to load (repeatable, overrides config)")
	cmd.Flags().BoolVar(&triggerOneshot, "oneshot", false, "check the database once and exit")
	return cmd
}

func runTrigger(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, sugar, err := bootstrap.InitLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := bootstrap.InitConfig(triggerConfigFile, sugar)
	if err != nil {
		return err
	}

	tables := cfg.Trigger.RuleTables
	if len(triggerTables) > 0 {
		tables = triggerTables
	}

	db, err := storage.NewSQLite(cfg.Storage.SQLitePath, sugar)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	engine := trigger.NewEngine(trigger.Config{
		RuleTables: tables,
		Oneshot:    triggerOneshot,
	}, db, storage.NewAlertStore(db, sugar), sugar)

	if err := engine.Start(ctx); err != nil {
		return err
	}

	// The engine finishes when every worker has exited: immediately in
	// oneshot mode, otherwise on cancellation or after all workers fail.
	<-engine.Done()
	sugar.Info("Trigger engine finished")
	return nil
}
