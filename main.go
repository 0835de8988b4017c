// Package main is the entry point for the Argus event correlation
// service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"argus/bootstrap"
	"argus/cmd"
)

// run initializes and starts the full service: listener, detection
// pipeline, trigger engine, and the operational HTTP surface.
func run(configPath string) error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()
	return nil
}

func main() {
	// CLI subcommand mode: run only the trigger engine.
	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)
		triggerCmd := cmd.NewTriggerCmd()
		if err := triggerCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("c", "", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
