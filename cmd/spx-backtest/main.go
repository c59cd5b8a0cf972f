package main

import (
	"fmt"
	"os"

	"spx-backtester/internal/cli"
	"spx-backtester/internal/config"
	"spx-backtester/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
