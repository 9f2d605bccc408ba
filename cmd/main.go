package main

import (
	"fmt"
	"os"

	"foxglove-bridge/internal/config"
	"foxglove-bridge/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "foxglove-bridge",
	Short: "Foxglove device bridge - authorize and stream remote visualization sessions",
	Long: `A lightweight client for the Foxglove device platform. The bridge
exchanges a long-lived device token for device metadata and short-lived
session credentials, caches the credentials, and can connect to the
authorized remote visualization stream.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging for a subcommand run.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.Initialize(level)
	if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
		return nil, nil, fmt.Errorf("failed to set up file logging: %w", err)
	}

	return cfg, logger, nil
}
