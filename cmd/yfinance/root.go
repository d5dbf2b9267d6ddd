package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yfinance-go/src/config"
	"yfinance-go/src/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "yfinance",
	Short:         "yfinance fetches Yahoo Finance datasets through a cookie and crumb session.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults plus YF_* environment when empty)")
}

// -----------------------------------------------------------------------------

// loadConfig reads the config and routes logs to stderr so stdout stays
// clean for command output.
func loadConfig() (*config.Config, error) {
	logger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}
