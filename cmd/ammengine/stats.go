package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ammEngine/internal/aggregate"
	"ammEngine/internal/config"
)

func runStats(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStats(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	agg, err := aggregate.NewAggregator(cfg.Window, logger)
	if err != nil {
		return err
	}

	file, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open swap log: %w", err)
	}
	defer file.Close()

	stats, err := agg.Run(file)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), cfg.Output, stats)
}
