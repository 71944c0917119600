package cmd

import (
	"os"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "drinks",
	Short:        "Coffee shop drinks API",
	Long:         `drinks serves the coffee shop menu and guards changes behind token permissions.`,
	SilenceUsage: true,
}

func Execute(c *config.Config) {
	cfg = c
	logger.Debug("Starting CLI", "env", cfg.AppEnv)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
