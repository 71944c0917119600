package cmd

import (
	"fmt"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"start"},
	Short:   "Start the drinks API server",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Info("Configuration loaded", "config", cfg.String())
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
