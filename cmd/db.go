package cmd

import (
	"fmt"

	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/server"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the drinks store",
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every drink and seed the default menu",
	RunE: func(c *cobra.Command, _ []string) error {
		ctx := c.Context()
		drinks, closer, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := drinks.Reset(ctx); err != nil {
			return err
		}
		logger.Info("Drinks reset", "store", cfg.Store)
		fmt.Println("drinks reset")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbResetCmd)
}
