// Package cmd holds the teamhub command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"teamhub/config"
)

var (
	// flags
	envFile string

	logger *logrus.Logger
)

var RootCmd = &cobra.Command{
	Use:   "teamhub",
	Short: "Team collaboration API",
	Long:  "teamhub serves the users, teams and channels API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		if err := config.LoadConfig(); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		var err error
		logger, err = config.SetupLogger(config.AppConfig)
		if err != nil {
			// sentry is optional, keep going with plain logging
			logger.WithError(err).Warn("error tracking disabled")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		config.FlushSentry()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (defaults to .env when present)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
