package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"teamhub/apperr"
	"teamhub/config"
	"teamhub/store"
)

var (
	seedCount    int
	seedPassword string

	superuserEmail    string
	superuserPassword string
)

var seedUsersCmd = &cobra.Command{
	Use:   "seed-users",
	Short: "Create user{i}@example.com accounts for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ConnectDB(); err != nil {
			return err
		}
		users := store.NewGormUserStore(config.DB)

		created := 0
		for i := 0; i < seedCount; i++ {
			email := fmt.Sprintf("user%d@example.com", i)
			_, err := users.CreateUser(cmd.Context(), store.NewUser{
				Email:     email,
				Password:  seedPassword,
				FirstName: fmt.Sprintf("User%d", i),
				LastName:  "Example",
			})
			if apperr.Is(err, apperr.KindValidation) {
				logger.WithField("email", email).Info("user exists, skipping")
				continue
			}
			if err != nil {
				return fmt.Errorf("create %s: %w", email, err)
			}
			created++
		}
		logger.Infof("Created %d users", created)
		return nil
	},
}

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create a staff superuser account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if superuserEmail == "" || superuserPassword == "" {
			return fmt.Errorf("--email and --password are required")
		}
		if err := config.ConnectDB(); err != nil {
			return err
		}

		user, err := store.NewGormUserStore(config.DB).CreateUser(cmd.Context(), store.NewUser{
			Email:       superuserEmail,
			Password:    superuserPassword,
			IsSuperuser: true,
		})
		if err != nil {
			return err
		}
		logger.WithField("user_id", user.ID).Info("superuser created")
		return nil
	},
}

func init() {
	seedUsersCmd.Flags().IntVar(&seedCount, "count", 20, "number of users to create")
	seedUsersCmd.Flags().StringVar(&seedPassword, "password", "password123", "password for every seeded user")

	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "email of the superuser")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", "", "password of the superuser")

	RootCmd.AddCommand(seedUsersCmd, createSuperuserCmd)
}
