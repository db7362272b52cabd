package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"teamhub/config"
	"teamhub/middleware"
	"teamhub/policy"
	"teamhub/routes"
	"teamhub/store"
	"teamhub/utils"
	"teamhub/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command) error {
	if err := config.ConnectDB(); err != nil {
		return err
	}
	cfg := config.AppConfig

	stores := store.NewGormStores(config.DB)
	tokens := utils.NewTokenIssuer(config.DB, cfg.SecretKey, cfg.AccessTokenLifetime, cfg.RefreshTokenLifetime)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.AllowedOrigins

	app := routes.NewApp(routes.Deps{
		Stores:           stores,
		Tokens:           tokens,
		Policy:           policy.NewEngine(stores.Memberships),
		Logger:           logger,
		AuthRateLimit:    cfg.RateLimitAuth,
		RateLimitStorage: middleware.RateLimitStorage(cfg.Redis),
		CORS:             cors,
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cleanup := worker.NewTokenCleanupWorker(tokens, cfg.TokenCleanupInterval, logger.WithField("component", "token_cleanup"))
	go cleanup.Start(ctx)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithContext(context.Background()); err != nil {
			logger.WithError(err).Error("shutdown failed")
		}
	}()

	logger.Infof("🚀 Server starting on port %s", cfg.ServerPort)
	return app.Listen(":" + cfg.ServerPort)
}
