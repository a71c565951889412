package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/xwsync/internal/api"
	"github.com/mcoot/xwsync/internal/factory"
	redisstorage "github.com/mcoot/xwsync/internal/storage/redis"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Listen port (env: XWSYNC_PORT)")
	cmd.Flags().StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: memory or redis (env: XWSYNC_STORAGE)")
	cmd.Flags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL (env: XWSYNC_REDIS_URL)")
	cmd.Flags().StringVar(&cfg.Dictionary, "dict", cfg.Dictionary, "Dictionary file (env: XWSYNC_DICT)")

	return cmd
}

// FactoryConfig builds the application config for a server
func (c *Config) FactoryConfig(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		DictionaryPath: c.Dictionary,
		Logger:         logger,
		StorageType:    c.Storage,
	}
	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// Serve runs the API server until ctx is cancelled
func Serve(ctx context.Context, c *Config, logger *slog.Logger) error {
	app, err := factory.New(ctx, c.FactoryConfig(logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close application", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Sessions:   app.Sessions,
		Dictionary: app.Dictionary,
		Events:     app.Events,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = c.Port
	server := api.NewServer(router, serverConfig, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	}
}
