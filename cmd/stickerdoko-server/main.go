package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/config"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/database"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/logger"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/telegram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// @title Stickerdoko Admin API
// @version 1.0
// @description Operator API for the sticker tagging bot.

// @contact.name Stickerdoko Support
// @contact.url https://github.com/mikepea/stickerdoko

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Admin JWT from /admin/token. Format: "Bearer {token}"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	v := config.New()

	rootCmd := &cobra.Command{
		Use:          "stickerdoko-server",
		Short:        "Telegram bot for tagging stickers and finding them by inline search",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML, TOML or JSON)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	load := func(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
		return loadConfig(v, cmd, configPath)
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	return rootCmd
}

type loader func(cmd *cobra.Command) (*config.Config, *slog.Logger, error)

func loadConfig(v *viper.Viper, cmd *cobra.Command, configPath string) (*config.Config, *slog.Logger, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}
	if err := config.ReadFile(v, configPath); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	slog.SetDefault(log)
	return cfg, log, nil
}

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.Database.DSN, database.WithLogger(log))
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			log.Info("database migrations completed")
			return nil
		},
	}
}

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Telegram webhook and admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := database.Connect(cfg.Database.DSN, database.WithLogger(log))
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations completed")

	if logger.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := newServices(db, cfg, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(svc, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Telegram.WebhookURL != "" {
		g.Go(func() error {
			registerWebhook(gctx, cfg.Telegram, log)
			return nil
		})
	}

	return g.Wait()
}

// registerWebhook points Telegram at this server. Failure is logged only;
// a webhook registered earlier keeps working.
func registerWebhook(ctx context.Context, cfg config.TelegramConfig, log *slog.Logger) {
	client := telegram.NewClient(cfg.Token)
	if err := client.SetWebhook(ctx, cfg.WebhookURL, cfg.SecretToken); err != nil {
		log.Error("failed to register telegram webhook", "url", cfg.WebhookURL, "error", err)
		return
	}
	log.Info("telegram webhook registered", "url", cfg.WebhookURL)
}
