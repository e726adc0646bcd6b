package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/freelance-marketplace/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "configs/api-service/config.yaml"
	migrateTimeout    = time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "api-service",
		Short:         "Freelance marketplace API service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if it exists
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables or flags")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), resolveConfigPath(configPath))
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default $API_SERVICE_CONFIG_PATH or "+defaultConfigPath+")")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), resolveConfigPath(configPath))
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the store indexes and tables, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), resolveConfigPath(configPath))
		},
	})

	return rootCmd
}

// resolveConfigPath picks the flag, then API_SERVICE_CONFIG_PATH, then the
// default file when present. An empty result means environment only.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return config.ResolvePath(os.Getenv("API_SERVICE_CONFIG_PATH"), defaultConfigPath)
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Initialize logger
	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("environment", cfg.App.Environment),
		slog.String("store_driver", cfg.Store.Driver),
	)

	// Initialize tracing
	shutdownTracing, err := initTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	// Runs last, after the store and broker are closed
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", slog.Any("error", err))
		}
	}()

	// Initialize store
	store, err := openStore(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if cfg.Store.Migrate {
		migrateCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
		err := store.Migrate(migrateCtx)
		cancel()
		if err != nil {
			_ = store.Close(context.Background())
			return fmt.Errorf("failed to migrate store: %w", err)
		}
		appLogger.Info("Store migrated")
	}

	// Initialize event publisher
	publisher, rabbitClient := initPublisher(ctx, cfg, appLogger.Logger)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, store, publisher)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		runErr = err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			appLogger.Error("Failed to close store", slog.Any("error", err))
		}
		if rabbitClient != nil {
			if err := rabbitClient.Close(); err != nil {
				appLogger.Error("Failed to close RabbitMQ client", slog.Any("error", err))
			}
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	if runErr != nil {
		return runErr
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

func migrate(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	store, err := openStore(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close(context.Background())

	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	appLogger.Info("Store migrated", slog.String("store_driver", cfg.Store.Driver))
	return nil
}
