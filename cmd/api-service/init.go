package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/freelance-marketplace/internal/api/events"
	"github.com/cuongbtq/freelance-marketplace/internal/api/handler"
	"github.com/cuongbtq/freelance-marketplace/internal/api/metrics"
	"github.com/cuongbtq/freelance-marketplace/internal/api/router"
	"github.com/cuongbtq/freelance-marketplace/internal/api/service"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage/memory"
	mongostore "github.com/cuongbtq/freelance-marketplace/internal/api/storage/mongo"
	pgstore "github.com/cuongbtq/freelance-marketplace/internal/api/storage/postgres"
	"github.com/cuongbtq/freelance-marketplace/internal/config"
	"github.com/cuongbtq/freelance-marketplace/shared/logger"
	"github.com/cuongbtq/freelance-marketplace/shared/mongodb"
	"github.com/cuongbtq/freelance-marketplace/shared/postgresql"
	"github.com/cuongbtq/freelance-marketplace/shared/rabbitmq"
	"github.com/cuongbtq/freelance-marketplace/shared/telemetry"
	"github.com/gin-gonic/gin"
)

// initLogger initializes the application logger. Every record carries the
// service name and version.
func initLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
			slog.String("version", cfg.App.Version),
		},
	})
}

// initTracing installs the OpenTelemetry tracer provider when enabled
func initTracing(ctx context.Context, cfg *config.Config) (telemetry.ShutdownFunc, error) {
	return telemetry.Setup(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
	})
}

// openStore connects the configured storage backend
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := mongodb.NewClient(ctx, &mongodb.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			MinPoolSize:    cfg.Mongo.MinPoolSize,
		}, logger)
		if err != nil {
			return nil, err
		}
		return mongostore.New(client, logger), nil

	case config.DriverPostgres:
		client, err := initPostgreSQL(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return pgstore.New(client, logger), nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Store.Driver)
	}
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		ConnectTimeout:  cfg.ConnectTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(ctx, dbConfig, logger)
}

// initPublisher connects to RabbitMQ when enabled. Events are best effort,
// so a broker that cannot be reached downgrades to a no-op publisher.
func initPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Publisher, *rabbitmq.Client) {
	if !cfg.RabbitMQ.Enabled {
		return events.NopPublisher{}, nil
	}

	rabbitClient, err := initRabbitMQ(ctx, &cfg.RabbitMQ, cfg.App.Name, logger)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, domain events are disabled",
			slog.Any("error", err),
		)
		return events.NopPublisher{}, nil
	}

	logger.Info("RabbitMQ connection established")
	return events.NewRabbitPublisher(rabbitClient), rabbitClient
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(ctx context.Context, cfg *config.RabbitMQConfig, appID string, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		BindingKey:         cfg.RoutingKey,
		AppID:              appID,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		Publish: rabbitmq.RetryPolicy{
			MaxRetries:        cfg.Publish.RetryAttempts,
			InitialDelay:      cfg.Publish.RetryInterval,
			BackoffMultiplier: cfg.Publish.BackoffMultiplier,
		},
	}

	return rabbitmq.NewClient(ctx, rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, store storage.Store, publisher events.Publisher) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	serviceCfg := &service.Config{
		Store:     store,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	}

	// Initialize handler dependencies
	handlerDeps := &handler.Dependencies{
		Logger:  logger,
		Store:   store,
		Jobs:    service.NewJobService(serviceCfg),
		Tasks:   service.NewTaskService(serviceCfg),
		Metrics: m,
	}

	// Setup router
	return router.SetupRouter(handlerDeps, &router.Config{
		ServiceName:  cfg.App.Name,
		AllowOrigins: cfg.CORS.AllowOrigins,
		Tracing:      cfg.Telemetry.Enabled,
	})
}
