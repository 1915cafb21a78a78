package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/trade-insights/internal/api/handler"
	"github.com/cuongbtq/trade-insights/internal/api/router"
	"github.com/cuongbtq/trade-insights/internal/app"
	"github.com/cuongbtq/trade-insights/internal/config"
	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/internal/storage"
	"github.com/cuongbtq/trade-insights/internal/worker"
	"github.com/cuongbtq/trade-insights/shared/logger"
	"github.com/cuongbtq/trade-insights/shared/postgresql"
	"github.com/cuongbtq/trade-insights/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("DASHBOARD_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/dashboard-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting dashboard service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("jobs_enabled", cfg.Jobs.Enabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	migrated, err := storage.Migrate(ctx, dbClient.GetDB(), appLogger.Component("migrate"))
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	appLogger.Info("Database schema ready",
		slog.Int("executed", migrated.Executed),
		slog.Int("skipped", migrated.Skipped),
	)

	store := storage.NewStorage(dbClient, appLogger.Component("storage"))

	// RabbitMQ is optional: without it there are no run events and no queued triggers
	var (
		publisher *rabbitmq.Client
		consumer  *rabbitmq.Client
		opts      []app.Option
	)
	if cfg.RabbitMQ.Enabled {
		publisher, err = initRabbitMQ(&cfg.RabbitMQ, "", appLogger.Component("rabbitmq"))
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ publisher: %w", err)
		}
		defer publisher.Close()

		events := worker.NewEventPublisher(publisher, cfg.RabbitMQ.EventsRoutingKey, appLogger.Component("events"))
		opts = append(opts, app.WithNotifier(events))
		appLogger.Info("RabbitMQ connection established")
	}

	pipeline, err := app.Build(ctx, cfg, store, appLogger.Logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to build job pipeline: %w", err)
	}
	defer pipeline.Close()

	scheduler := jobs.NewScheduler(pipeline.Registry, pipeline.Runner, store, jobs.SchedulerConfig{
		Enabled:      cfg.Jobs.Enabled,
		Workers:      cfg.Jobs.SchedulerWorkers,
		MisfireGrace: cfg.Jobs.MisfireGrace,
		Warmup: jobs.WarmupConfig{
			Enabled:       cfg.Jobs.WarmupOnStart,
			InitialDelay:  cfg.Jobs.WarmupInitialDelay,
			Spacing:       cfg.Jobs.WarmupSpacing,
			InsightsDelay: cfg.Jobs.WarmupInsightsDelay,
		},
	}, appLogger.Component("scheduler"))
	pipeline.Registry.SetReloader(scheduler)

	if err := scheduler.Init(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	var triggerWorker *worker.Worker
	if cfg.RabbitMQ.Enabled {
		consumer, err = initRabbitMQ(&cfg.RabbitMQ, cfg.RabbitMQ.Queue.Name, appLogger.Component("rabbitmq"))
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ consumer: %w", err)
		}
		defer consumer.Close()

		triggerWorker = worker.NewWorker(&worker.Config{
			Logger:        appLogger.Component("worker"),
			Source:        consumer,
			Trigger:       pipeline.Runner,
			Concurrency:   cfg.RabbitMQ.Consumer.Concurrency,
			PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
			QueueName:     cfg.RabbitMQ.Queue.Name,
		})
		go func() {
			if err := triggerWorker.Start(ctx); err != nil {
				appLogger.Error("Trigger worker stopped with error",
					slog.Any("error", err),
				)
			}
		}()
	}

	r := initRouter(cfg, &handler.Dependencies{
		Logger:      appLogger.Component("api"),
		Registry:    pipeline.Registry,
		Trigger:     pipeline.Runner,
		Scheduler:   scheduler,
		Store:       store,
		DB:          dbClient,
		JobsEnabled: pipeline.Runner.Enabled,
		Memory:      handler.HostMemory,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("Dashboard service is running",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		appLogger.Error("Server failed",
			slog.Any("error", err),
		)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if triggerWorker != nil {
		triggerWorker.Stop()
	}
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ opens a client; an empty queue makes it publish-only
func initRabbitMQ(cfg *config.RabbitMQConfig, queue string, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          queue,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initRouter sets the gin mode and builds the router
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, router.Options{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})
}
