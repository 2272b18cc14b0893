/**
 * @description
 * This is the main entry point for the bank-accounts service. It initializes all
 * necessary components, exposes the /account HTTP API, runs the monthly
 * transaction reset on a cron schedule and listens for reset requests on RabbitMQ.
 *
 * Key features:
 * - Loads application configuration from environment variables.
 * - Chooses the account store (PostgreSQL connection pool or in-memory).
 * - Uses Redis for per-account locking when REDIS_URL is set, so every replica
 *   shares the same single-writer discipline.
 * - Publishes account events, falling back to a no-op producer when RabbitMQ is down.
 * - Implements graceful shutdown of the HTTP server, scheduler and consumer.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/api"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/app"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/config"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/store"
	"github.com/achumpitazy/bootcamp-bankaccounts/pkg/customerclient"
	"github.com/achumpitazy/bootcamp-bankaccounts/pkg/metrics"
	"github.com/achumpitazy/bootcamp-bankaccounts/pkg/rabbitmq"
	"github.com/achumpitazy/bootcamp-bankaccounts/pkg/transactionclient"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	for _, t := range domain.TypeAccounts() {
		logger.Info("account type loaded", "code", t.Code, "name", t.Name, "maintenance", t.MaintenanceFee.String(), "transactions", t.Transactions, "operation_day", t.OperationDay)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize the account store.
	var repository store.AccountRepository
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory account store; data is lost on restart")
		repository = store.NewMemoryAccountRepository()
	default:
		dbpool, err := newDBPool(rootCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		logger.Info("database connection established")

		postgresRepo := store.NewPostgresAccountRepository(dbpool, logger)
		if err := postgresRepo.EnsureSchema(rootCtx); err != nil {
			logger.Error("failed to ensure accounts schema", "error", err)
			os.Exit(1)
		}
		repository = postgresRepo
	}

	customers := customerclient.NewClient(cfg.CustomerServiceURL)
	transactions := transactionclient.NewClient(cfg.TransactionServiceURL)
	collector := metrics.NewMetricsCollector()

	accountService := app.NewAccountService(repository, customers, transactions, logger)
	accountService.SetMetrics(collector)
	accountService.SetRestartConcurrency(cfg.RestartConcurrency)

	if redisClient := newRedisClient(logger, cfg.RedisURL); redisClient != nil {
		defer redisClient.Close()
		accountService.SetAccountLocker(app.NewRedisAccountLocker(redisClient, cfg.RedisLockPrefix, 15*time.Second, logger))
	}

	// Initialize the RabbitMQ producer to publish account events.
	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn("rabbitmq url missing; account events disabled", "env", "RABBITMQ_URL")
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger); err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
	} else {
		publisher = producer
		logger.Info("rabbitmq producer connected")
	}
	defer publisher.Close()
	accountService.SetEventPublisher(publisher)

	// Start consuming restart requests in a goroutine.
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("rabbitmq consumer unavailable; restart events disabled", "error", err)
		} else {
			defer consumer.Close()
			eventHandler := app.NewAccountEventHandler(accountService, logger)
			go func() {
				logger.Info("starting consumer", "routing_key", domain.RoutingKeyRestartTransactions)
				err := consumer.Consume(rootCtx, domain.AccountEventsExchange, domain.RestartTransactionsQueue, domain.RoutingKeyRestartTransactions, eventHandler.HandleRestartTransactionsEvent)
				if err != nil {
					logger.Error("consumer stopped", "error", err)
				}
			}()
		}
	}

	// Start the cron scheduler in the background.
	jobs := app.NewJobs(accountService, logger, 0)
	scheduler := app.NewScheduler(jobs, logger, cfg.RestartTransactionsSchedule)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Setup and start HTTP server.
	router := api.NewRouter(cfg, accountService, collector.GetHandler(), logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received, stopping bank-accounts service")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	select {
	case <-scheduler.Stop().Done():
		logger.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		logger.Warn("scheduler did not stop before the shutdown deadline")
	}

	logger.Info("server gracefully stopped")
}

func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	dbConfig.MaxConns = 100
	dbConfig.MinConns = 20
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return pgxpool.NewWithConfig(ctx, dbConfig)
}

// newRedisClient returns nil when Redis is not configured or unreachable; the
// service then falls back to in-process account locks.
func newRedisClient(logger *slog.Logger, redisURL string) *redis.Client {
	if strings.TrimSpace(redisURL) == "" {
		logger.Warn("redis url missing; using in-process account locks", "env", "REDIS_URL")
		return nil
	}

	redisOptions, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("redis url parse failed; using in-process account locks", "error", err)
		return nil
	}

	client := redis.NewClient(redisOptions)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; using in-process account locks", "error", err)
		client.Close()
		return nil
	}

	logger.Info("redis connected")
	return client
}
