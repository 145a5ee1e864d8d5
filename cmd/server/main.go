package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/api"
	"github.com/notifyhub/mail-dispatcher/internal/config"
	"github.com/notifyhub/mail-dispatcher/internal/content"
	"github.com/notifyhub/mail-dispatcher/internal/db"
	"github.com/notifyhub/mail-dispatcher/internal/dispatch"
	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/events"
	"github.com/notifyhub/mail-dispatcher/internal/metrics"
	"github.com/notifyhub/mail-dispatcher/internal/queue"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
	"github.com/notifyhub/mail-dispatcher/internal/retry"
	"github.com/notifyhub/mail-dispatcher/internal/sender"
	"github.com/notifyhub/mail-dispatcher/internal/service"
	"github.com/notifyhub/mail-dispatcher/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// ---- job store ----
	repo, err := openJobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open job store", zap.Error(err))
	}
	defer repo.Close()

	// ---- outbound mail ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	counters, closeCounters, err := openCounterStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open quota store", zap.Error(err))
	}
	defer closeCounters()

	quota := sender.NewQuota(counters, cfg.MailDailyLimit, cfg.MailSecondaryLimit, cfg.Primary.From, cfg.Secondary.From)
	transport := newTransport(cfg)
	mailer := sender.New(quota, transport, cfg.MailSendTimeout, logger, m.SenderHooks())
	logger.Info("mail transport configured",
		zap.String("transport", transport.Name()),
		zap.Int("daily_limit", cfg.MailDailyLimit),
		zap.String("quota_backend", cfg.QuotaBackend),
	)

	// ---- job events ----
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("failed to create event publisher", zap.Error(err))
		}
		publisher = kp
		logger.Info("publishing job events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	// ---- queues and workers ----
	dispatcher := dispatch.Default(content.DefaultGroups())

	onCompleted, onFailed, onRetry := m.WorkerHooks()
	registry := worker.NewRegistry(repo, dispatcher, mailer, publisher, worker.Config{
		Concurrency:         cfg.WorkerConcurrency,
		RatePerSec:          cfg.WorkerRateLimit,
		PollInterval:        cfg.QueuePollInterval,
		JobTimeout:          cfg.MailSendTimeout + cfg.JobLease/4,
		MaintenanceInterval: cfg.MaintenanceInterval,
		Queue: queue.Options{
			Policy:           retry.Policy{MaxAttempts: cfg.JobAttempts, BaseDelay: cfg.JobBackoff},
			Lease:            cfg.JobLease,
			KeepCompleted:    cfg.KeepCompletedCount,
			KeepCompletedAge: cfg.KeepCompletedAge,
		},
	}, logger, worker.MetricHooks{
		OnCompleted:  onCompleted,
		OnFailed:     onFailed,
		OnRetry:      onRetry,
		OnQueueStats: m.ObserveQueue,
	})

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	registry.Start(workerCtx)

	// ---- HTTP server ----
	svc := service.NewEmailService(registry, mailer, dispatcher, logger)
	health := func(ctx context.Context) error {
		_, err := repo.Counts(ctx, domain.CategoryAccount)
		return err
	}
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(svc, health, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("queue_backend", cfg.QueueBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	// 1. Stop accepting new HTTP requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop claiming and wait for in-flight sends to finish.
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Warn("workers did not drain before the shutdown deadline; leased jobs will be recovered on restart", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// openJobStore connects the configured queue backend and applies its schema.
func openJobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.JobRepository, error) {
	switch cfg.QueueBackend {
	case "postgres":
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
		return repository.NewPgJobRepository(pool), nil
	case "sqlite":
		return repository.NewSQLiteJobRepository(cfg.SQLitePath)
	default:
		logger.Warn("using the in-memory job store; queued jobs do not survive a restart")
		return repository.NewMemoryJobRepository(), nil
	}
}

func openCounterStore(ctx context.Context, cfg *config.Config) (sender.CounterStore, func(), error) {
	if cfg.QuotaBackend != "redis" {
		return sender.NewMemoryCounterStore(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return sender.NewRedisCounterStore(rdb, ""), func() { rdb.Close() }, nil
}

func newTransport(cfg *config.Config) sender.Transport {
	primary := sender.Credential{Key: cfg.Primary.Key, From: cfg.Primary.From, User: cfg.Primary.SMTPUser}
	secondary := sender.Credential{Key: cfg.Secondary.Key, From: cfg.Secondary.From, User: cfg.Secondary.SMTPUser}

	if cfg.MailTransport == "smtp" {
		return sender.NewSMTPTransport(sender.SMTPConfig{
			Host:               cfg.SMTPHost,
			Port:               cfg.SMTPPort,
			InsecureSkipVerify: cfg.SMTPInsecureSkipVerify,
		}, primary, secondary)
	}
	return sender.NewAPITransport(cfg.MailAPIURL, primary, secondary, cfg.MailSendTimeout)
}
