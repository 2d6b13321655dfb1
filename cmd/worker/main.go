package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bayala/bayala-stock/internal/app"
	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/observability"
	"github.com/bayala/bayala-stock/internal/platform/cache"
	"github.com/bayala/bayala-stock/internal/platform/db"
	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/journal"
	"github.com/bayala/bayala-stock/internal/session"
	"github.com/bayala/bayala-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sess := session.New(session.NewRedisStore(redisClient, cfg.SessionKey, cfg.SessionTTL))
	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, sess)
	loader := catalog.NewLoader(client, catalog.NewCache(redisClient, cfg.CatalogCacheTTL), logger)

	warmupJob := &jobs.CatalogWarmupJob{
		Catalog:     loader,
		Credentials: sess,
		Logger:      logger,
		Metrics:     metrics.Jobs(),
		Timeout:     cfg.RemoteTimeout,
	}
	warmupTask, err := jobs.NewCatalogWarmupTask(jobs.CatalogWarmupPayload{Reason: "schedule"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
	}
	cron := []jobs.CronRegistration{
		{Spec: cfg.CatalogWarmupCron, Task: warmupTask},
	}

	if cfg.JournalEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.JournalMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		purgeJob := &jobs.JournalPurgeJob{
			Journal:   journal.New(pool, logger),
			Retention: cfg.JournalRetention,
			Logger:    logger,
			Metrics:   metrics.Jobs(),
		}
		purgeTask, err := jobs.NewJournalPurgeTask(jobs.JournalPurgePayload{})
		if err != nil {
			logger.Error("build purge task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskJournalPurge, Handler: purgeJob.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: cfg.JournalPurgeCron, Task: purgeTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
