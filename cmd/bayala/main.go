package main

import (
	"context"
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
	"github.com/bayala/bayala-stock/internal/sales/draft"
	saleshttp "github.com/bayala/bayala-stock/internal/sales/http"
	"github.com/bayala/bayala-stock/internal/sales/invoice"
	"github.com/bayala/bayala-stock/internal/sales/journal"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/session"
	"github.com/bayala/bayala-stock/internal/stock"
	"github.com/bayala/bayala-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	if err := sess.Load(ctx); err != nil {
		logger.Warn("load session credential", slog.Any("error", err))
	}

	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, sess)
	loader := catalog.NewLoader(client, catalog.NewCache(redisClient, cfg.CatalogCacheTTL), logger)

	validator := stock.NewValidator(stock.NewClient(client), stock.ValidatorConfig{
		Concurrency: cfg.StockCheckConcurrency,
		Timeout:     cfg.StockCheckTimeout,
	}, logger)
	validator.OnCheck(metrics.ObserveStockCheck)

	deps := draft.Deps{
		Stock:     validator,
		Submitter: orders.NewSubmitter(client, cfg.SubmitTimeout, logger),
		Observe: func(mode orders.Kind, outcome draft.Outcome, elapsed time.Duration) {
			metrics.ObserveSubmission(string(mode), string(outcome), elapsed)
		},
		Logger: logger,
	}
	if cfg.JournalEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.JournalMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		submissions := journal.New(pool, logger)
		if err := submissions.EnsureSchema(ctx); err != nil {
			logger.Error("journal schema", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Recorder = submissions
	}

	drafts := draft.NewStore(loader, deps, cfg.DraftIdleTTL)
	go drafts.Run(ctx)

	projector, err := invoice.NewProjector(client, invoice.Options{
		Locale:   cfg.InvoiceLocale,
		Currency: cfg.InvoiceCurrency,
	}, logger)
	if err != nil {
		logger.Error("init invoice projector", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	salesHandler := saleshttp.NewHandler(saleshttp.Deps{
		Sessions:    sess,
		Catalog:     loader,
		Drafts:      drafts,
		Invoices:    projector,
		Warmup:      jobClient,
		CatalogSize: metrics.SetCatalogSize,
		Logger:      logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Sales:   salesHandler,
		Jobs:    jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
