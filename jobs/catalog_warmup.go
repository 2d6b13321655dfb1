package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bayala/bayala-stock/internal/catalog"
	jobmetrics "github.com/bayala/bayala-stock/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogRefresher reloads the catalog from the remote service and stores it
// in the cache.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// CredentialLoader makes the shared bearer credential available to the
// worker before it calls the remote service.
type CredentialLoader interface {
	Load(ctx context.Context) error
}

// CatalogWarmupJob keeps the Redis catalog cache populated so drafts open
// without waiting on GET /products-lite.
type CatalogWarmupJob struct {
	Catalog     CatalogRefresher
	Credentials CredentialLoader
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Timeout     time.Duration
}

// Handle processes TaskCatalogWarmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Reason == "" {
		payload.Reason = "schedule"
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if j.Credentials != nil {
		if err := j.Credentials.Load(ctx); err != nil {
			logger.Error("load credential", slog.Any("error", err))
			return err
		}
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cat, err := j.Catalog.Refresh(ctx)
	if err != nil {
		logger.Error("refresh catalog", slog.Any("error", err))
		return err
	}
	logger.Info("catalog warmed", slog.Int("products", cat.Len()), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCatalogWarmup))
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
