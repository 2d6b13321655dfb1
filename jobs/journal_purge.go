package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bayala/bayala-stock/internal/jobs"
)

// Purger removes journal entries older than a retention window.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// JournalPurgeJob trims the submission journal.
type JournalPurgeJob struct {
	Journal   Purger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskJournalPurge tasks.
func (j *JournalPurgeJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Journal == nil {
		return errors.New("journal purge: handler not configured")
	}
	var payload JournalPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskJournalPurge)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err := j.Journal.Purge(ctx, retention)
	if err != nil {
		logger.Error("purge journal", slog.String("job", TaskJournalPurge), slog.Any("error", err))
		return err
	}
	logger.Info("journal purged", slog.String("job", TaskJournalPurge), slog.Int64("removed", removed), slog.Duration("retention", retention))
	return nil
}
