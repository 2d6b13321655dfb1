package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogWarmup refreshes the cached product catalog.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskJournalPurge drops old submission journal entries.
	TaskJournalPurge = "journal:purge"
)

// CatalogWarmupPayload describes why a warm-up was requested.
type CatalogWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewCatalogWarmupTask constructs a catalog warm-up task. Duplicate requests
// within a minute collapse into one.
func NewCatalogWarmupTask(payload CatalogWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data,
		asynq.Queue(QueueDefault),
		asynq.Unique(time.Minute),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	), nil
}

// JournalPurgePayload overrides the configured retention when set.
type JournalPurgePayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewJournalPurgeTask constructs a journal purge task.
func NewJournalPurgeTask(payload JournalPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJournalPurge, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(1),
	), nil
}
