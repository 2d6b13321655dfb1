package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayala/bayala-stock/internal/catalog"
	jobmetrics "github.com/bayala/bayala-stock/internal/jobs"
)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) (*catalog.Catalog, error) {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	if s.err != nil {
		return nil, s.err
	}
	return catalog.New([]catalog.Product{{ID: 1, Name: "Cadeira"}}), nil
}

type stubCredentials struct {
	loaded int
	err    error
}

func (s *stubCredentials) Load(context.Context) error {
	s.loaded++
	return s.err
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestCatalogWarmupTask(t *testing.T) {
	task, err := NewCatalogWarmupTask(CatalogWarmupPayload{Reason: "manual"})
	require.NoError(t, err)
	assert.Equal(t, TaskCatalogWarmup, task.Type())

	var payload CatalogWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)
}

func TestCatalogWarmupRefreshes(t *testing.T) {
	refresher := &stubRefresher{}
	creds := &stubCredentials{}
	job := &CatalogWarmupJob{Catalog: refresher, Credentials: creds, Metrics: testMetrics(), Timeout: time.Second}

	task, err := NewCatalogWarmupTask(CatalogWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1, creds.loaded)
}

func TestCatalogWarmupPropagatesFailures(t *testing.T) {
	job := &CatalogWarmupJob{Catalog: &stubRefresher{err: errors.New("remote down")}, Metrics: testMetrics()}
	err := job.Handle(context.Background(), asynq.NewTask(TaskCatalogWarmup, nil))
	assert.EqualError(t, err, "remote down")

	refresher := &stubRefresher{}
	job = &CatalogWarmupJob{Catalog: refresher, Credentials: &stubCredentials{err: errors.New("no token")}, Metrics: testMetrics()}
	err = job.Handle(context.Background(), asynq.NewTask(TaskCatalogWarmup, nil))
	assert.EqualError(t, err, "no token")
	assert.Zero(t, refresher.calls)
}

func TestCatalogWarmupSkipsRetryOnBadPayload(t *testing.T) {
	job := &CatalogWarmupJob{Catalog: &stubRefresher{}, Metrics: testMetrics()}
	err := job.Handle(context.Background(), asynq.NewTask(TaskCatalogWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubPurger struct {
	retention time.Duration
	removed   int64
}

func (s *stubPurger) Purge(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.removed, nil
}

func TestJournalPurgeUsesPayloadRetention(t *testing.T) {
	purger := &stubPurger{removed: 7}
	job := &JournalPurgeJob{Journal: purger, Retention: 90 * 24 * time.Hour, Metrics: testMetrics()}

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskJournalPurge, nil)))
	assert.Equal(t, 90*24*time.Hour, purger.retention)

	task, err := NewJournalPurgeTask(JournalPurgePayload{RetentionHours: 12})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 12*time.Hour, purger.retention)
}

func TestNewWorkerValidatesHandlers(t *testing.T) {
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}
	_, err := NewWorker(WorkerConfig{RedisOpts: opts})
	assert.EqualError(t, err, "worker: no task handlers")

	purge, err := NewJournalPurgeTask(JournalPurgePayload{})
	require.NoError(t, err)
	job := &CatalogWarmupJob{Catalog: &stubRefresher{}}
	_, err = NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskCatalogWarmup, Handler: job.Handle}},
		Cron:      []CronRegistration{{Spec: "30 3 * * *", Task: purge}},
	})
	assert.EqualError(t, err, `worker: cron task "journal:purge" has no handler`)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Failed: 1}}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Equal(t, 1, body.Failed)

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
