package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"25s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RemoteBaseURL string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8000/api"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`

	StockCheckTimeout     time.Duration `envconfig:"STOCK_CHECK_TIMEOUT" default:"8s"`
	StockCheckConcurrency int           `envconfig:"STOCK_CHECK_CONCURRENCY" default:"4"`
	SubmitTimeout         time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"15s"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	SessionKey string        `envconfig:"SESSION_KEY" default:"bayala:session"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	// PGDSN enables the submission journal when set.
	PGDSN            string        `envconfig:"PG_DSN"`
	JournalRetention time.Duration `envconfig:"JOURNAL_RETENTION" default:"2160h"`
	JournalMaxConns  int32         `envconfig:"JOURNAL_MAX_CONNS" default:"4"`

	DraftIdleTTL time.Duration `envconfig:"DRAFT_IDLE_TTL" default:"2h"`

	InvoiceLocale   string `envconfig:"INVOICE_LOCALE" default:"pt"`
	InvoiceCurrency string `envconfig:"INVOICE_CURRENCY" default:"MZN"`

	CatalogWarmupCron string `envconfig:"CATALOG_WARMUP_CRON" default:"*/10 * * * *"`
	JournalPurgeCron  string `envconfig:"JOURNAL_PURGE_CRON" default:"30 3 * * *"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	if c.RemoteBaseURL == "" {
		return errors.New("remote base url must be provided")
	}
	u, err := url.Parse(c.RemoteBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote base url %q is not absolute", c.RemoteBaseURL)
	}
	timeouts := map[string]time.Duration{
		"APP_READ_TIMEOUT":    c.AppReadTimeout,
		"APP_WRITE_TIMEOUT":   c.AppWriteTimeout,
		"APP_REQUEST_TIMEOUT": c.AppRequestTimeout,
		"REMOTE_TIMEOUT":      c.RemoteTimeout,
		"STOCK_CHECK_TIMEOUT": c.StockCheckTimeout,
		"SUBMIT_TIMEOUT":      c.SubmitTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.StockCheckConcurrency <= 0 {
		return errors.New("STOCK_CHECK_CONCURRENCY must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// JournalEnabled reports whether submission attempts are persisted.
func (c *Config) JournalEnabled() bool {
	return c != nil && c.PGDSN != ""
}
