package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://stock.example.co.mz/api")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 4, cfg.StockCheckConcurrency)
	assert.Equal(t, 90*24*time.Hour, cfg.JournalRetention)
	assert.Equal(t, "MZN", cfg.InvoiceCurrency)
	assert.Equal(t, "*/10 * * * *", cfg.CatalogWarmupCron)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.JournalEnabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PG_DSN", "postgres://bayala@localhost/bayala")
	t.Setenv("STOCK_CHECK_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.JournalEnabled())
	assert.Equal(t, 3*time.Second, cfg.StockCheckTimeout)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	cases := map[string][2]string{
		"relative url":     {"REMOTE_BASE_URL", "/api"},
		"zero timeout":     {"SUBMIT_TIMEOUT", "0s"},
		"no concurrency":   {"STOCK_CHECK_CONCURRENCY", "0"},
		"malformed number": {"REDIS_DB", "one"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.JournalEnabled())
}
