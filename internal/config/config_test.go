package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"API_BASE_URL", "ETL_DAYS_BACK", "DATABASE_URL", "DB_HOST", "DB_NAME", "PORT",
		"HTTP_TIMEOUT_SECONDS", "LOG_LEVEL", "ETL_SCHEDULE", "ANOMALY_Z_THRESHOLD", "ANOMALY_WINDOW_DAYS", "FORECAST_DAYS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIBaseURL)
	assert.Equal(t, 90, cfg.DaysBack)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "@midnight", cfg.ETLSchedule)
	assert.Equal(t, 1.8, cfg.ZThreshold)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.Equal(t, 30, cfg.ForecastDays)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ETL_DAYS_BACK", "30")
	t.Setenv("ANOMALY_Z_THRESHOLD", "2.5")
	t.Setenv("FORECAST_DAYS", "not-a-number")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db:5432")
	t.Setenv("DB_NAME", "perf")
	t.Setenv("DB_USER", "analyst")
	t.Setenv("DB_PASSWORD", "p@ss")

	cfg := FromEnv()
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30, cfg.DaysBack)
	assert.Equal(t, 2.5, cfg.ZThreshold)
	assert.Equal(t, 30, cfg.ForecastDays)
	assert.Equal(t, "postgres://analyst:p%40ss@db:5432/perf", cfg.DatabaseURL)

	t.Setenv("DATABASE_URL", "postgres://x@y/z")
	assert.Equal(t, "postgres://x@y/z", FromEnv().DatabaseURL)
}
