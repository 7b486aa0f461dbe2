package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL  string
	DaysBack    int
	DatabaseURL string
	SinkURL     string
	SinkSecret  string
	Port        string
	HTTPTimeout time.Duration
	RetryBase   time.Duration
	MaxRetries  int
	LogLevel    slog.Level
	ETLSchedule string

	ZThreshold   float64
	WindowDays   int
	ForecastDays int
}

// FromEnv reads the configuration from the process environment. Binaries
// load .env before calling it.
func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return Config{
		APIBaseURL:   envOr("API_BASE_URL", "http://127.0.0.1:8000"),
		DaysBack:     intOr("ETL_DAYS_BACK", 90),
		DatabaseURL:  databaseURL(),
		SinkURL:      os.Getenv("SINK_URL"),
		SinkSecret:   os.Getenv("SINK_SECRET"),
		Port:         envOr("PORT", "8080"),
		HTTPTimeout:  to,
		RetryBase:    100 * time.Millisecond,
		MaxRetries:   intOr("HTTP_MAX_RETRIES", 2),
		LogLevel:     lvl,
		ETLSchedule:  envOr("ETL_SCHEDULE", "@midnight"),
		ZThreshold:   floatOr("ANOMALY_Z_THRESHOLD", 1.8),
		WindowDays:   intOr("ANOMALY_WINDOW_DAYS", 7),
		ForecastDays: intOr("FORECAST_DAYS", 30),
	}
}

// databaseURL prefers DATABASE_URL and falls back to the DB_* parts. Empty
// means no database: the in-memory store is used.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host, name := os.Getenv("DB_HOST"), os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:   host,
		Path:   "/" + name,
	}
	return u.String()
}

func (c Config) Addr() string { return fmt.Sprintf(":%s", c.Port) }

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func intOr(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatOr(k string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
