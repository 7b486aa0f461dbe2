package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perftracker_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"method", "route", "code"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "perftracker_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ETLRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perftracker_etl_runs_total",
		Help: "ETL runs by outcome.",
	}, []string{"outcome"})

	ETLRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perftracker_etl_records_loaded_total",
		Help: "Daily performance rows inserted by the ETL.",
	})

	AnalysisResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perftracker_analysis_results",
		Help: "Size of the last result per analysis.",
	}, []string{"analysis"})

	ForecastFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perftracker_forecast_fallbacks_total",
		Help: "Seasonal model fits that failed and fell back to the moving average.",
	})
)
