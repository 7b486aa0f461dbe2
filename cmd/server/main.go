package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/httpx"
	"github.com/AngelCh415/perftracker/internal/ingest"
	"github.com/AngelCh415/perftracker/internal/metrics"
	"github.com/AngelCh415/perftracker/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := store.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("store error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	etl := ingest.NewETL(cl, st, logger, cfg)
	mSvc := metrics.NewService(st, logger, cfg)

	if cfg.ETLSchedule != "off" {
		sched := ingest.NewScheduler(ctx, etl, logger)
		if err := sched.Start(cfg.ETLSchedule); err != nil {
			logger.Error("scheduler error", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpx.NewRouter(logger, etl, mSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown(srv, logger, 10*time.Second)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown drains srv within timeout and logs when it cannot.
func shutdown(srv shutdowner, logger *slog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", slog.String("err", err.Error()))
	}
}
