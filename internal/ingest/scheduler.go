package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Runner interface {
	Run(ctx context.Context, since *time.Time) (Report, error)
}

// Scheduler runs the ETL on a cron schedule. A failed run is logged and
// the next tick tries again.
type Scheduler struct {
	cron *cron.Cron
	etl  Runner
	log  *slog.Logger
	ctx  context.Context
}

func NewScheduler(ctx context.Context, etl Runner, log *slog.Logger) *Scheduler {
	logger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))
	return &Scheduler{
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		etl:  etl,
		log:  log,
		ctx:  ctx,
	}
}

// Start registers the job on the cron expression, runs it once immediately and starts the
// cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("bad ETL schedule %q: %w", schedule, err)
	}
	s.RunOnce()
	s.cron.Start()
	s.log.Info("etl scheduler running", slog.String("schedule", schedule))
	return nil
}

func (s *Scheduler) RunOnce() {
	s.log.Info("starting scheduled etl run")
	rep, err := s.etl.Run(s.ctx, nil)
	if err != nil {
		s.log.Error("etl failed", slog.String("err", err.Error()))
		return
	}
	s.log.Info("etl completed", slog.Int("loaded", rep.Loaded))
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
