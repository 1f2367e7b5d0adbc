// Package scheduler runs the background sync and price refresh jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Scheduler manages background jobs on cron schedules with a seconds field.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New creates a scheduler. Each run gets its own context bounded by timeout
// and cancelled when the scheduler stops.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With(slog.String("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// AddJob registers a job with a cron schedule, e.g. "0 */15 * * * *".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(job); err != nil {
			s.logger.Error("Job failed", slog.String("job", job.Name()), slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.logger.Info("Job registered", slog.String("schedule", schedule), slog.String("job", job.Name()))
	return nil
}

// RunNow executes a job immediately with a job-scoped logger in its context.
func (s *Scheduler) RunNow(job Job) error {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	logger := s.logger.With(slog.String("job", job.Name()), slog.String("run_id", uuid.NewString()))
	ctx = middleware.WithLogger(ctx, logger)

	start := time.Now()
	logger.Debug("Running job")
	err := job.Run(ctx)
	if err == nil {
		logger.Debug("Job completed", slog.Duration("elapsed", time.Since(start)))
	}
	return err
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}
