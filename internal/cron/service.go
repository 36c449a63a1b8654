package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 2 * time.Minute
)

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster-wide lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
// Cycle failures are logged; only cancellation stops the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs one locked cycle. It returns nil without running anything when
// another worker holds the lock, and the combined job errors otherwise.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		// released on a fresh context so a canceled cycle still frees the lease
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	cycleCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := s.keepAlive(cycleCtx, cancel)
	defer stop()

	var errs error
	for _, job := range s.registry.Jobs() {
		if cycleCtx.Err() != nil {
			return multierr.Append(errs, context.Cause(cycleCtx))
		}
		errs = multierr.Append(errs, s.runJob(cycleCtx, job))
	}
	return errs
}

// keepAlive refreshes the lease at a third of its TTL until stop is called.
// Losing the lease cancels the cycle with errLeaseLost.
func (s *Service) keepAlive(ctx context.Context, cancel context.CancelCauseFunc) (stop func()) {
	every := s.lock.TTL() / 3
	if every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	quit := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			held, err := s.lock.Refresh(ctx)
			if err != nil {
				s.logg.Warn(ctx, "cron lease refresh failed: "+err.Error())
				continue
			}
			if !held {
				s.logg.Warn(ctx, "cron lease lost, canceling cycle")
				cancel(errLeaseLost)
				return
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	logCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	jobCtx, cancel := context.WithTimeout(logCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	report, err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(name, elapsed, report.Rows, err)

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"duration_ms": elapsed.Milliseconds(),
		"rows":        report.Rows,
	})
	if err != nil {
		s.logg.Error(logCtx, "cron job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(report.Fields) > 0 {
		logCtx = s.logg.WithFields(logCtx, report.Fields)
	}
	if report.Alert != "" {
		s.logg.Warn(logCtx, report.Alert)
	}
	s.logg.Info(logCtx, "cron job completed")
	return nil
}
