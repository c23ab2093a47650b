// Package cron runs periodic housekeeping jobs under a Redis lock so only one
// instance does the work per cycle.
package cron

import (
	"context"
	"errors"
	"time"

	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const defaultInterval = time.Hour

type jobMetrics interface {
	ObserveDuration(job string, d time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  jobMetrics
	Interval time.Duration
}

type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  jobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run starts a cycle now and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		report, err := s.runCycle(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "housekeeping cycle failed", err)
		case report.skipped:
			s.logg.Info(ctx, "another instance holds the housekeeping lock; skipping")
		default:
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"jobs_ran":    report.ran,
				"jobs_failed": report.failed,
			}), "housekeeping cycle finished")
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "housekeeping context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// cycleReport summarises one pass over the registry.
type cycleReport struct {
	skipped bool
	ran     int
	failed  []string
}

func (s *Service) runCycle(ctx context.Context) (cycleReport, error) {
	var report cycleReport
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, err
	}
	if !locked {
		report.skipped = true
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release housekeeping lock", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		report.ran++
		if err := s.runJob(ctx, job); err != nil {
			report.failed = append(report.failed, job.Name())
		}
	}
	return report, nil
}

// runJob bounds a job by one interval so it cannot overlap the next cycle.
// Its error is logged and counted here and never stops the cycle.
func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.interval)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)

	logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(logCtx, "cron.job_failed", err)
	} else {
		s.logg.Info(logCtx, "cron.job_completed")
	}
	s.record(name, elapsed, err)
	return err
}

func (s *Service) record(job string, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, elapsed)
	if err != nil {
		s.metrics.IncFailure(job)
		return
	}
	s.metrics.IncSuccess(job)
}
