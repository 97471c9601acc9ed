package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
)

const fallbackInterval = time.Hour

type jobRecorder interface {
	JobFinished(job string, took time.Duration, err error)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  jobRecorder
	// Interval between cycles. Defaults to one hour.
	Interval time.Duration
	// JobTimeout bounds a single job. Defaults to Interval.
	JobTimeout time.Duration
}

// Service runs the registered maintenance jobs on a fixed cadence. A cycle
// only runs on the instance that wins the lock.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    jobRecorder
	every      time.Duration
	jobTimeout time.Duration
}

// cycleSummary describes one pass over the registry.
type cycleSummary struct {
	skipped bool
	ran     int
	failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	s := &Service{
		logg:       params.Logger,
		jobs:       params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		every:      params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.jobs == nil {
		s.jobs = &Registry{names: map[string]struct{}{}}
	}
	if s.every <= 0 {
		s.every = fallbackInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = s.every
	}
	return s, nil
}

// Run starts a cycle right away and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":     s.jobs.Names(),
		"interval": s.every.String(),
	}), "cron schedule started")

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	summary, err := s.cycle(ctx)
	switch {
	case err != nil:
		s.logg.Error(ctx, "cron cycle aborted", err)
	case summary.skipped:
		s.logg.Debug(ctx, "cron lock held elsewhere, cycle skipped")
	case len(summary.failed) > 0:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"ran":    summary.ran,
			"failed": summary.failed,
		}), "cron cycle finished with failures")
	default:
		s.logg.Info(s.logg.WithField(ctx, "ran", summary.ran), "cron cycle finished")
	}
}

// cycle runs every job once under the lock. A failing job does not stop the
// jobs after it.
func (s *Service) cycle(ctx context.Context) (cycleSummary, error) {
	var summary cycleSummary
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return summary, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !won {
		summary.skipped = true
		return summary, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	for _, job := range s.jobs.Jobs() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.ran++
		if err := s.runJob(ctx, job); err != nil {
			summary.failed = append(summary.failed, job.Name())
		}
	}
	return summary, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	ctx = s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	if s.metrics != nil {
		s.metrics.JobFinished(name, took, err)
	}

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Info(ctx, "cron job done")
	return nil
}
