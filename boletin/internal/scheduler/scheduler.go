// CLAUDE:SUMMARY Cron trigger in the configured timezone: daily archive refresh and per-minute digest check, stopped with the context.
// Package scheduler fires the periodic jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled task.
type Job struct {
	Name string
	Spec string // standard 5-field cron expression
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []Job
}

// New creates a Scheduler evaluating specs in loc (nil means UTC).
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// Add registers a job. Invalid specs are rejected.
func (s *Scheduler) Add(job Job) error {
	if _, err := cron.ParseStandard(job.Spec); err != nil {
		return fmt.Errorf("scheduler: job %s: invalid spec %q: %w", job.Name, job.Spec, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, job := range s.jobs {
		_, err := s.cron.AddFunc(job.Spec, func() {
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				s.logger.Error("scheduler: job failed", "job", job.Name, "error", err, "duration", time.Since(start))
				return
			}
			s.logger.Debug("scheduler: job done", "job", job.Name, "duration", time.Since(start))
		})
		if err != nil {
			return fmt.Errorf("scheduler: add %s: %w", job.Name, err)
		}
		s.logger.Info("scheduler: job registered", "job", job.Name, "spec", job.Spec)
	}
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}
