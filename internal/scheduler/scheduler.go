package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	log      logrus.FieldLogger
	schedule string
}

// NewScheduler creates a scheduler running the settlement job on
// schedule.  A run still in progress makes the next tick a no-op.
func NewScheduler(jobs *Jobs, log logrus.FieldLogger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(log)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return &Scheduler{cron: c, jobs: jobs, log: log, schedule: schedule}
}

// Start registers the jobs and starts the cron scheduler.  An invalid
// schedule is returned instead of silently disabling settlement.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.SettleExpiredBids); err != nil {
		return fmt.Errorf("schedule settlement job %q: %w", s.schedule, err)
	}
	s.log.WithField("schedule", s.schedule).Info("scheduled settlement job")
	s.cron.Start()
	return nil
}

// Stop stops the scheduler.  The returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
