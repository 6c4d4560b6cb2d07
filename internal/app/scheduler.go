/**
 * @description
 * Cron scheduler for the periodic pending-subscription expiry sweep.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// sweepSchedule runs the expiry sweep every five minutes.
const sweepSchedule = "*/5 * * * *"

// Scheduler manages the recurring expiry sweep.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		service: service,
		logger:  logger,
	}
}

// Start runs one sweep immediately, then registers the recurring job and
// starts the cron scheduler.
func (s *Scheduler) Start() {
	s.service.SweepExpired()

	if _, err := s.cron.AddFunc(sweepSchedule, s.service.SweepExpired); err != nil {
		s.logger.Error("failed to schedule pending sweep job", "error", err)
	} else {
		s.logger.Info("scheduled pending sweep job", "schedule", sweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
