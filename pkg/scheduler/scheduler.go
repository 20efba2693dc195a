// Package scheduler drives periodic automation sweeps on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs one pass over every automation.
type Sweeper interface {
	RunAll(ctx context.Context) error
}

// Scheduler triggers sweeps on a cron expression. Ticks that arrive while a
// sweep is still running are skipped, one overdue automation must not stack
// concurrent sweeps of the whole set.
type Scheduler struct {
	spec    string
	sweeper Sweeper
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

func New(spec string, location *time.Location, sweeper Sweeper, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		spec:    spec,
		sweeper: sweeper,
		cron:    cron.New(cron.WithLocation(location)),
		logger:  logger.With("module", "scheduler"),
	}
}

// Start registers the sweep job and starts the cron loop. It returns
// immediately; Stop shuts the loop down.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Scheduler started", "spec", s.spec)
	s.cron.Start()

	return nil
}

// Stop halts the cron loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) sweep(ctx context.Context) {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous sweep still running, skipping tick")

		return
	}

	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now()

	if err := s.sweeper.RunAll(ctx); err != nil {
		s.logger.Error("Sweep failed", "error", err)

		return
	}

	s.logger.Info("Sweep finished", "duration", time.Since(started))
}
