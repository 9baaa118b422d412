package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"drq/internal/logging"
)

// sweepScheduler fires periodic sweeps on a cron schedule. A tick that lands
// while the previous sweep is still running is skipped.
type sweepScheduler struct {
	schedule string
	run      func(ctx context.Context)
	logger   *slog.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

func newSweepScheduler(schedule string, logger *slog.Logger, run func(ctx context.Context)) *sweepScheduler {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" || run == nil {
		return nil
	}
	return &sweepScheduler{
		schedule: schedule,
		run:      run,
		logger:   logging.NewComponentLogger(logger, "sweep-scheduler"),
	}
}

// Start registers the schedule and starts the cron runner.
func (s *sweepScheduler) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cronLogger := cronLogAdapter{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	id, err := c.AddFunc(s.schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.entry = id
	s.logger.Info("sweep schedule started",
		logging.String(logging.FieldEventType, "sweep_schedule_started"),
		logging.String("schedule", s.schedule),
		logging.Time("next", c.Entry(id).Next),
	)
	return nil
}

// Stop halts the runner and waits for a running sweep to return.
func (s *sweepScheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Next returns the next scheduled sweep, or the zero time when stopped.
func (s *sweepScheduler) Next() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// cronLogAdapter routes cron's internal logging through slog.
type cronLogAdapter struct {
	logger *slog.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err)}, keysAndValues...)
	a.logger.Warn("cron: "+msg, args...)
}
