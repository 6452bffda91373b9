package backup

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/robfig/cron/v3"
)

// Runner is the unit of work the scheduler fires.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// Scheduler runs backups on a standard five-field cron schedule. A run that
// is still in progress when the next one is due causes that one to be skipped.
type Scheduler struct {
	spec   string
	runner Runner
	logger logging.Logger
}

func NewScheduler(spec string, runner Runner, logger logging.Logger) *Scheduler {
	return &Scheduler{spec: spec, runner: runner, logger: logger}
}

// ParseSchedule validates a cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, then waits for a running backup.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := ParseSchedule(s.spec); err != nil {
		return err
	}

	cl := cronLogger{ctx: ctx, l: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("backup schedule %q: %w", s.spec, err)
	}

	s.logger.Info(ctx, "backup scheduler started", "schedule", s.spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error(ctx, "scheduled backup failed", "err", err)
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(c.ctx, "cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(c.ctx, "cron: "+msg, append(keysAndValues, "err", err)...)
}
