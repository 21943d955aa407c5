// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SubscriptionSweeper expires lapsed subscriptions.
type SubscriptionSweeper interface {
	ExpireSubscriptions(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner whose jobs never overlap themselves.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger.With("component", "cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: time.Minute,
	}
}

// AddSubscriptionSweep schedules sweeper on spec (standard cron or @every).
func (s *Scheduler) AddSubscriptionSweep(spec string, sweeper SubscriptionSweeper) error {
	_, err := s.cron.AddFunc(spec, func() { s.runSweep(sweeper) })
	if err != nil {
		return fmt.Errorf("schedule subscription sweep %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) runSweep(sweeper SubscriptionSweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := sweeper.ExpireSubscriptions(ctx)
	if err != nil {
		s.logger.Error("subscription sweep failed", "err", err)
		return
	}
	s.logger.Debug("subscription sweep done", "expired", n)
}

// IdleSweeper forgets per-client state that has gone quiet.
type IdleSweeper interface {
	Cleanup(now time.Time)
}

// AddIdleSweep schedules sweeper.Cleanup on spec.
func (s *Scheduler) AddIdleSweep(spec string, sweeper IdleSweeper) error {
	_, err := s.cron.AddFunc(spec, func() { sweeper.Cleanup(time.Now()) })
	if err != nil {
		return fmt.Errorf("schedule idle sweep %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own messages (panics, skipped runs) to slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
