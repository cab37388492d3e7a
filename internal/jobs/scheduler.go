// Package jobs runs background work: the creator payout schedule and the
// bulk upload worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/robfig/cron/v3"
)

type PayoutRunner interface {
	Run(ctx context.Context) (*model.PayoutRun, error)
}

// Scheduler triggers payout runs on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	payouts PayoutRunner
	timeout time.Duration
}

// NewScheduler parses spec (standard five-field cron or a descriptor such as
// "@daily"). Overlapping runs are skipped.
func NewScheduler(spec string, payouts PayoutRunner) (*Scheduler, error) {
	logger := slogLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	s := &Scheduler{cron: c, payouts: payouts, timeout: 30 * time.Minute}
	_, err := c.AddFunc(spec, s.runPayouts)
	if err != nil {
		return nil, fmt.Errorf("invalid payout schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runPayouts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	run, err := s.payouts.Run(ctx)
	if err != nil {
		slog.Error("scheduled payout run failed", "error", err)
		return
	}
	slog.Info("scheduled payout run done", "paid", run.Paid, "failed", run.Failed, "total_cents", run.TotalCents)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		slog.Info("payout schedule active", "next_run", e.Next)
	}
}

// Stop prevents new runs and waits for a running one until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("payout run still in progress"), ctx.Err())
	}
}

// slogLogger adapts cron's logger to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
