// Package scheduler runs the periodic status refresh and the stale run sweep inside the
// API process.
package scheduler

import (
	"context"
	"sync"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// Runner is the part of the pipeline the scheduler drives.
type Runner interface {
	Execute(ctx context.Context, req service.ReconcileRequest) (*service.RunResult, error)
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

type Scheduler struct {
	runner          Runner
	refreshInterval time.Duration
	sweepInterval   time.Duration
	staleRunAfter   time.Duration
}

func New(runner Runner, refreshInterval, sweepInterval, staleRunAfter time.Duration) *Scheduler {
	return &Scheduler{
		runner:          runner,
		refreshInterval: refreshInterval,
		sweepInterval:   sweepInterval,
		staleRunAfter:   staleRunAfter,
	}
}

// Run sweeps once, then refreshes and sweeps on their jittered intervals until ctx is
// done. A loop with a non positive interval is disabled.
func (s *Scheduler) Run(ctx context.Context) error {
	log := zap.S().Named("scheduler")
	log.Infof("starting scheduler: refresh every %s, sweep every %s", s.refreshInterval, s.sweepInterval)

	s.sweep(ctx)

	var wg sync.WaitGroup
	if s.refreshInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, s.refreshInterval, s.refresh)
		}()
	}
	if s.sweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, s.sweepInterval, s.sweep)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 20, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fn(ctx)
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	result, err := s.runner.Execute(ctx, service.NewRefreshRequest(api.RunTypeScheduled))
	if err != nil {
		zap.S().Named("scheduler").Errorw("scheduled refresh failed", "error", err)
		return
	}
	zap.S().Named("scheduler").Infow("scheduled refresh done",
		"run_id", result.RunID,
		"status", result.Status,
		"closed", result.StatusChanges.Closed,
		"opened", result.StatusChanges.Opened,
		"coming_soon", result.StatusChanges.ComingSoon,
	)
}

func (s *Scheduler) sweep(ctx context.Context) {
	if s.staleRunAfter <= 0 {
		return
	}
	swept, err := s.runner.Sweep(ctx, s.staleRunAfter)
	if err != nil {
		zap.S().Named("scheduler").Errorw("stale run sweep failed", "error", err)
		return
	}
	if swept > 0 {
		zap.S().Named("scheduler").Warnw("failed stale runs", "count", swept)
	}
}
