package service

import (
	"context"

	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRunsLimit = 10
	MaxRunsLimit     = 100
)

type Overview struct {
	Runs  model.RunList
	Stats model.ExamStats
}

// LastRun is the most recent run, or nil when nothing ran yet.
func (o Overview) LastRun() *model.Run {
	if len(o.Runs) == 0 {
		return nil
	}
	return &o.Runs[0]
}

type StatusService struct {
	store  store.Store
	logger *log.StructuredLogger
}

func NewStatusService(s store.Store) *StatusService {
	return &StatusService{
		store:  s,
		logger: log.NewDebugLogger("status_service"),
	}
}

// Overview returns the latest runs, newest first, with live exam aggregates. A limit
// outside 1..MaxRunsLimit falls back to DefaultRunsLimit.
func (s *StatusService) Overview(ctx context.Context, limit int) (*Overview, error) {
	if limit <= 0 || limit > MaxRunsLimit {
		limit = DefaultRunsLimit
	}

	tracer := s.logger.WithContext(ctx).Operation("status_overview").
		WithInt("limit", limit).
		Build()

	overview := &Overview{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runs, err := s.store.Run().List(gctx, store.NewRunQueryFilter(), store.NewRunQueryOptions().WithLimit(limit))
		if err != nil {
			return err
		}
		overview.Runs = runs
		return nil
	})
	g.Go(func() error {
		stats, err := s.store.Statistics(gctx)
		if err != nil {
			return err
		}
		overview.Stats = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithInt("runs", len(overview.Runs)).Log()
	return overview, nil
}
