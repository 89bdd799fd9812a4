// Package ledger records pipeline runs: one row opened when a run starts and closed
// exactly once when it ends.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/apc-foundation/exam-pipeline/pkg/metrics"
	"github.com/google/uuid"
)

const StaleRunMessage = "run timed out"

var ErrRunAlreadyClosed = errors.New("run already closed")

// Handle identifies an open run. It is closed at most once.
type Handle struct {
	ID        uuid.UUID
	RunType   api.RunType
	StartedAt time.Time
	closed    atomic.Bool
}

// RunID is the run id as exposed to callers, empty for a nil handle.
func (h *Handle) RunID() string {
	if h == nil {
		return ""
	}
	return h.ID.String()
}

// Outcome is what a run produced. Err is set when the run aborted before producing a
// result; its message is stored verbatim as the error log.
type Outcome struct {
	Found    int
	New      int
	Updated  int
	Closed   int
	Errors   int
	ErrorLog *string
	Metadata map[string]any
	Err      error
}

// Status classifies an outcome. A run fails when it aborted or when every record it was
// given failed; it is partial when some records failed and others were written.
func (o Outcome) Status() api.RunStatus {
	switch {
	case o.Err != nil:
		return api.RunStatusFailed
	case o.Errors == 0:
		return api.RunStatusSuccess
	case o.New+o.Updated == 0:
		return api.RunStatusFailed
	default:
		return api.RunStatusPartial
	}
}

type Ledger struct {
	store  store.Store
	now    func() time.Time
	logger *log.StructuredLogger
}

type Option func(l *Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		now:    time.Now,
		logger: log.NewDebugLogger("run_ledger"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open inserts a running entry for a new run.
func (l *Ledger) Open(ctx context.Context, runType api.RunType, sources []string) (*Handle, error) {
	tracer := l.logger.WithContext(ctx).Operation("open_run").
		WithString("run_type", string(runType)).
		WithInt("sources", len(sources)).
		Build()

	if sources == nil {
		sources = []string{}
	}

	run, err := l.store.Run().Create(ctx, model.Run{
		RunType:   string(runType),
		Status:    string(api.RunStatusRunning),
		Sources:   sources,
		StartedAt: l.now().UTC(),
	})
	if err != nil {
		metrics.IncreaseLedgerFailuresMetric("open")
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to open run: %w", err)
	}

	tracer.Success().WithUUID("run_id", run.ID).Log()
	return &Handle{ID: run.ID, RunType: runType, StartedAt: run.StartedAt}, nil
}

// Close writes the final state of the run behind h. A second call for the same handle,
// or for a run that is no longer running, returns ErrRunAlreadyClosed.
func (l *Ledger) Close(ctx context.Context, h *Handle, o Outcome) (*model.Run, error) {
	if h == nil {
		return nil, errors.New("cannot close a run that was never opened")
	}
	if !h.closed.CompareAndSwap(false, true) {
		return nil, ErrRunAlreadyClosed
	}

	status := o.Status()
	tracer := l.logger.WithContext(ctx).Operation("close_run").
		WithUUID("run_id", h.ID).
		WithString("status", string(status)).
		Build()

	finishedAt := l.now().UTC()
	duration := finishedAt.Sub(h.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	run := model.Run{
		ID:         h.ID,
		Status:     string(status),
		Found:      o.Found,
		New:        o.New,
		Updated:    o.Updated,
		Closed:     o.Closed,
		Errors:     o.Errors,
		ErrorLog:   o.ErrorLog,
		FinishedAt: &finishedAt,
		DurationMs: &duration,
		Metadata:   o.Metadata,
	}
	if o.Err != nil {
		msg := o.Err.Error()
		run.ErrorLog = &msg
		if run.Errors == 0 {
			run.Errors = 1
		}
	}

	closed, err := l.store.Run().Close(ctx, run)
	if err != nil {
		if errors.Is(err, store.ErrRunNotRunning) {
			tracer.Error(err).Log()
			return nil, ErrRunAlreadyClosed
		}
		metrics.IncreaseLedgerFailuresMetric("close")
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to close run %s: %w", h.ID, err)
	}

	metrics.ObserveRun(string(h.RunType), string(status), duration)
	tracer.Success().
		WithInt("found", o.Found).
		WithInt("errors", run.Errors).
		WithParam("duration_ms", duration).
		Log()
	return closed, nil
}

// Sweep fails every run still running after olderThan. It returns the number of runs
// it reclassified; runs closed concurrently by their owner are skipped.
func (l *Ledger) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	tracer := l.logger.WithContext(ctx).Operation("sweep_stale_runs").
		WithParam("older_than", olderThan.String()).
		Build()

	running, err := l.store.Run().List(ctx, store.NewRunQueryFilter().ByStatus(api.RunStatusRunning), nil)
	if err != nil {
		tracer.Error(err).Log()
		return 0, fmt.Errorf("failed to list running runs: %w", err)
	}

	now := l.now().UTC()
	cutoff := now.Add(-olderThan)
	swept := 0
	msg := StaleRunMessage

	for _, r := range running {
		if !r.StartedAt.Before(cutoff) {
			continue
		}

		duration := now.Sub(r.StartedAt).Milliseconds()
		_, err := l.store.Run().Close(ctx, model.Run{
			ID:         r.ID,
			Status:     string(api.RunStatusFailed),
			Found:      r.Found,
			New:        r.New,
			Updated:    r.Updated,
			Closed:     r.Closed,
			Errors:     r.Errors,
			ErrorLog:   &msg,
			FinishedAt: &now,
			DurationMs: &duration,
			Metadata:   r.Metadata,
		})
		switch {
		case err == nil:
			swept++
			tracer.Step("run_timed_out").WithUUID("run_id", r.ID).WithString("run_type", r.RunType).Log()
		case errors.Is(err, store.ErrRunNotRunning):
		default:
			tracer.Error(err).WithInt("swept", swept).Log()
			return swept, fmt.Errorf("failed to fail stale run %s: %w", r.ID, err)
		}
	}

	metrics.IncreaseStaleRunsMetric(swept)
	tracer.Success().WithInt("swept", swept).Log()
	return swept, nil
}
