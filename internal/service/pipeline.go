package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/events"
	"github.com/apc-foundation/exam-pipeline/internal/ledger"
	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/reconcile"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/apc-foundation/exam-pipeline/pkg/metrics"
	"go.uber.org/zap"
)

// StatusUpdaterSource is the source recorded for runs that only refresh statuses.
const StatusUpdaterSource = "status-updater"

// ReconcileRequest describes one run. Exams is the batch pushed by the scraper; runs
// without a batch only refresh the statuses of stored exams.
type ReconcileRequest struct {
	RunType  api.RunType
	Sources  []string
	Exams    []api.ExamRecord
	Stats    map[string]any
	ErrorLog string
}

func NewRefreshRequest(runType api.RunType) ReconcileRequest {
	return ReconcileRequest{RunType: runType, Sources: []string{StatusUpdaterSource}}
}

func NewWebhookRequest(req api.WebhookRequest) ReconcileRequest {
	exams := req.Exams
	if exams == nil {
		exams = []api.ExamRecord{}
	}
	return ReconcileRequest{
		RunType:  api.RunTypeWebhook,
		Sources:  req.Scrapers,
		Exams:    exams,
		Stats:    req.Stats,
		ErrorLog: req.ErrorLog,
	}
}

func (r ReconcileRequest) hasBatch() bool {
	return r.Exams != nil || r.RunType == api.RunTypeWebhook
}

type Totals struct {
	Active int64
	Open   int64
}

type RunResult struct {
	RunID         string
	RunType       api.RunType
	Status        api.RunStatus
	DurationMs    int64
	Found         int
	New           int
	Updated       int
	Errors        []reconcile.ErrorDetail
	StatusChanges lifecycle.Transitions
	Totals        Totals
}

type PipelineOption func(p *PipelineService)

// WithLocation sets the time zone in which the calendar day is decided.
func WithLocation(loc *time.Location) PipelineOption {
	return func(p *PipelineService) {
		p.loc = loc
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *PipelineService) {
		p.now = now
	}
}

// PipelineService runs the pipeline: open the ledger entry, reconcile the batch, refresh
// every active exam's status and close the ledger entry.
type PipelineService struct {
	store       store.Store
	eventWriter *events.EventProducer
	reconciler  *reconcile.Reconciler
	ledger      *ledger.Ledger
	loc         *time.Location
	now         func() time.Time
	logger      *log.StructuredLogger
}

func NewPipelineService(s store.Store, ew *events.EventProducer, opts ...PipelineOption) *PipelineService {
	p := &PipelineService{
		store:       s,
		eventWriter: ew,
		loc:         time.UTC,
		now:         time.Now,
		logger:      log.NewDebugLogger("pipeline_service"),
	}
	for _, o := range opts {
		o(p)
	}

	p.reconciler = reconcile.NewReconciler(s, reconcile.WithClock(p.today))
	p.ledger = ledger.New(s, ledger.WithClock(p.now))
	return p
}

func (p *PipelineService) today() time.Time {
	return p.now().In(p.loc)
}

// Sweep fails the runs left running for longer than olderThan.
func (p *PipelineService) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	return p.ledger.Sweep(ctx, olderThan)
}

// Execute performs one run. A run that aborts is closed as failed and reported with
// *ErrRunFailed carrying its id. A ledger that cannot be written does not stop the run.
func (p *PipelineService) Execute(ctx context.Context, req ReconcileRequest) (*RunResult, error) {
	start := p.now()
	tracer := p.logger.WithContext(ctx).Operation("execute_run").
		WithString("run_type", string(req.RunType)).
		WithParam("sources", req.Sources).
		WithInt("batch_size", len(req.Exams)).
		Build()

	handle, err := p.ledger.Open(ctx, req.RunType, req.Sources)
	if err != nil {
		tracer.Step("ledger_unavailable").WithString("error", err.Error()).Log()
	}

	result := &RunResult{RunID: handle.RunID(), RunType: req.RunType}

	var reconciled reconcile.Result
	if req.hasBatch() {
		reconciled, err = p.reconciler.Reconcile(ctx, req.Exams)
		if err != nil {
			return nil, p.abort(ctx, tracer, req.RunType, handle, start, fmt.Errorf("reconcile batch: %w", err))
		}
		metrics.IncreaseRecordsMetric("new", reconciled.New)
		metrics.IncreaseRecordsMetric("updated", reconciled.Updated)
		metrics.IncreaseRecordsMetric("failed", len(reconciled.Errors))
		tracer.Step("reconciled").
			WithInt("new", reconciled.New).
			WithInt("updated", reconciled.Updated).
			WithInt("errors", len(reconciled.Errors)).
			Log()
	}

	changes, err := p.RefreshStatuses(ctx)
	if err != nil {
		return nil, p.abort(ctx, tracer, req.RunType, handle, start, fmt.Errorf("refresh statuses: %w", err))
	}

	totals, err := p.totals(ctx)
	if err != nil {
		return nil, p.abort(ctx, tracer, req.RunType, handle, start, fmt.Errorf("count exams: %w", err))
	}

	outcome := ledger.Outcome{
		New:      reconciled.New,
		Updated:  reconciled.Updated,
		Closed:   changes.Closed,
		Errors:   len(reconciled.Errors),
		ErrorLog: reconciled.ErrorLog(),
		Metadata: metadata(req, changes, totals),
	}
	if req.hasBatch() {
		outcome.Found = len(req.Exams)
	} else {
		outcome.Found = int(totals.Active)
		outcome.Updated = changes.Opened + changes.ComingSoon
	}
	if outcome.ErrorLog == nil && strings.TrimSpace(req.ErrorLog) != "" {
		upstream := req.ErrorLog
		outcome.ErrorLog = &upstream
	}

	result.Found = outcome.Found
	result.New = outcome.New
	result.Updated = outcome.Updated
	result.Errors = reconciled.Errors
	result.StatusChanges = changes
	result.Totals = totals
	result.DurationMs, result.Status = p.close(ctx, tracer, req.RunType, handle, start, outcome)

	if req.RunType == api.RunTypeWebhook {
		metrics.ScrapersPerWeek.Observe(req.Sources...)
	}
	p.publish(ctx, events.RunFinishedKind, events.RunFinishedEvent{
		RunID:      result.RunID,
		RunType:    string(result.RunType),
		Status:     string(result.Status),
		Found:      outcome.Found,
		New:        outcome.New,
		Updated:    outcome.Updated,
		Closed:     outcome.Closed,
		Errors:     outcome.Errors,
		DurationMs: result.DurationMs,
		FinishedAt: p.now().UTC(),
	})

	tracer.Success().
		WithString("run_id", result.RunID).
		WithString("status", string(result.Status)).
		WithParam("duration_ms", result.DurationMs).
		Log()

	return result, nil
}

// RefreshStatuses derives the status of every active exam for today and writes the ones
// that changed.
func (p *PipelineService) RefreshStatuses(ctx context.Context) (lifecycle.Transitions, error) {
	tracer := p.logger.WithContext(ctx).Operation("refresh_statuses").Build()

	var changes lifecycle.Transitions

	exams, err := p.store.Exam().List(ctx, store.NewExamQueryFilter().ByActive(true))
	if err != nil {
		tracer.Error(err).Log()
		return changes, err
	}

	now := p.today()
	for _, exam := range exams {
		previous := lifecycle.Status(exam.Status)
		next := lifecycle.Derive(exam.Dates(), now)
		if !changes.Record(previous, next) {
			continue
		}

		if lifecycle.Regressed(previous, next) {
			tracer.Step("status_regressed").
				WithUUID("exam_id", exam.ID).
				WithString("from", string(previous)).
				WithString("to", string(next)).
				Log()
		}

		if err := p.store.Exam().UpdateStatus(ctx, exam.ID, next); err != nil {
			tracer.Error(err).WithUUID("exam_id", exam.ID).Log()
			return changes, fmt.Errorf("update status of %q: %w", exam.ExamName, err)
		}

		p.publish(ctx, events.StatusChangedKind, events.StatusChangedEvent{
			ExamID:       exam.ID.String(),
			ExamName:     exam.ExamName,
			Organization: exam.Organization,
			From:         string(previous),
			To:           string(next),
		})
	}

	metrics.IncreaseStatusTransitionsMetric(string(lifecycle.StatusClosed), changes.Closed)
	metrics.IncreaseStatusTransitionsMetric(string(lifecycle.StatusOpen), changes.Opened)
	metrics.IncreaseStatusTransitionsMetric(string(lifecycle.StatusComingSoon), changes.ComingSoon)

	tracer.Success().
		WithInt("active", len(exams)).
		WithInt("closed", changes.Closed).
		WithInt("opened", changes.Opened).
		WithInt("coming_soon", changes.ComingSoon).
		Log()

	return changes, nil
}

func (p *PipelineService) totals(ctx context.Context) (Totals, error) {
	active, err := p.store.Exam().Count(ctx, store.NewExamQueryFilter().ByActive(true))
	if err != nil {
		return Totals{}, err
	}
	open, err := p.store.Exam().Count(ctx, store.NewExamQueryFilter().ByActive(true).ByStatus(lifecycle.StatusOpen))
	if err != nil {
		return Totals{}, err
	}
	return Totals{Active: active, Open: open}, nil
}

func (p *PipelineService) abort(ctx context.Context, tracer *log.OperationTracer, runType api.RunType, handle *ledger.Handle, start time.Time, cause error) error {
	tracer.Error(cause).WithString("run_id", handle.RunID()).Log()
	p.close(ctx, tracer, runType, handle, start, ledger.Outcome{Err: cause})
	return NewErrRunFailed(handle.RunID(), cause)
}

// close writes the outcome to the ledger and returns the run duration and final status.
// A run the sweep already failed stays failed.
func (p *PipelineService) close(ctx context.Context, tracer *log.OperationTracer, runType api.RunType, handle *ledger.Handle, start time.Time, o ledger.Outcome) (int64, api.RunStatus) {
	duration := p.now().Sub(start).Milliseconds()
	status := o.Status()
	if handle == nil {
		metrics.ObserveRun(string(runType), string(status), duration)
		return duration, status
	}

	// the ledger must still be written when the caller has gone away
	run, err := p.ledger.Close(context.WithoutCancel(ctx), handle, o)
	switch {
	case errors.Is(err, ledger.ErrRunAlreadyClosed):
		zap.S().Named("pipeline_service").Warnw("run was closed before it finished, keeping it failed",
			"run_id", handle.RunID(), "run_type", runType, "outcome", status)
		return duration, api.RunStatusFailed
	case err != nil:
		tracer.Step("ledger_close_failed").WithString("error", err.Error()).Log()
		return duration, status
	}
	if run.DurationMs != nil {
		duration = *run.DurationMs
	}
	return duration, status
}

func (p *PipelineService) publish(ctx context.Context, kind string, event any) {
	if p.eventWriter == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		zap.S().Named("pipeline_service").Errorw("failed to marshal event", "error", err, "event_kind", kind)
		return
	}

	if err := p.eventWriter.Write(ctx, kind, bytes.NewBuffer(data)); err != nil {
		zap.S().Named("pipeline_service").Errorw("failed to write event", "error", err, "event_kind", kind)
	}
}

func metadata(req ReconcileRequest, changes lifecycle.Transitions, totals Totals) map[string]any {
	md := map[string]any{
		"status_changes": changes,
		"total_active":   totals.Active,
		"total_open":     totals.Open,
	}
	if req.RunType == api.RunTypeWebhook {
		stats := req.Stats
		if stats == nil {
			stats = map[string]any{}
		}
		scrapers := req.Sources
		if scrapers == nil {
			scrapers = []string{}
		}
		md["crawler_stats"] = stats
		md["scrapers"] = scrapers
	}
	return md
}
