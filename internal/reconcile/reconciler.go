// Package reconcile upserts batches of scraped exam records by natural key.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/handlers/validator"
	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
)

type Reconciler struct {
	store     store.Store
	validator *validator.Validator
	now       func() time.Time
	logger    *log.StructuredLogger
}

type Option func(r *Reconciler)

// WithClock sets the source of the current time used to derive statuses. Callers pick
// the time zone through the location of the returned time.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

func NewReconciler(s store.Store, opts ...Option) *Reconciler {
	v := validator.NewValidator()
	v.Register(validator.NewExamRecordValidationRules()...)

	r := &Reconciler{
		store:     s,
		validator: v,
		now:       time.Now,
		logger:    log.NewDebugLogger("reconciler"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile processes records one at a time, each in its own transaction. A bad record
// is reported in the result and never stops the batch; only a cancelled context does.
// Every record ends up counted exactly once as new, updated or failed.
func (r *Reconciler) Reconcile(ctx context.Context, records []api.ExamRecord) (Result, error) {
	tracer := r.logger.WithContext(ctx).Operation("reconcile_batch").
		WithInt("batch_size", len(records)).
		Build()

	result := Result{Errors: []ErrorDetail{}}
	now := r.now()

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			tracer.Error(err).WithInt("processed", i).Log()
			return result, fmt.Errorf("reconcile interrupted after %d of %d records: %w", i, len(records), err)
		}

		exam, err := r.toModel(record, now)
		if err != nil {
			result.Errors = append(result.Errors, newValidationError(record, err))
			continue
		}

		created, err := r.upsert(ctx, exam)
		if err != nil {
			tracer.Step("upsert_failed").
				WithString("exam_name", exam.ExamName).
				WithString("organization", exam.Organization).
				WithString("error", err.Error()).
				Log()
			result.Errors = append(result.Errors, newStorageError(exam.ExamName, err))
			continue
		}

		if created {
			result.New++
		} else {
			result.Updated++
		}
	}

	tracer.Success().
		WithInt("new", result.New).
		WithInt("updated", result.Updated).
		WithInt("errors", len(result.Errors)).
		Log()

	return result, nil
}

func (r *Reconciler) upsert(ctx context.Context, exam model.Exam) (bool, error) {
	txCtx, err := r.store.NewTransactionContext(ctx)
	if err != nil {
		return false, err
	}

	created, err := r.store.Exam().Upsert(txCtx, exam)
	if err != nil {
		_, _ = store.Rollback(txCtx)
		return false, err
	}

	if _, err := store.Commit(txCtx); err != nil {
		return false, err
	}
	return created, nil
}

// toModel validates record and maps it onto the stored shape with its derived status.
func (r *Reconciler) toModel(record api.ExamRecord, now time.Time) (model.Exam, error) {
	if err := r.validator.Struct(record); err != nil {
		return model.Exam{}, err
	}

	exam := model.Exam{
		ExamName:         strings.TrimSpace(record.ExamName),
		Organization:     strings.TrimSpace(record.Organization),
		Level:            model.DefaultExamLevel,
		State:            blankToNil(record.State),
		Description:      blankToNil(record.Description),
		Eligibility:      blankToNil(record.Eligibility),
		Qualification:    blankToNil(record.Qualification),
		AgeLimit:         blankToNil(record.AgeLimit),
		ApplicationFee:   blankToNil(record.ApplicationFee),
		SelectionProcess: blankToNil(record.SelectionProcess),
		OfficialWebsite:  blankToNil(record.OfficialWebsite),
		NotificationPdf:  blankToNil(record.NotificationPdf),
	}
	if level := blankToNil(record.Level); level != nil {
		exam.Level = *level
	}

	var err error
	if exam.ApplicationStartDate, err = lifecycle.ParseDatePtr(record.ApplicationStartDate); err != nil {
		return model.Exam{}, fmt.Errorf("application_start_date: %w", err)
	}
	if exam.ApplicationLastDate, err = lifecycle.ParseDatePtr(record.ApplicationLastDate); err != nil {
		return model.Exam{}, fmt.Errorf("application_last_date: %w", err)
	}
	if exam.ExamDate, err = lifecycle.ParseDatePtr(record.ExamDate); err != nil {
		return model.Exam{}, fmt.Errorf("exam_date: %w", err)
	}

	exam.Status = string(lifecycle.Derive(exam.Dates(), now))
	return exam, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
