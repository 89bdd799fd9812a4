package store

import (
	"context"
	"errors"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Run interface {
	Create(ctx context.Context, run model.Run) (*model.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Run, error)
	List(ctx context.Context, filter *RunQueryFilter, opts *RunQueryOptions) (model.RunList, error)
	// Close writes the terminal state of a run. Only a run still in the running state
	// can be closed; anything else yields ErrRunNotRunning.
	Close(ctx context.Context, run model.Run) (*model.Run, error)
}

type RunStore struct {
	db *gorm.DB
}

// Make sure we conform to Run interface
var _ Run = (*RunStore)(nil)

func NewRunStore(db *gorm.DB) Run {
	return &RunStore{db: db}
}

func (r *RunStore) Create(ctx context.Context, run model.Run) (*model.Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.getDB(ctx).Create(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &run, nil
}

func (r *RunStore) Get(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	var run model.Run
	if err := r.getDB(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first.
func (r *RunStore) List(ctx context.Context, filter *RunQueryFilter, opts *RunQueryOptions) (model.RunList, error) {
	var runs model.RunList
	tx := r.getDB(ctx).Model(&runs).Order("started_at DESC, id")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunStore) Close(ctx context.Context, run model.Run) (*model.Run, error) {
	result := r.getDB(ctx).Model(&model.Run{}).
		Where("id = ? AND status = ?", run.ID, string(api.RunStatusRunning)).
		Select("status", "exams_found", "exams_new", "exams_updated", "exams_closed", "errors", "error_log", "finished_at", "duration_ms", "metadata").
		Updates(&run)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, run.ID); err != nil {
			return nil, err
		}
		return nil, ErrRunNotRunning
	}

	return r.Get(ctx, run.ID)
}

func (r *RunStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}
