package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Exam interface {
	List(ctx context.Context, filter *ExamQueryFilter) (model.ExamList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	FindByNaturalKey(ctx context.Context, examName, organization string) (*model.Exam, error)
	// Upsert writes exam by natural key and reports whether a new row was created.
	Upsert(ctx context.Context, exam model.Exam) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.Status) error
	Count(ctx context.Context, filter *ExamQueryFilter) (int64, error)
	CountByGroup(ctx context.Context, group ExamGroup) ([]model.GroupCount, error)
}

// ExamGroup names a column active exams can be counted by.
type ExamGroup string

const (
	ExamGroupStatus       ExamGroup = "status"
	ExamGroupOrganization ExamGroup = "organization"
	ExamGroupLevel        ExamGroup = "level"
)

type ExamStore struct {
	db *gorm.DB
}

// Make sure we conform to Exam interface
var _ Exam = (*ExamStore)(nil)

func NewExamStore(db *gorm.DB) Exam {
	return &ExamStore{db: db}
}

func (e *ExamStore) List(ctx context.Context, filter *ExamQueryFilter) (model.ExamList, error) {
	var exams model.ExamList
	tx := e.getDB(ctx).Model(&exams).Order("created_at, id")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (e *ExamStore) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	if err := e.getDB(ctx).First(&exam, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &exam, nil
}

// FindByNaturalKey returns the single exam matching the natural key, ErrRecordNotFound
// when none does and ErrAmbiguousNaturalKey when several do.
func (e *ExamStore) FindByNaturalKey(ctx context.Context, examName, organization string) (*model.Exam, error) {
	var matches model.ExamList
	tx := e.getDB(ctx).Model(&matches)
	for _, fn := range NewExamQueryFilter().ByNaturalKey(examName, organization).QueryFn {
		tx = fn(tx)
	}

	if err := tx.Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q / %q", ErrAmbiguousNaturalKey, examName, organization)
	}
}

func (e *ExamStore) Upsert(ctx context.Context, exam model.Exam) (bool, error) {
	exam.SetNaturalKey()

	existing, err := e.FindByNaturalKey(ctx, exam.ExamName, exam.Organization)
	switch {
	case err == nil:
		exam.ID = existing.ID
		return false, e.update(ctx, exam)
	case !errors.Is(err, ErrRecordNotFound):
		return false, err
	}

	exam.ID = uuid.New()
	exam.IsActive = true
	result := e.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}, {Name: "organization_key"}},
		DoNothing: true,
	}).Create(&exam)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// another writer inserted the same key between lookup and insert
	existing, err = e.FindByNaturalKey(ctx, exam.ExamName, exam.Organization)
	if err != nil {
		return false, err
	}
	exam.ID = existing.ID
	return false, e.update(ctx, exam)
}

func (e *ExamStore) update(ctx context.Context, exam model.Exam) error {
	result := e.getDB(ctx).Model(&model.Exam{}).
		Where("id = ?", exam.ID).
		Select(model.MutableColumns()).
		Updates(&exam)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (e *ExamStore) UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.Status) error {
	result := e.getDB(ctx).Model(&model.Exam{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (e *ExamStore) Count(ctx context.Context, filter *ExamQueryFilter) (int64, error) {
	var count int64
	tx := e.getDB(ctx).Model(&model.Exam{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByGroup counts active exams grouped by the given column.
func (e *ExamStore) CountByGroup(ctx context.Context, group ExamGroup) ([]model.GroupCount, error) {
	switch group {
	case ExamGroupStatus, ExamGroupOrganization, ExamGroupLevel:
	default:
		return nil, fmt.Errorf("unknown exam group %q", group)
	}

	var rows []model.GroupCount
	err := e.getDB(ctx).Model(&model.Exam{}).
		Select(fmt.Sprintf("COALESCE(%s, '') AS name, COUNT(*) AS total", group)).
		Where("is_active = ?", true).
		Group(string(group)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *ExamStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return e.db.WithContext(ctx)
}
