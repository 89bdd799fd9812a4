package store

import (
	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type ExamQueryFilter BaseQuerier

func NewExamQueryFilter() *ExamQueryFilter {
	return &ExamQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *ExamQueryFilter) ByActive(active bool) *ExamQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active = ?", active)
	})
	return qf
}

func (qf *ExamQueryFilter) ByStatus(statuses ...lifecycle.Status) *ExamQueryFilter {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", values)
	})
	return qf
}

// ByNaturalKey matches exam name and organization ignoring case and surrounding spaces.
// Both sides are normalised by model.NaturalKey, so the match does not depend on the
// database's notion of case.
func (qf *ExamQueryFilter) ByNaturalKey(examName, organization string) *ExamQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("name_key = ? AND organization_key = ?",
			model.NaturalKey(examName), model.NaturalKey(organization))
	})
	return qf
}

func (qf *ExamQueryFilter) ByOrganization(organization string) *ExamQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("organization_key = ?", model.NaturalKey(organization))
	})
	return qf
}

type RunQueryFilter BaseQuerier

func NewRunQueryFilter() *RunQueryFilter {
	return &RunQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *RunQueryFilter) ByStatus(statuses ...api.RunStatus) *RunQueryFilter {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", values)
	})
	return qf
}

func (qf *RunQueryFilter) ByRunType(runType api.RunType) *RunQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("run_type = ?", string(runType))
	})
	return qf
}

type RunQueryOptions BaseQuerier

func NewRunQueryOptions() *RunQueryOptions {
	return &RunQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// WithLimit caps the number of runs returned. Non-positive limits are ignored.
func (o *RunQueryOptions) WithLimit(limit int) *RunQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	})
	return o
}
