package store

import (
	"context"
	"fmt"

	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Exam() Exam
	Run() Run
	Profile() Profile
	InitialMigration(ctx context.Context) error
	Statistics(ctx context.Context) (model.ExamStats, error)
	Close() error
}

type DataStore struct {
	db      *gorm.DB
	exam    Exam
	run     Run
	profile Profile
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:      db,
		exam:    NewExamStore(db),
		run:     NewRunStore(db),
		profile: NewProfileStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Exam() Exam {
	return s.exam
}

func (s *DataStore) Run() Run {
	return s.run
}

func (s *DataStore) Profile() Profile {
	return s.profile
}

// InitialMigration creates the schema from the models. Production databases are
// migrated with goose; this serves sqlite and throwaway databases.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.Exam{}, &model.Run{}, &model.Profile{})
}

func (s *DataStore) Statistics(ctx context.Context) (model.ExamStats, error) {
	var byStatus, byOrganization, byLevel []model.GroupCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.exam.CountByGroup(gctx, ExamGroupStatus)
		return err
	})
	g.Go(func() (err error) {
		byOrganization, err = s.exam.CountByGroup(gctx, ExamGroupOrganization)
		return err
	})
	g.Go(func() (err error) {
		byLevel, err = s.exam.CountByGroup(gctx, ExamGroupLevel)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ExamStats{}, fmt.Errorf("counting exams: %w", err)
	}

	return model.NewExamStats(byStatus, byOrganization, byLevel), nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
