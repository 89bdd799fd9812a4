package store

import (
	"context"
	"errors"

	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"gorm.io/gorm"
)

type Profile interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
}

type ProfileStore struct {
	db *gorm.DB
}

var _ Profile = (*ProfileStore)(nil)

func NewProfileStore(db *gorm.DB) Profile {
	return &ProfileStore{db: db}
}

func (p *ProfileStore) Get(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := p.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &profile, nil
}
