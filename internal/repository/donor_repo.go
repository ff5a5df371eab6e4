package repository

import (
	"context"
	"errors"

	"github.com/chapelgive/donation-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DonorRepository interface {
	UpsertByEmail(ctx context.Context, d *domain.Donor) error
	GetByID(ctx context.Context, id int64) (*domain.Donor, error)
}

type GormDonorRepo struct {
	db *gorm.DB
}

func NewGormDonorRepo(db *gorm.DB) *GormDonorRepo {
	return &GormDonorRepo{db: db}
}

// UpsertByEmail creates the donor or refreshes name/phone on the existing row.
func (r *GormDonorRepo) UpsertByEmail(ctx context.Context, d *domain.Donor) error {
	model := donorModelFromDomain(d)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	// The conflict path does not report the existing primary key; reload.
	if model.ID == 0 {
		if err := r.db.WithContext(ctx).First(model, "email = ?", model.Email).Error; err != nil {
			return err
		}
	}

	if d != nil {
		*d = *donorModelToDomain(model)
	}
	return nil
}

func (r *GormDonorRepo) GetByID(ctx context.Context, id int64) (*domain.Donor, error) {
	var model DonorModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return donorModelToDomain(&model), nil
}
