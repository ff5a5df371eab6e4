package repository

import (
	"context"
	"errors"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferenceDataRepository interface {
	GetCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error)
	GetCategoryBySlug(ctx context.Context, categorySlug string) (*domain.Category, error)
	SeedCurrencies(ctx context.Context, currencies []domain.Currency) error
	SeedCategories(ctx context.Context, names []string) error
}

type GormReferenceDataRepo struct {
	db *gorm.DB
}

func NewGormReferenceDataRepo(db *gorm.DB) *GormReferenceDataRepo {
	return &GormReferenceDataRepo{db: db}
}

func (r *GormReferenceDataRepo) GetCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	var model CurrencyModel
	err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return currencyModelToDomain(&model), nil
}

func (r *GormReferenceDataRepo) GetCategoryBySlug(ctx context.Context, categorySlug string) (*domain.Category, error) {
	var model CategoryModel
	err := r.db.WithContext(ctx).First(&model, "slug = ?", categorySlug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return categoryModelToDomain(&model), nil
}

// SeedCurrencies inserts missing currencies; existing codes are left untouched.
func (r *GormReferenceDataRepo) SeedCurrencies(ctx context.Context, currencies []domain.Currency) error {
	for _, c := range currencies {
		model := CurrencyModel{Code: c.Code, Symbol: c.Symbol, Name: c.Name}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).
			Create(&model).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedCategories inserts missing categories keyed by their normalized slug.
func (r *GormReferenceDataRepo) SeedCategories(ctx context.Context, names []string) error {
	for _, name := range names {
		model := CategoryModel{Name: name, Slug: slug.Make(name)}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoNothing: true,
			}).
			Create(&model).Error
		if err != nil {
			return err
		}
	}
	return nil
}
