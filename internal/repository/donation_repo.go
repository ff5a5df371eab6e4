package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/chapelgive/donation-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListParams struct {
	Status     *domain.DonationStatus
	DonorEmail string
	CategoryID *int64
	Page       int
	PerPage    int
}

// ReconciliationUpdate is the atomic unit applied when a provider outcome is
// reconciled: the audit transaction row and the status transition commit or
// roll back together.
type ReconciliationUpdate struct {
	DonationID  int64
	Transaction *domain.PaymentTransaction
	NewStatus   *domain.DonationStatus
}

type DonationRepository interface {
	Create(ctx context.Context, d *domain.Donation) error
	GetByReference(ctx context.Context, reference string) (*domain.Donation, error)
	GetByUUID(ctx context.Context, uuid string) (*domain.Donation, error)
	SetAuthorizationURL(ctx context.Context, id int64, authorizationURL *string) error
	ApplyReconciliation(ctx context.Context, update ReconciliationUpdate) (bool, error)
	List(ctx context.Context, params ListParams) ([]domain.Donation, int64, error)
}

type GormDonationRepo struct {
	db *gorm.DB
}

func NewGormDonationRepo(db *gorm.DB) *GormDonationRepo {
	return &GormDonationRepo{db: db}
}

func (r *GormDonationRepo) Create(ctx context.Context, d *domain.Donation) error {
	model := donationModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return err
	}
	if d != nil {
		*d = *donationModelToDomain(model)
	}
	return nil
}

func (r *GormDonationRepo) GetByReference(ctx context.Context, reference string) (*domain.Donation, error) {
	return r.getOne(ctx, "reference = ?", reference)
}

func (r *GormDonationRepo) GetByUUID(ctx context.Context, uuid string) (*domain.Donation, error) {
	return r.getOne(ctx, "uuid = ?", uuid)
}

func (r *GormDonationRepo) getOne(ctx context.Context, query string, arg any) (*domain.Donation, error) {
	var model DonationModel
	err := r.db.WithContext(ctx).
		Preload("Donor").
		Preload("Category").
		Preload("Currency").
		Preload("Transactions").
		First(&model, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return donationModelToDomain(&model), nil
}

func (r *GormDonationRepo) SetAuthorizationURL(ctx context.Context, id int64, authorizationURL *string) error {
	result := r.db.WithContext(ctx).
		Model(&DonationModel{}).
		Where("id = ?", id).
		Update("authorization_url", authorizationURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyReconciliation inserts the payment transaction (a duplicate
// (provider, provider_ref) pair is silently skipped by the unique index) and
// applies the status transition guarded by the current PENDING state, all in
// one database transaction. Returns whether the status actually changed.
func (r *GormDonationRepo) ApplyReconciliation(ctx context.Context, update ReconciliationUpdate) (bool, error) {
	statusChanged := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if update.Transaction != nil {
			model := transactionModelFromDomain(update.Transaction)
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_ref"}},
				DoNothing: true,
			}).Create(model).Error
			if err != nil {
				return err
			}
		}

		if update.NewStatus != nil {
			result := tx.Model(&DonationModel{}).
				Where("id = ? AND status = ?", update.DonationID, domain.StatusPending).
				Update("status", *update.NewStatus)
			if result.Error != nil {
				return result.Error
			}
			statusChanged = result.RowsAffected > 0
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return statusChanged, nil
}

func (r *GormDonationRepo) List(ctx context.Context, params ListParams) ([]domain.Donation, int64, error) {
	query := r.db.WithContext(ctx).Model(&DonationModel{})

	if params.Status != nil {
		query = query.Where("donations.status = ?", *params.Status)
	}
	if email := strings.TrimSpace(params.DonorEmail); email != "" {
		query = query.
			Joins("JOIN donors ON donors.id = donations.donor_id").
			Where("donors.email ILIKE ?", "%"+email+"%")
	}
	if params.CategoryID != nil {
		query = query.Where("donations.category_id = ?", *params.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	perPage := params.PerPage
	if perPage < 1 {
		perPage = 10
	}
	perPage = min(perPage, 100)

	var models []DonationModel
	err := query.
		Preload("Donor").
		Preload("Category").
		Preload("Currency").
		Order("donations.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	donations := make([]domain.Donation, 0, len(models))
	for i := range models {
		donations = append(donations, *donationModelToDomain(&models[i]))
	}

	return donations, total, nil
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
