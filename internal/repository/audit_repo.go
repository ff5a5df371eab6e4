package repository

import (
	"context"

	"github.com/chapelgive/donation-engine/internal/domain"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	ExistsByProviderRef(ctx context.Context, provider, providerRef string) (bool, error)
	GetByDonationID(ctx context.Context, donationID int64) ([]domain.PaymentTransaction, error)
}

type GormTransactionRepo struct {
	db *gorm.DB
}

func NewGormTransactionRepo(db *gorm.DB) *GormTransactionRepo {
	return &GormTransactionRepo{db: db}
}

func (r *GormTransactionRepo) ExistsByProviderRef(ctx context.Context, provider, providerRef string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&PaymentTransactionModel{}).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormTransactionRepo) GetByDonationID(ctx context.Context, donationID int64) ([]domain.PaymentTransaction, error) {
	var models []PaymentTransactionModel
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	transactions := make([]domain.PaymentTransaction, 0, len(models))
	for i := range models {
		transactions = append(transactions, *transactionModelToDomain(&models[i]))
	}
	return transactions, nil
}

type MailLogRepository interface {
	Exists(ctx context.Context, reference, mailType string) (bool, error)
	Create(ctx context.Context, log *domain.MailLog) error
}

type GormMailLogRepo struct {
	db *gorm.DB
}

func NewGormMailLogRepo(db *gorm.DB) *GormMailLogRepo {
	return &GormMailLogRepo{db: db}
}

func (r *GormMailLogRepo) Exists(ctx context.Context, reference, mailType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MailLogModel{}).
		Where("reference = ? AND type = ?", reference, mailType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create records the sent marker. A concurrent duplicate trips the
// (reference, type) unique index and is reported as ErrConflict so the caller
// can treat the notification as already handled.
func (r *GormMailLogRepo) Create(ctx context.Context, log *domain.MailLog) error {
	model := &MailLogModel{Reference: log.Reference, Type: log.Type, CreatedAt: log.CreatedAt}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return err
	}
	if log != nil {
		*log = *mailLogModelToDomain(model)
	}
	return nil
}
