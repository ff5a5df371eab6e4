package repository

import (
	"encoding/json"
	"time"

	"github.com/chapelgive/donation-engine/internal/domain"
)

// DonorModel is the persistence model for the donors table.
type DonorModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);not null"`
	Email     string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone     string `gorm:"type:varchar(32);not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DonorModel) TableName() string { return "donors" }

// CurrencyModel is the persistence model for currencies.
type CurrencyModel struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	Code   string `gorm:"type:varchar(3);not null;uniqueIndex"`
	Symbol string `gorm:"type:varchar(8);not null"`
	Name   string `gorm:"type:varchar(64);not null"`
}

func (CurrencyModel) TableName() string { return "currencies" }

// CategoryModel is the persistence model for categories.
type CategoryModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(128);not null"`
	Slug string `gorm:"type:varchar(128);not null;uniqueIndex"`
}

func (CategoryModel) TableName() string { return "categories" }

// DonationModel is the persistence model for donations.
type DonationModel struct {
	ID               int64                  `gorm:"primaryKey;autoIncrement"`
	UUID             string                 `gorm:"type:uuid;not null;uniqueIndex"`
	DonorID          int64                  `gorm:"not null;index"`
	CategoryID       *int64                 `gorm:"index"`
	CurrencyID       int64                  `gorm:"not null"`
	Amount           int64                  `gorm:"not null"`
	Reference        string                 `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status           domain.DonationStatus  `gorm:"type:varchar(10);not null"`
	AuthorizationURL *string                `gorm:"type:text"`
	Metadata         json.RawMessage        `gorm:"type:jsonb"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Donor        *DonorModel               `gorm:"foreignKey:DonorID"`
	Category     *CategoryModel            `gorm:"foreignKey:CategoryID"`
	Currency     *CurrencyModel            `gorm:"foreignKey:CurrencyID"`
	Transactions []PaymentTransactionModel `gorm:"foreignKey:DonationID"`
}

func (DonationModel) TableName() string { return "donations" }

// PaymentTransactionModel is the persistence model for payment_transactions.
// The (provider, provider_ref) unique index backstops idempotency gate A.
type PaymentTransactionModel struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	DonationID      int64           `gorm:"not null;index"`
	Provider        string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_txn_provider_ref"`
	ProviderRef     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_txn_provider_ref"`
	ProviderTxnID   string          `gorm:"type:varchar(64);not null"`
	Amount          int64           `gorm:"not null"`
	Status          string          `gorm:"type:varchar(32);not null"`
	GatewayResponse string          `gorm:"type:text"`
	RawResponse     json.RawMessage `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

func (PaymentTransactionModel) TableName() string { return "payment_transactions" }

// MailLogModel is the persistence model for mail_logs. The (reference, type)
// unique index backstops idempotency gate B.
type MailLogModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Reference string `gorm:"type:varchar(64);not null;uniqueIndex:idx_mail_log_reference_type"`
	Type      string `gorm:"type:varchar(32);not null;uniqueIndex:idx_mail_log_reference_type"`
	CreatedAt time.Time
}

func (MailLogModel) TableName() string { return "mail_logs" }

func donorModelFromDomain(d *domain.Donor) *DonorModel {
	if d == nil {
		return nil
	}
	return &DonorModel{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func donorModelToDomain(m *DonorModel) *domain.Donor {
	if m == nil {
		return nil
	}
	return &domain.Donor{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func currencyModelToDomain(m *CurrencyModel) *domain.Currency {
	if m == nil {
		return nil
	}
	return &domain.Currency{
		ID:     m.ID,
		Code:   m.Code,
		Symbol: m.Symbol,
		Name:   m.Name,
	}
}

func categoryModelToDomain(m *CategoryModel) *domain.Category {
	if m == nil {
		return nil
	}
	return &domain.Category{
		ID:   m.ID,
		Name: m.Name,
		Slug: m.Slug,
	}
}

func donationModelFromDomain(d *domain.Donation) *DonationModel {
	if d == nil {
		return nil
	}
	return &DonationModel{
		ID:               d.ID,
		UUID:             d.UUID,
		DonorID:          d.DonorID,
		CategoryID:       d.CategoryID,
		CurrencyID:       d.CurrencyID,
		Amount:           d.Amount,
		Reference:        d.Reference,
		Status:           d.Status,
		AuthorizationURL: d.AuthorizationURL,
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func donationModelToDomain(m *DonationModel) *domain.Donation {
	if m == nil {
		return nil
	}

	d := &domain.Donation{
		ID:               m.ID,
		UUID:             m.UUID,
		DonorID:          m.DonorID,
		CategoryID:       m.CategoryID,
		CurrencyID:       m.CurrencyID,
		Amount:           m.Amount,
		Reference:        m.Reference,
		Status:           m.Status,
		AuthorizationURL: m.AuthorizationURL,
		Metadata:         m.Metadata,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		Donor:            donorModelToDomain(m.Donor),
		Category:         categoryModelToDomain(m.Category),
		Currency:         currencyModelToDomain(m.Currency),
	}

	for i := range m.Transactions {
		d.Transactions = append(d.Transactions, *transactionModelToDomain(&m.Transactions[i]))
	}

	return d
}

func transactionModelFromDomain(t *domain.PaymentTransaction) *PaymentTransactionModel {
	if t == nil {
		return nil
	}
	return &PaymentTransactionModel{
		ID:              t.ID,
		DonationID:      t.DonationID,
		Provider:        t.Provider,
		ProviderRef:     t.ProviderRef,
		ProviderTxnID:   t.ProviderTxnID,
		Amount:          t.Amount,
		Status:          t.Status,
		GatewayResponse: t.GatewayResponse,
		RawResponse:     t.RawResponse,
		CreatedAt:       t.CreatedAt,
	}
}

func transactionModelToDomain(m *PaymentTransactionModel) *domain.PaymentTransaction {
	if m == nil {
		return nil
	}
	return &domain.PaymentTransaction{
		ID:              m.ID,
		DonationID:      m.DonationID,
		Provider:        m.Provider,
		ProviderRef:     m.ProviderRef,
		ProviderTxnID:   m.ProviderTxnID,
		Amount:          m.Amount,
		Status:          m.Status,
		GatewayResponse: m.GatewayResponse,
		RawResponse:     m.RawResponse,
		CreatedAt:       m.CreatedAt,
	}
}

func mailLogModelToDomain(m *MailLogModel) *domain.MailLog {
	if m == nil {
		return nil
	}
	return &domain.MailLog{
		ID:        m.ID,
		Reference: m.Reference,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
}
