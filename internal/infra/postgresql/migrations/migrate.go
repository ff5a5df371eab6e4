package migrations

import (
	"github.com/chapelgive/donation-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_reference_data",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&repository.CurrencyModel{},
					&repository.CategoryModel{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&repository.CategoryModel{},
					&repository.CurrencyModel{},
				)
			},
		},
		{
			ID: "000002_create_donors",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.DonorModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DonorModel{})
			},
		},
		{
			ID: "000003_create_donations",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DonationModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_donations_status_created ON donations (status, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DonationModel{})
			},
		},
		{
			ID: "000004_create_payment_transactions",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.PaymentTransactionModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.PaymentTransactionModel{})
			},
		},
		{
			ID: "000005_create_mail_logs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.MailLogModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.MailLogModel{})
			},
		},
	})

	return m.Migrate()
}
