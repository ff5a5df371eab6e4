package seed

import (
	"context"
	"fmt"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/chapelgive/donation-engine/internal/repository"
)

var categories = []string{
	"General Offering",
	"Special Seed",
	"Global Service Sponsorship",
	"Save a Life Campaign",
	"Global Outreach",
}

var currencies = []domain.Currency{
	{Code: "NGN", Symbol: "₦", Name: "Naira"},
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
	{Code: "GBP", Symbol: "£", Name: "Pound Sterling"},
	{Code: "GHS", Symbol: "₵", Name: "Ghana Cedis"},
}

// ReferenceData inserts the giving categories and supported currencies.
// Existing rows are left untouched, so it is safe to run on every startup.
func ReferenceData(ctx context.Context, repo repository.ReferenceDataRepository) error {
	if err := repo.SeedCategories(ctx, categories); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := repo.SeedCurrencies(ctx, currencies); err != nil {
		return fmt.Errorf("failed to seed currencies: %w", err)
	}
	return nil
}
