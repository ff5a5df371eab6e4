package domain

import "time"

// Donor is keyed by email and shared across donations.
type Donor struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Currency is static reference data looked up by code.
type Currency struct {
	ID     int64
	Code   string
	Symbol string
	Name   string
}

// Category is static reference data looked up by slug.
type Category struct {
	ID   int64
	Name string
	Slug string
}
