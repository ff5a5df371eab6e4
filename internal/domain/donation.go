package domain

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DonationStatus represents the lifecycle state of a donation.
type DonationStatus string

const (
	StatusPending DonationStatus = "PENDING"
	StatusSuccess DonationStatus = "SUCCESS"
	StatusFailed  DonationStatus = "FAILED"
)

func (s DonationStatus) String() string { return string(s) }

func (s DonationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s DonationStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransitionTo enforces the monotonic PENDING -> SUCCESS|FAILED rule.
// Re-applying the current terminal status is not a transition.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next == StatusSuccess || next == StatusFailed
}

func ParseDonationStatusFromString(s string) (DonationStatus, error) {
	st := DonationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Donation is the central aggregate. Amount is always stored in minor
// currency units (kobo, cents).
type Donation struct {
	ID               int64
	UUID             string
	DonorID          int64
	CategoryID       *int64
	CurrencyID       int64
	Amount           int64
	Reference        string
	Status           DonationStatus
	AuthorizationURL *string
	Metadata         json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Donor        *Donor
	Category     *Category
	Currency     *Currency
	Transactions []PaymentTransaction
}

// NewReference builds a payment reference unique with high probability:
// a millisecond timestamp component plus four random bytes.
func NewReference(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference entropy: %w", err)
	}
	return fmt.Sprintf("don-%d-%s", now.UnixMilli(), hex.EncodeToString(buf)), nil
}

// ToMinorUnits converts a major-unit amount to integer minor units by rounding.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}
