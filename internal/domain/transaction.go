package domain

import (
	"encoding/json"
	"time"
)

// ProviderPaystack is the only configured payment provider.
const ProviderPaystack = "paystack"

// MailTypeDonationSuccess keys the confirmation-mail idempotency gate.
const MailTypeDonationSuccess = "DONATION_SUCCESS"

// PaymentTransaction records one confirmed provider callback for a donation.
// At most one row may exist per (provider, providerRef) pair.
type PaymentTransaction struct {
	ID              int64
	DonationID      int64
	Provider        string
	ProviderRef     string
	ProviderTxnID   string
	Amount          int64
	Status          string
	GatewayResponse string
	RawResponse     json.RawMessage
	CreatedAt       time.Time
}

// MailLog marks that a notification of a given type has been sent for a
// donation reference. It is the idempotency gate for email dispatch.
type MailLog struct {
	ID        int64
	Reference string
	Type      string
	CreatedAt time.Time
}
