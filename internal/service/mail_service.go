package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chapelgive/donation-engine/internal/queue"
	"go.uber.org/zap"
)

const donationSuccessSubject = "Donation Confirmation"

// DonationSuccessMail carries everything needed to compose the confirmation
// mail. AmountMinor is in minor units; only the rendered body divides it out.
type DonationSuccessMail struct {
	To           string
	DonorName    string
	AmountMinor  int64
	CurrencyCode string
	Reference    string
}

type MailService struct {
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewMailService(publisher queue.Publisher, logger *zap.Logger) (*MailService, error) {
	if publisher == nil {
		return nil, fmt.Errorf("queue publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MailService{
		publisher: publisher,
		logger:    logger,
	}, nil
}

// EnqueueDonationSuccess publishes the confirmation mail job. A donation
// without a recipient address is skipped, not failed.
func (s *MailService) EnqueueDonationSuccess(ctx context.Context, mail DonationSuccessMail) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(mail.To) == "" {
		s.logger.Info("skipping confirmation mail: donation has no recipient address",
			zap.String("reference", mail.Reference),
		)
		return nil
	}

	msg := queue.MailMessage{
		To:        strings.TrimSpace(mail.To),
		Subject:   donationSuccessSubject,
		Text:      composeDonationSuccessBody(mail),
		Reference: mail.Reference,
		Attempt:   0,
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid mail message: %w", err)
	}

	if err := s.publisher.Publish(ctx, queue.MailQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish mail message: %w", err)
	}

	s.logger.Info("confirmation mail enqueued",
		zap.String("reference", mail.Reference),
		zap.String("to", msg.To),
	)
	return nil
}

func composeDonationSuccessBody(mail DonationSuccessMail) string {
	name := strings.TrimSpace(mail.DonorName)
	if name == "" {
		name = "Member"
	}

	currency := strings.ToUpper(strings.TrimSpace(mail.CurrencyCode))
	amount := float64(mail.AmountMinor) / 100

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for your donation of %s %.2f.\n", currency, amount)
	fmt.Fprintf(&b, "Your payment reference is %s.\n\n", mail.Reference)
	b.WriteString("God bless you.")
	return b.String()
}
