// Package mail delivers queued messages over SMTP.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/chapelgive/donation-engine/internal/queue"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through a gomail dialer. Each send dials a fresh
// connection; the worker's rate limiter keeps the connection churn bounded.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   strings.TrimSpace(cfg.From),
	}, nil
}

// Send delivers one message. gomail carries no context, so cancellation is
// only honored between messages, before the dial.
func (s *SMTPSender) Send(ctx context.Context, msg queue.MailMessage) error {
	if s == nil || s.dialer == nil {
		return fmt.Errorf("smtp sender is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
