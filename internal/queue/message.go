package queue

import (
	"fmt"
	"strings"
)

// MailMessage is the broker payload for one outbound email. Attempt counts
// deliveries already tried, so a republished retry carries its history.
type MailMessage struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
	Attempt   int    `json:"attempt"`
}

func (m MailMessage) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("text body is required")
	}
	if m.Attempt < 0 {
		return fmt.Errorf("attempt must not be negative")
	}
	return nil
}
