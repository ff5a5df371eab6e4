package queue

import "testing"

func TestMailMessageValidate(t *testing.T) {
	msg := MailMessage{
		To:        "a@b.com",
		Subject:   "Donation Confirmation",
		Text:      "Thank you",
		Reference: "don-1",
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	msg.To = ""
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty recipient")
	}

	msg.To = "a@b.com"
	msg.Subject = " "
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for blank subject")
	}

	msg.Subject = "Donation Confirmation"
	msg.Text = ""
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for empty text body")
	}

	msg.Text = "Thank you"
	msg.Attempt = -1
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for negative attempt")
	}
}

func TestQueueNames(t *testing.T) {
	if MailQueueName != "mail" {
		t.Fatalf("MailQueueName = %s, want mail", MailQueueName)
	}
	if MailDLQName != "dlq.mail" {
		t.Fatalf("MailDLQName = %s, want dlq.mail", MailDLQName)
	}
}
