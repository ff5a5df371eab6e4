package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chapelgive/donation-engine/internal/queue"
)

func validMailMessage() queue.MailMessage {
	return queue.MailMessage{
		To:        "jane@example.com",
		Subject:   "Donation Confirmation",
		Text:      "Dear Jane Doe,\n\nThank you.",
		Reference: "don-1700000000000-a1b2c3d4",
		Attempt:   0,
	}
}

func newTestMailWorker(t *testing.T, publisher queue.Publisher, sender MailSender) *MailWorker {
	t.Helper()

	worker, err := NewMailWorker(&fakeConsumer{}, publisher, sender, &fakeRateLimiter{}, 1, nil)
	if err != nil {
		t.Fatalf("NewMailWorker() error = %v", err)
	}
	worker.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return worker
}

func TestMailWorkerProcessMessageSendsMail(t *testing.T) {
	t.Parallel()

	sent := false
	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg queue.MailMessage) error {
			sent = true
			return nil
		},
	}

	worker := newTestMailWorker(t, &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.MailMessage) error {
			t.Fatal("publish should not be called on successful send")
			return nil
		},
	}, sender)

	if err := worker.processMessage(context.Background(), validMailMessage()); err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if !sent {
		t.Fatal("sender should be invoked")
	}
}

func TestMailWorkerProcessMessageRepublishesRetry(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg queue.MailMessage) error {
			return errors.New("connection refused")
		},
	}

	var retried *queue.MailMessage
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.MailMessage) error {
			if queueName != queue.MailQueueName {
				t.Fatalf("retry queue = %q, want %q", queueName, queue.MailQueueName)
			}
			retried = &msg
			return nil
		},
	}

	worker := newTestMailWorker(t, publisher, sender)

	slept := time.Duration(0)
	worker.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	if err := worker.processMessage(context.Background(), validMailMessage()); err != nil {
		t.Fatalf("processMessage() error = %v, retry should ack the original", err)
	}

	if retried == nil {
		t.Fatal("failed send should republish a retry")
	}
	if retried.Attempt != 1 {
		t.Fatalf("retry attempt = %d, want 1", retried.Attempt)
	}
	if slept != 5*time.Second {
		t.Fatalf("retry delay = %v, want 5s for the first retry", slept)
	}
}

func TestMailWorkerProcessMessageExhaustsRetries(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg queue.MailMessage) error {
			return errors.New("permanent smtp failure")
		},
	}

	worker := newTestMailWorker(t, &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.MailMessage) error {
			t.Fatal("exhausted message must not be republished")
			return nil
		},
	}, sender)

	msg := validMailMessage()
	msg.Attempt = maxMailAttempts - 1

	err := worker.processMessage(context.Background(), msg)
	if err == nil {
		t.Fatal("processMessage() expected error so the delivery dead-letters")
	}
}

func TestMailWorkerProcessMessageDropsInvalidMessage(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg queue.MailMessage) error {
			t.Fatal("invalid message must not be sent")
			return nil
		},
	}

	worker := newTestMailWorker(t, &fakePublisher{}, sender)

	if err := worker.processMessage(context.Background(), queue.MailMessage{}); err != nil {
		t.Fatalf("processMessage() error = %v, invalid messages are acked and dropped", err)
	}
}

func TestMailWorkerProcessMessageRateLimiterError(t *testing.T) {
	t.Parallel()

	worker := newTestMailWorker(t, &fakePublisher{}, &fakeSender{})
	worker.rateLimiter = &fakeRateLimiter{
		waitFn: func(ctx context.Context, key string) error {
			if key != smtpRateLimitKey {
				t.Fatalf("rate limit key = %q, want %q", key, smtpRateLimitKey)
			}
			return context.Canceled
		},
	}

	if err := worker.processMessage(context.Background(), validMailMessage()); err == nil {
		t.Fatal("processMessage() expected error when the rate limiter fails")
	}
}

func TestMailWorkerStartStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			<-ctx.Done()
			return nil
		},
	}

	worker, err := NewMailWorker(consumer, &fakePublisher{}, &fakeSender{}, &fakeRateLimiter{}, 2, nil)
	if err != nil {
		t.Fatalf("NewMailWorker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after context cancellation")
	}
}

func TestComputeMailRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 5 * time.Second},
		{attempt: 1, want: 5 * time.Second},
		{attempt: 2, want: 10 * time.Second},
		{attempt: 3, want: 20 * time.Second},
		{attempt: 10, want: maxMailRetryDelay},
	}

	for _, tt := range tests {
		if got := computeMailRetryDelay(tt.attempt); got != tt.want {
			t.Fatalf("computeMailRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, msg queue.MailMessage) error
}

func (f *fakeSender) Send(ctx context.Context, msg queue.MailMessage) error {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}
