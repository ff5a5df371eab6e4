package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chapelgive/donation-engine/internal/observability"
	"github.com/chapelgive/donation-engine/internal/queue"
	"github.com/chapelgive/donation-engine/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency = 1
	maxMailAttempts      = 3
	baseMailRetryDelay   = 5 * time.Second
	maxMailRetryDelay    = 60 * time.Second
	smtpRateLimitKey     = "smtp"
)

// MailSender delivers one composed mail message. Implementations must honor
// context cancellation.
type MailSender interface {
	Send(ctx context.Context, msg queue.MailMessage) error
}

type MailWorker struct {
	consumer    queue.Consumer
	publisher   queue.Publisher
	sender      MailSender
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewMailWorker(
	consumer queue.Consumer,
	publisher queue.Publisher,
	sender MailSender,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*MailWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("queue publisher is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MailWorker{
		consumer:    consumer,
		publisher:   publisher,
		sender:      sender,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
		sleep:       sleepWithContext,
	}, nil
}

func (w *MailWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the mail queue until context cancellation.
func (w *MailWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("mail worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.MailQueueName, w.processMessage)
			if err != nil {
				w.logger.Error("mail worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("mail worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// processMessage sends one mail. A failed send is republished with an
// incremented attempt counter after an exponential delay; once the attempts
// are exhausted the returned error dead-letters the delivery.
func (w *MailWorker) processMessage(ctx context.Context, msg queue.MailMessage) error {
	logger := observability.WithContextLogger(w.logger, ctx)

	if err := msg.Validate(); err != nil {
		logger.Warn("dropping invalid mail message",
			zap.String("reference", msg.Reference),
			zap.Error(err),
		)
		w.metrics.IncMailFailed("invalid_message")
		return nil
	}

	w.metrics.IncWorkerInFlight()
	defer w.metrics.DecWorkerInFlight()

	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx, smtpRateLimitKey); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendStart := w.now()
	sendErr := w.sender.Send(ctx, msg)
	w.metrics.ObserveMailSendDuration(w.now().Sub(sendStart))

	if sendErr == nil {
		w.metrics.IncMailSent()
		logger.Info("confirmation mail sent",
			zap.String("reference", msg.Reference),
			zap.String("to", msg.To),
			zap.Int("attempt", msg.Attempt+1),
		)
		return nil
	}

	attempt := msg.Attempt + 1
	if attempt >= maxMailAttempts {
		w.metrics.IncMailFailed("retry_exhausted")
		logger.Error("mail delivery failed after final attempt",
			zap.String("reference", msg.Reference),
			zap.String("to", msg.To),
			zap.Int("attempt", attempt),
			zap.Error(sendErr),
		)
		return fmt.Errorf("mail delivery exhausted after %d attempts: %w", attempt, sendErr)
	}

	delay := computeMailRetryDelay(attempt)
	logger.Warn("mail delivery failed, scheduling retry",
		zap.String("reference", msg.Reference),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(sendErr),
	)

	if err := w.sleep(ctx, delay); err != nil {
		return fmt.Errorf("retry delay interrupted: %w", err)
	}

	retry := msg
	retry.Attempt = attempt
	if err := w.publisher.Publish(ctx, queue.MailQueueName, retry); err != nil {
		return fmt.Errorf("failed to republish mail for retry: %w", err)
	}
	w.metrics.IncRetryScheduled()

	return nil
}

// computeMailRetryDelay doubles the base delay per prior attempt, capped.
func computeMailRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := baseMailRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxMailRetryDelay {
			return maxMailRetryDelay
		}
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
