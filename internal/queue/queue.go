package queue

import "context"

// MailQueueName is the durable work queue for outbound email jobs.
const MailQueueName = "mail"

// MailDLQName holds mail jobs whose retries were exhausted.
const MailDLQName = "dlq.mail"

// Publisher publishes mail messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg MailMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message. A returned error
// dead-letters the delivery; retries are the handler's responsibility.
type MessageHandler func(ctx context.Context, msg MailMessage) error

// Consumer consumes mail messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
