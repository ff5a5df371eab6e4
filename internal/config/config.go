package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	PaystackBaseURL       string `env:"PAYSTACK_BASE_URL,default=https://api.paystack.co"`
	PaystackSecretKey     string `env:"PAYSTACK_SECRET_KEY,required=true"`
	PaystackWebhookSecret string `env:"PAYSTACK_WEBHOOK_SECRET,required=true"`
	CallbackBaseURL       string `env:"CALLBACK_BASE_URL,default=http://localhost:3000"`

	SMTPHost string `env:"SMTP_HOST,default=localhost"`
	SMTPPort int    `env:"SMTP_PORT,default=2525"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM,default=no-reply@chapelgive.org"`

	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=4"`
	MailRatePerSec    int    `env:"MAIL_RATE_PER_SEC,default=10"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
