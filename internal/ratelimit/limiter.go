package ratelimit

import "context"

// RateLimiter controls send throughput per named resource (e.g. "smtp").
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
