// Package ratelimit throttles API clients. The token bucket keeps state in process; the
// Redis sliding window shares it between instances behind a load balancer.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
	Close() error
}

// Decision is the outcome of one Allow call
type Decision struct {
	Limit     int
	Remaining int
	// ResetAt is when the client has its full allowance again
	ResetAt time.Time
	Allowed bool
}

// RetryAfter returns how long a denied client should wait, rounded up to a second
func (d *Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return wait.Truncate(time.Second) + time.Second
}

// Config sizes a limiter: Requests per Window for every key
type Config struct {
	Requests int
	Window   time.Duration
	// Prefix is prepended to Redis keys
	Prefix string
}

// DefaultConfig allows 600 requests per minute
func DefaultConfig() Config {
	return Config{
		Requests: 600,
		Window:   time.Minute,
		Prefix:   "schemaviewer:ratelimit:",
	}
}

func (c Config) validate() error {
	if c.Requests <= 0 {
		return errors.New("requests must be greater than 0")
	}
	if c.Window <= 0 {
		return errors.New("window must be greater than 0")
	}
	return nil
}
