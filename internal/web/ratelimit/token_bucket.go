package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucket refills each key's bucket continuously at Requests per Window
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewTokenBucket creates an in-memory limiter. Idle buckets are dropped once per window.
func NewTokenBucket(config Config) (*TokenBucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	tb := &TokenBucket{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go tb.sweep()
	return tb, nil
}

// Allow takes a token from key's bucket
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	capacity := float64(tb.config.Requests)
	window := tb.config.Window.Seconds()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, lastSeen: now}
		tb.buckets[key] = b
	} else if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed/window*capacity)
		b.lastSeen = now
	}

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	missing := capacity - b.tokens
	return &Decision{
		Limit:     tb.config.Requests,
		Remaining: int(b.tokens),
		ResetAt:   now.Add(time.Duration(missing * window / capacity * float64(time.Second))),
		Allowed:   allowed,
	}, nil
}

// Len returns the number of tracked keys
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

func (tb *TokenBucket) sweep() {
	ticker := time.NewTicker(tb.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tb.removeIdle()
		case <-tb.done:
			return
		}
	}
}

// removeIdle drops buckets unused for two windows; they are full again anyway
func (tb *TokenBucket) removeIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := tb.now().Add(-2 * tb.config.Window)
	for key, b := range tb.buckets {
		if b.lastSeen.Before(threshold) {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the sweeper
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() { close(tb.done) })
	return nil
}
