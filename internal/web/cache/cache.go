// Package cache stores encoded API responses so repeated schema requests skip the
// extractor. A Store is either process-local memory or Redis shared between instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a byte cache with per-entry TTL
type Store interface {
	// Get retrieves a value, or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl uses the store's default; a negative one never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the store's prefix
	Clear(ctx context.Context) error

	// Close releases the store's resources
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendNone   Backend = "none"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config holds the settings common to every backend
type Config struct {
	Backend Backend
	// TTL is the default time-to-live of an entry
	TTL time.Duration
	// Prefix is prepended to every key
	Prefix string
	Redis  RedisConfig
}

// DefaultConfig returns an in-memory cache configuration
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		TTL:     5 * time.Minute,
		Prefix:  "schemaviewer:",
		Redis:   DefaultRedisConfig(),
	}
}

// New opens the store selected by config.Backend. BackendNone yields a nil Store.
func New(ctx context.Context, config Config) (Store, error) {
	switch config.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(config), nil
	case BackendRedis:
		store, err := NewRedisStore(ctx, config)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", config.Backend)
	}
}
