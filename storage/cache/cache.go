// Package cache holds the short lived state of the app (login lockouts, unlocked admin sessions, throttles)
// in Redis, or in memory for tests & single instance deployments.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrMiss = errors.New("cache: key not found")

// Store is a key/value store with expiring keys.
type Store interface {
	// Get returns ErrMiss for unknown or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores val under key; a zero ttl never expires.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// SetNX stores val only if key does not exist and reports whether it did.
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	// Expire resets the ttl of key and reports whether key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns ErrMiss for unknown keys and 0 for keys that never expire.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
