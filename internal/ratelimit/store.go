package ratelimit

import (
	"context"
	"time"
)

// Store is the atomic counter/value backend shared by both limiter
// algorithms. Implementations must make Incr a single atomic round trip;
// the limiter holds no in-process locks of its own.
type Store interface {
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the key's TTL. Only applied on the first hit of a window.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL reports the remaining lifetime of key; negative when absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Get returns the raw value at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a raw value with a TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes a key.
	Del(ctx context.Context, key string) error
}
