package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
)

const (
	counterPrefix   = "rate_limit:"
	bucketTokens    = "bucket:tokens:"
	bucketTimestamp = "bucket:timestamp:"
	bucketStateTTL  = time.Hour
)

// Limiter provides counter-window and token-bucket rate limiting over a
// Store. On any store error both algorithms fail open: the guarded
// operation proceeds and the failure is logged.
type Limiter struct {
	store Store
	// now is swappable for tests.
	now func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow increments the counter for key and reports whether the request fits
// inside maxRequests per windowSeconds. The expiry is set on the first hit
// of a window, so the counter rotates on its own.
func (l *Limiter) Allow(ctx context.Context, key string, maxRequests, windowSeconds int) bool {
	redisKey := counterPrefix + key

	count, err := l.store.Incr(ctx, redisKey)
	if err != nil {
		log.Printf("[RateLimit] store error for key %s, failing open: %v", key, err)
		return true
	}

	if count == 1 {
		if err := l.store.Expire(ctx, redisKey, time.Duration(windowSeconds)*time.Second); err != nil {
			log.Printf("[RateLimit] expire failed for key %s: %v", key, err)
		}
	}

	allowed := count <= int64(maxRequests)
	if !allowed {
		log.Printf("[RateLimit] exceeded: key=%s count=%d/%d window=%ds", key, count, maxRequests, windowSeconds)
	}
	return allowed
}

// Remaining reports the unconsumed quota for key, floored at zero.
func (l *Limiter) Remaining(ctx context.Context, key string, maxRequests int) int {
	raw, ok, err := l.store.Get(ctx, counterPrefix+key)
	if err != nil {
		log.Printf("[RateLimit] remaining lookup failed for key %s: %v", key, err)
		return maxRequests
	}
	if !ok {
		return maxRequests
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return maxRequests
	}
	if remaining := maxRequests - int(count); remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAfter reports how long until the counter for key naturally expires.
func (l *Limiter) ResetAfter(ctx context.Context, key string) time.Duration {
	ttl, err := l.store.TTL(ctx, counterPrefix+key)
	if err != nil {
		log.Printf("[RateLimit] ttl lookup failed for key %s: %v", key, err)
		return 0
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

// AllowBucket implements a lazily refilled token bucket: tokens accrue at
// refillRate per second up to capacity, one token is consumed per allowed
// request, and the updated state is persisted with a bounded TTL.
func (l *Limiter) AllowBucket(ctx context.Context, key string, capacity int, refillRate float64) bool {
	tokensKey := bucketTokens + key
	stampKey := bucketTimestamp + key
	now := l.now().Unix()

	tokens := float64(capacity)
	if raw, ok, err := l.store.Get(ctx, tokensKey); err != nil {
		log.Printf("[RateLimit] bucket read failed for key %s, failing open: %v", key, err)
		return true
	} else if ok {
		if parsed, perr := strconv.ParseFloat(raw, 64); perr == nil {
			tokens = parsed
		}
	}

	lastUpdate := now
	if raw, ok, err := l.store.Get(ctx, stampKey); err != nil {
		log.Printf("[RateLimit] bucket read failed for key %s, failing open: %v", key, err)
		return true
	} else if ok {
		if parsed, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			lastUpdate = parsed
		}
	}

	elapsed := now - lastUpdate
	if elapsed > 0 {
		tokens += float64(elapsed) * refillRate
	}
	if tokens > float64(capacity) {
		tokens = float64(capacity)
	}

	allowed := tokens >= 1.0
	if allowed {
		tokens -= 1.0
	}

	if err := l.store.Set(ctx, tokensKey, strconv.FormatFloat(tokens, 'f', -1, 64), bucketStateTTL); err != nil {
		log.Printf("[RateLimit] bucket write failed for key %s: %v", key, err)
	}
	if err := l.store.Set(ctx, stampKey, strconv.FormatInt(now, 10), bucketStateTTL); err != nil {
		log.Printf("[RateLimit] bucket write failed for key %s: %v", key, err)
	}

	if !allowed {
		log.Printf("[RateLimit] bucket exhausted: key=%s tokens=%.2f/%d", key, tokens, capacity)
	}
	return allowed
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) {
	if err := l.store.Del(ctx, counterPrefix+key); err != nil {
		log.Printf("[RateLimit] reset failed for key %s: %v", key, err)
		return
	}
	log.Printf("[RateLimit] reset key %s", key)
}

// OperationKey builds the canonical (operation, subject) limiter key.
func OperationKey(operation, subject string) string {
	return fmt.Sprintf("%s:%s", operation, subject)
}
