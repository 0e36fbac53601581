// Package cache defines the key-value abstraction backing the rate limiter,
// robots.txt cache, and fetched webpage bodies.
package cache

import (
	"context"
	"time"
)

// Cache is a string-valued key-value store with optional per-entry TTL.
// Last-writer-wins; no compare-and-swap is required of implementations
// beyond the rate limiter, which does its own atomic check-and-set.
type Cache interface {
	// Get returns the value stored for key, or ok == false if absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value for key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
