// Package ratelimiter implements the distributed per-domain minimum-interval
// gate described in spec.md §4.4.
package ratelimiter

import "context"

// Limiter gates requests to a domain to at most one per minimum interval,
// coordinating across every worker and process sharing its backend.
type Limiter interface {
	// Acquire blocks until a request to domain is allowed, polling at a
	// fixed interval without busy-waiting. It returns early with ctx.Err()
	// if ctx is canceled first.
	Acquire(ctx context.Context, domain string) error
}
