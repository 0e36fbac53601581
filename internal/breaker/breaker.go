// Package breaker implements the per-worker circuit breaker that gates the
// fetch loop during site-wide outages, per spec.md §4.6.
package breaker

import (
	"context"
	"sync"
	"time"
)

// State is one of closed, open, half_open.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a per-fetch-worker state machine; it is not shared across
// workers. It is safe for concurrent use, though a single worker's loop is
// its only expected caller.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	multiplier       float64

	consecutiveFailures int
	state               State
	currentBackoff      time.Duration
	backoffTier         int

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error

	onStateChange func(State)
}

// New builds a Breaker with the given thresholds. onStateChange, if non-nil,
// is invoked after every state transition (used to feed observation hooks).
func New(failureThreshold int, initialBackoff, maxBackoff time.Duration, multiplier float64, onStateChange func(State)) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		initialBackoff:   initialBackoff,
		maxBackoff:       maxBackoff,
		multiplier:       multiplier,
		state:            Closed,
		currentBackoff:   initialBackoff,
		sleep:            sleepCtx,
		onStateChange:    onStateChange,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State reports the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordSuccess resets the failure counter. If half_open, transitions to
// closed and resets the backoff sequence to its initial tier.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	b.consecutiveFailures = 0
	wasHalfOpen := b.state == HalfOpen
	if wasHalfOpen {
		b.state = Closed
		b.currentBackoff = b.initialBackoff
		b.backoffTier = 0
	}
	b.mu.Unlock()
	if wasHalfOpen {
		b.notify(Closed)
	}
}

// RecordSiteWideFailure increments the failure counter. If closed and the
// threshold is reached, transitions to open.
func (b *Breaker) RecordSiteWideFailure() {
	b.mu.Lock()
	b.consecutiveFailures++
	opened := false
	if b.state == Closed && b.consecutiveFailures >= b.failureThreshold {
		b.state = Open
		opened = true
	}
	b.mu.Unlock()
	if opened {
		b.notify(Open)
	}
}

// RecordProbeFailure transitions a half_open breaker back to open. A
// subsequent RecordSiteWideFailure call records the failure that caused it.
func (b *Breaker) RecordProbeFailure() {
	b.mu.Lock()
	b.state = Open
	b.mu.Unlock()
	b.notify(Open)
}

// ShouldProbe reports whether the driver should issue one probe request
// instead of dequeuing normally.
func (b *Breaker) ShouldProbe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == HalfOpen
}

// WaitIfOpen blocks for current_backoff when open, then transitions to
// half_open and advances the backoff sequence for the next open period. It
// is a no-op in closed or half_open state. Returns ctx.Err() if ctx is
// cancelled while waiting.
func (b *Breaker) WaitIfOpen(ctx context.Context) error {
	b.mu.Lock()
	if b.state != Open {
		b.mu.Unlock()
		return nil
	}
	wait := b.currentBackoff
	b.mu.Unlock()

	if err := b.sleep(ctx, wait); err != nil {
		return err
	}

	b.mu.Lock()
	b.state = HalfOpen
	b.backoffTier++
	b.currentBackoff = nextBackoff(b.initialBackoff, b.maxBackoff, b.multiplier, b.backoffTier)
	b.mu.Unlock()
	b.notify(HalfOpen)
	return nil
}

// CurrentBackoff reports the backoff duration that would be waited on the
// next WaitIfOpen call while open.
func (b *Breaker) CurrentBackoff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentBackoff
}

// ConsecutiveFailures reports the current failure streak used to decide
// whether the breaker opens.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

func (b *Breaker) notify(s State) {
	if b.onStateChange != nil {
		b.onStateChange(s)
	}
}

// nextBackoff computes the escalating backoff for the given tier, doubling
// (times multiplier) per tier from initial and capping at max. Hand-rolled
// rather than pulled from a library, the same call as internal/fetcher makes
// for its own retry backoff.
func nextBackoff(initial, max time.Duration, multiplier float64, tier int) time.Duration {
	d := initial
	for i := 0; i < tier; i++ {
		next := time.Duration(float64(d) * multiplier)
		if next > max {
			next = max
		}
		d = next
	}
	if d > max {
		d = max
	}
	return d
}
