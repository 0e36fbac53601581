package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, onChange func(State)) *Breaker {
	b := New(3, 10*time.Millisecond, 40*time.Millisecond, 2.0, onChange)
	b.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return b
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := newTestBreaker(t, nil)
	b.RecordSiteWideFailure()
	b.RecordSiteWideFailure()
	assert.Equal(t, Closed, b.State())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	var states []State
	b := newTestBreaker(t, func(s State) { states = append(states, s) })
	b.RecordSiteWideFailure()
	b.RecordSiteWideFailure()
	b.RecordSiteWideFailure()
	assert.Equal(t, Open, b.State())
	require.Len(t, states, 1)
	assert.Equal(t, Open, states[0])
}

func TestBreakerSuccessResetsClosedCounter(t *testing.T) {
	b := newTestBreaker(t, nil)
	b.RecordSiteWideFailure()
	b.RecordSiteWideFailure()
	b.RecordSuccess()
	b.RecordSiteWideFailure()
	b.RecordSiteWideFailure()
	assert.Equal(t, Closed, b.State(), "counter should have reset, not reached threshold yet")
}

func TestBreakerWaitIfOpenTransitionsToHalfOpen(t *testing.T) {
	b := newTestBreaker(t, nil)
	for i := 0; i < 3; i++ {
		b.RecordSiteWideFailure()
	}
	require.Equal(t, Open, b.State())

	require.NoError(t, b.WaitIfOpen(context.Background()))
	assert.Equal(t, HalfOpen, b.State())
	assert.True(t, b.ShouldProbe())
}

func TestBreakerWaitIfOpenNoopWhenClosed(t *testing.T) {
	b := newTestBreaker(t, nil)
	require.NoError(t, b.WaitIfOpen(context.Background()))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenSuccessClosesAndResetsBackoff(t *testing.T) {
	b := newTestBreaker(t, nil)
	for i := 0; i < 3; i++ {
		b.RecordSiteWideFailure()
	}
	require.NoError(t, b.WaitIfOpen(context.Background()))
	require.True(t, b.ShouldProbe())

	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 10*time.Millisecond, b.CurrentBackoff())
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := newTestBreaker(t, nil)
	for i := 0; i < 3; i++ {
		b.RecordSiteWideFailure()
	}
	require.NoError(t, b.WaitIfOpen(context.Background()))

	b.RecordProbeFailure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.ShouldProbe())
}

func TestBreakerBackoffEscalatesAcrossOpens(t *testing.T) {
	b := newTestBreaker(t, nil)
	for i := 0; i < 3; i++ {
		b.RecordSiteWideFailure()
	}
	require.Equal(t, 10*time.Millisecond, b.CurrentBackoff())

	require.NoError(t, b.WaitIfOpen(context.Background()))
	firstReopenBackoff := b.CurrentBackoff()
	assert.Equal(t, 20*time.Millisecond, firstReopenBackoff)

	b.RecordProbeFailure()
	b.RecordSiteWideFailure()
	require.Equal(t, Open, b.State())
	require.NoError(t, b.WaitIfOpen(context.Background()))
	secondReopenBackoff := b.CurrentBackoff()
	assert.Equal(t, 40*time.Millisecond, secondReopenBackoff)

	b.RecordProbeFailure()
	b.RecordSiteWideFailure()
	require.NoError(t, b.WaitIfOpen(context.Background()))
	assert.Equal(t, 40*time.Millisecond, b.CurrentBackoff(), "must not exceed max backoff")
}

func TestBreakerWaitIfOpenRespectsCancellation(t *testing.T) {
	b := New(1, time.Hour, time.Hour, 2.0, nil)
	b.RecordSiteWideFailure()
	require.Equal(t, Open, b.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.WaitIfOpen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
