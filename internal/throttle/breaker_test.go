package throttle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nichescout/internal/research"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(clock *fakeClock) *Breaker {
	return NewBreaker("example.org", BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  10 * time.Minute,
		HalfOpenMax:      1,
	}, clock, nil)
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	t.Parallel()

	b := newTestBreaker(newFakeClock())
	errFetch := errors.New("connection reset")

	b.RecordFailure(errFetch)
	b.RecordFailure(errFetch)
	require.Equal(t, StateClosed, b.State())
	require.True(t, b.CanRequest())

	b.RecordFailure(errFetch)
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.CanRequest())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	t.Parallel()

	b := newTestBreaker(newFakeClock())
	errFetch := errors.New("timeout")

	b.RecordFailure(errFetch)
	b.RecordFailure(errFetch)
	b.RecordSuccess()
	b.RecordFailure(errFetch)
	b.RecordFailure(errFetch)

	require.Equal(t, StateClosed, b.State(), "streak must restart after a success")
}

func TestBreakerOpensImmediatelyOnBlockingSignal(t *testing.T) {
	t.Parallel()

	b := newTestBreaker(newFakeClock())
	b.RecordFailure(&research.BlockedError{Domain: "example.org", StatusCode: 403})

	require.Equal(t, StateOpen, b.State())
	require.False(t, b.CanRequest())
}

func TestBreakerWrappedBlockingSignalStillOpens(t *testing.T) {
	t.Parallel()

	b := newTestBreaker(newFakeClock())
	wrapped := errors.Join(errors.New("visit failed"),
		&research.BlockedError{Domain: "example.org", StatusCode: 429})
	b.RecordFailure(wrapped)

	require.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)
	b.RecordFailure(&research.BlockedError{Domain: "example.org", StatusCode: 403})
	require.False(t, b.CanRequest())

	clock.Advance(10*time.Minute + time.Second)

	require.True(t, b.CanRequest(), "first probe after the timeout is allowed")
	require.Equal(t, StateHalfOpen, b.State())
	require.False(t, b.CanRequest(), "only half_open_max probes may pass")
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)
	b.RecordFailure(&research.BlockedError{Domain: "example.org", StatusCode: 403})
	clock.Advance(11 * time.Minute)

	require.True(t, b.CanRequest())
	b.RecordSuccess()

	require.Equal(t, StateClosed, b.State())
	require.True(t, b.CanRequest())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newTestBreaker(clock)
	b.RecordFailure(&research.BlockedError{Domain: "example.org", StatusCode: 403})
	clock.Advance(11 * time.Minute)

	require.True(t, b.CanRequest())
	b.RecordFailure(errors.New("still broken"))

	require.Equal(t, StateOpen, b.State())
	require.False(t, b.CanRequest())

	// The full recovery timeout applies again from the reopen.
	clock.Advance(9 * time.Minute)
	require.False(t, b.CanRequest())
	clock.Advance(2 * time.Minute)
	require.True(t, b.CanRequest())
}

func TestBreakerDefaults(t *testing.T) {
	t.Parallel()

	cfg := BreakerConfig{}.withDefaults()
	require.Equal(t, 3, cfg.FailureThreshold)
	require.Equal(t, 10*time.Minute, cfg.RecoveryTimeout)
	require.Equal(t, 1, cfg.HalfOpenMax)
}
