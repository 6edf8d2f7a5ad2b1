package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nichescout/internal/research"
)

// recordingSleeper skips real sleeps and records what was requested.
type recordingSleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
	sleepE error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return s.sleepE
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

func newTestLimiter(clock *fakeClock, sleep sleeper) *Limiter {
	l := NewLimiter(LimiterConfig{
		Domain:     "example.org",
		BaseDelay:  15 * time.Second,
		MinDelay:   time.Millisecond,
		Jitter:     0,
		MaxRetries: 2,
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  10 * time.Minute,
			HalfOpenMax:      1,
		},
		Retry: RetryConfig{
			BaseDelay: time.Second,
			MaxDelay:  8 * time.Second,
			Factor:    2,
			Jitter:    0,
		},
	}, clock, nil)
	l.sleep = sleep
	return l
}

func TestLimiterDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)

	calls := 0
	err := l.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, sleep.recorded(), "first request on a fresh domain needs no spacing")
	require.Equal(t, StateClosed, l.Breaker().State())
}

func TestLimiterDoRetriesWithBackoffThenSucceeds(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)

	calls := 0
	err := l.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleep.recorded())
}

func TestLimiterDoExhaustsRetries(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)
	cause := errors.New("connection reset")

	calls := 0
	err := l.Do(context.Background(), func(context.Context) error {
		calls++
		return cause
	})

	require.Equal(t, 3, calls, "initial attempt plus two retries")

	var exhausted *research.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, "example.org", exhausted.Domain)
	require.Equal(t, 3, exhausted.Attempts)
	require.ErrorIs(t, err, cause)
}

func TestLimiterDoStopsWhenBlocked(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)

	calls := 0
	err := l.Do(context.Background(), func(context.Context) error {
		calls++
		return &research.BlockedError{Domain: "example.org", StatusCode: 403}
	})

	require.Equal(t, 1, calls, "an open circuit must not be retried against")
	require.ErrorIs(t, err, research.ErrCircuitOpen)
	require.Equal(t, StateOpen, l.Breaker().State())
}

func TestLimiterDoDeniedWhileCircuitOpen(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)

	_ = l.Do(context.Background(), func(context.Context) error {
		return &research.BlockedError{Domain: "example.org", StatusCode: 429}
	})

	calls := 0
	err := l.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.Zero(t, calls)
	require.ErrorIs(t, err, research.ErrCircuitOpen)
}

func TestLimiterWaitSpacesRequests(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	clock := newFakeClock()
	l := newTestLimiter(clock, sleep)

	require.NoError(t, l.Wait(context.Background()))
	require.Empty(t, sleep.recorded())

	clock.Advance(5 * time.Second)
	require.NoError(t, l.Wait(context.Background()))

	slept := sleep.recorded()
	require.Len(t, slept, 1)
	require.Equal(t, 10*time.Second, slept[0], "remaining spacing after 5s of 15s has elapsed")
}

func TestLimiterWaitHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{sleepE: context.Canceled}
	clock := newFakeClock()
	l := newTestLimiter(clock, sleep)

	require.NoError(t, l.Wait(context.Background()))
	err := l.Wait(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestLimiterStats(t *testing.T) {
	t.Parallel()

	sleep := &recordingSleeper{}
	l := newTestLimiter(newFakeClock(), sleep)

	require.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))

	stats := l.Stats()
	require.Equal(t, "example.org", stats.Domain)
	require.Equal(t, 1, stats.Requests)
	require.Equal(t, 1, stats.Successes)
	require.Zero(t, stats.Failures)
	require.Equal(t, StateClosed, stats.State)
}

func TestRegistryReturnsSameLimiterPerDomain(t *testing.T) {
	t.Parallel()

	r := NewRegistry(LimiterConfig{MinDelay: time.Millisecond}, nil, newFakeClock(), nil)

	a := r.ForDomain("www.Example.org")
	b := r.ForDomain("www.example.org")
	c := r.ForDomain("other.example.net")

	require.Same(t, a, b, "domain lookup is case-insensitive")
	require.NotSame(t, a, c)
	require.Equal(t, "www.example.org", a.Domain())
}

func TestRegistryDomainIsolation(t *testing.T) {
	t.Parallel()

	r := NewRegistry(LimiterConfig{MinDelay: time.Millisecond}, nil, newFakeClock(), nil)

	a := r.ForDomain("a.example.org")
	b := r.ForDomain("b.example.org")

	a.Breaker().RecordFailure(&research.BlockedError{Domain: "a.example.org", StatusCode: 403})

	require.Equal(t, StateOpen, a.Breaker().State())
	require.Equal(t, StateClosed, b.Breaker().State(), "one domain's failures must not throttle another")
}

func TestRegistryPerHostOverride(t *testing.T) {
	t.Parallel()

	overrides := map[string]LimiterConfig{
		"slow.example.org": {BaseDelay: time.Minute, MinDelay: time.Millisecond},
	}
	r := NewRegistry(LimiterConfig{BaseDelay: 15 * time.Second, MinDelay: time.Millisecond}, overrides, newFakeClock(), nil)

	require.Equal(t, time.Minute, r.ForDomain("slow.example.org").cfg.BaseDelay)
	require.Equal(t, 15*time.Second, r.ForDomain("fast.example.org").cfg.BaseDelay)
}
