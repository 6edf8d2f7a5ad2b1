// Package throttle guards every external call with per-domain request
// spacing, jittered exponential backoff, and a circuit breaker.
package throttle

import (
	"math"
	"math/rand"
	"time"
)

// minBackoff is the floor applied to every computed delay.
const minBackoff = time.Second

// Backoff computes jittered exponential retry delays. It is safe to
// share one instance per limiter; only the RNG is mutable.
type Backoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Factor    float64
	Jitter    float64

	rng *rand.Rand
}

// NewBackoff builds a calculator with the supplied policy. A nil rng
// falls back to a time-seeded source; tests inject a fixed seed.
func NewBackoff(base, max time.Duration, factor, jitter float64, rng *rand.Rand) *Backoff {
	if base <= 0 {
		base = time.Minute
	}
	if max <= 0 {
		max = 10 * time.Minute
	}
	if factor <= 1 {
		factor = 2
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Backoff{
		BaseDelay: base,
		MaxDelay:  max,
		Factor:    factor,
		Jitter:    jitter,
		rng:       rng,
	}
}

// Delay returns the wait before retry number attempt (0-indexed).
// Attempt 0 yields the base delay, attempt 1 base*factor, and later
// attempts grow geometrically up to the max. Jitter is multiplicative
// and the result never drops below one second.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	var delay float64
	switch attempt {
	case 0:
		delay = float64(b.BaseDelay)
	case 1:
		delay = float64(b.BaseDelay) * b.Factor
	default:
		delay = float64(b.BaseDelay) * math.Pow(b.Factor, float64(attempt))
		if delay > float64(b.MaxDelay) {
			delay = float64(b.MaxDelay)
		}
	}

	if b.Jitter > 0 {
		// Uniform in [-1, 1), scaled by the jitter fraction.
		delay += delay * b.Jitter * (b.rng.Float64()*2 - 1)
	}

	if delay < float64(minBackoff) {
		return minBackoff
	}
	return time.Duration(delay)
}
