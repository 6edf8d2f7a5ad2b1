package throttle

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nichescout/internal/metrics"
	"nichescout/internal/research"
)

// LimiterConfig tunes request pacing and retries for one domain.
type LimiterConfig struct {
	Domain     string
	BaseDelay  time.Duration
	MinDelay   time.Duration
	Jitter     time.Duration
	MaxRetries int

	Breaker BreakerConfig
	Retry   RetryConfig
}

// RetryConfig tunes the backoff calculator for one domain.
type RetryConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Factor    float64
	Jitter    float64
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.Domain == "" {
		c.Domain = "default"
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 15 * time.Second
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 8 * time.Second
	}
	if c.MinDelay > c.BaseDelay {
		c.MinDelay = c.BaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = time.Minute
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 10 * time.Minute
	}
	if c.Retry.Factor <= 1 {
		c.Retry.Factor = 2
	}
	return c
}

// sleeper abstracts context-aware waiting so tests can avoid real sleeps.
type sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter is the sole owner of one domain's throttling state: minimum
// spacing between requests, retry backoff, and the circuit breaker.
// No other component may call the domain directly.
type Limiter struct {
	cfg     LimiterConfig
	backoff *Backoff
	breaker *Breaker
	floor   *rate.Limiter
	clock   research.Clock
	logger  *zap.Logger
	sleep   sleeper
	rng     *rand.Rand

	mu          sync.Mutex
	lastRequest time.Time
	requests    int
	successes   int
	failures    int
}

// NewLimiter builds a limiter for one domain. Created once per
// scraping session per domain; state is never persisted.
func NewLimiter(cfg LimiterConfig, clock research.Clock, logger *zap.Logger) *Limiter {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("domain", cfg.Domain))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Limiter{
		cfg:     cfg,
		backoff: NewBackoff(cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, cfg.Retry.Factor, cfg.Retry.Jitter, rng),
		breaker: NewBreaker(cfg.Domain, cfg.Breaker, clock, logger),
		floor:   rate.NewLimiter(rate.Every(cfg.MinDelay), 1),
		clock:   clock,
		logger:  logger,
		sleep:   timerSleeper{},
		rng:     rng,
	}
}

// Domain returns the host this limiter throttles.
func (l *Limiter) Domain() string {
	return l.cfg.Domain
}

// Breaker exposes the circuit breaker for callers that need to skip
// work instead of calling through (CanRequest/State).
func (l *Limiter) Breaker() *Breaker {
	return l.breaker
}

// Wait blocks until the jittered spacing since the previous request on
// this domain has elapsed, then advances the last-request timestamp.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	desired := l.cfg.BaseDelay
	if l.cfg.Jitter > 0 {
		desired += time.Duration(l.rng.Int63n(int64(2*l.cfg.Jitter))) - l.cfg.Jitter
	}
	if desired < l.cfg.MinDelay {
		desired = l.cfg.MinDelay
	}
	var wait time.Duration
	if !l.lastRequest.IsZero() {
		elapsed := l.clock.Now().Sub(l.lastRequest)
		if elapsed < desired {
			wait = desired - elapsed
		}
	}
	l.mu.Unlock()

	if wait > 0 {
		metrics.ObserveRateLimitWait(l.cfg.Domain, wait)
		if err := l.sleep.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	// Hard floor regardless of the jitter draw.
	if err := l.floor.Wait(ctx); err != nil {
		return err
	}
	l.markRequest()
	return nil
}

func (l *Limiter) markRequest() {
	l.mu.Lock()
	l.lastRequest = l.clock.Now()
	l.requests++
	l.mu.Unlock()
}

// Do runs op with spacing, retries, and circuit breaker bookkeeping.
// The breaker is re-checked before every attempt and denial surfaces
// as research.ErrCircuitOpen, never as an empty success. The last
// underlying error is wrapped in RetriesExhaustedError once all
// attempts fail.
func (l *Limiter) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if !l.breaker.CanRequest() {
			metrics.ObserveRequest(l.cfg.Domain, "circuit_open")
			return fmt.Errorf("%s: %w", l.cfg.Domain, research.ErrCircuitOpen)
		}

		if attempt > 0 {
			delay := l.backoff.Delay(attempt - 1)
			l.logger.Info("retrying after backoff",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", l.cfg.MaxRetries),
				zap.Duration("delay", delay))
			metrics.IncRetry(l.cfg.Domain)
			if err := l.sleep.Sleep(ctx, delay); err != nil {
				return err
			}
			l.markRequest()
		} else if err := l.Wait(ctx); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			l.recordSuccess()
			return nil
		}

		lastErr = err
		l.recordFailure(err)
		l.logger.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return &research.RetriesExhaustedError{
		Domain:   l.cfg.Domain,
		Attempts: l.cfg.MaxRetries + 1,
		Last:     lastErr,
	}
}

func (l *Limiter) recordSuccess() {
	l.breaker.RecordSuccess()
	l.mu.Lock()
	l.successes++
	l.mu.Unlock()
	metrics.ObserveRequest(l.cfg.Domain, "success")
	metrics.SetCircuitState(l.cfg.Domain, string(l.breaker.State()))
}

func (l *Limiter) recordFailure(err error) {
	l.breaker.RecordFailure(err)
	l.mu.Lock()
	l.failures++
	l.mu.Unlock()
	metrics.ObserveRequest(l.cfg.Domain, "failure")
	metrics.SetCircuitState(l.cfg.Domain, string(l.breaker.State()))
}

// Stats is a point-in-time snapshot of limiter counters.
type Stats struct {
	Domain    string `json:"domain"`
	Requests  int    `json:"requests"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	State     State  `json:"state"`
}

// Stats returns a snapshot of the limiter's counters and circuit state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Domain:    l.cfg.Domain,
		Requests:  l.requests,
		Successes: l.successes,
		Failures:  l.failures,
		State:     l.breaker.State(),
	}
}
