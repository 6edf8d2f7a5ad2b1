package throttle

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"nichescout/internal/research"
)

// State is the circuit breaker state for one domain.
type State string

// Circuit breaker states.
const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// BreakerConfig tunes the failure tracking for one domain.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMax      int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 10 * time.Minute
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 1
	}
	return c
}

// Breaker tracks consecutive failures for one external domain and
// denies requests while the domain looks blocked. One instance per
// domain; instances never share state. The OPEN -> HALF_OPEN
// transition is evaluated lazily on CanRequest, there is no timer.
type Breaker struct {
	mu sync.Mutex

	domain string
	cfg    BreakerConfig
	clock  research.Clock
	logger *zap.Logger

	state            State
	failureCount     int
	successCount     int
	lastFailureAt    time.Time
	openedAt         time.Time
	halfOpenAttempts int
}

// NewBreaker builds a CLOSED breaker for the given domain.
func NewBreaker(domain string, cfg BreakerConfig, clock research.Clock, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		domain: domain,
		cfg:    cfg.withDefaults(),
		clock:  clock,
		logger: logger,
		state:  StateClosed,
	}
}

// CanRequest reports whether a request may be issued now. Callers must
// check it before work and call exactly one of RecordSuccess or
// RecordFailure after each attempt.
func (b *Breaker) CanRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock.Now().Before(b.openedAt.Add(b.cfg.RecoveryTimeout)) {
			return false
		}
		b.state = StateHalfOpen
		b.halfOpenAttempts = 0
		b.logger.Info("circuit half-open, probing recovery", zap.String("domain", b.domain))
		fallthrough
	case StateHalfOpen:
		if b.halfOpenAttempts < b.cfg.HalfOpenMax {
			b.halfOpenAttempts++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess notes a successful request, closing the circuit from
// HALF_OPEN and resetting the failure streak.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	switch b.state {
	case StateHalfOpen:
		b.state = StateClosed
		b.failureCount = 0
		b.logger.Info("circuit closed, domain recovered", zap.String("domain", b.domain))
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure notes a failed request. An explicit blocking signal
// (research.BlockedError) opens the circuit immediately regardless of
// the failure threshold.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureAt = b.clock.Now()

	if research.IsBlocked(err) {
		b.logger.Warn("blocking signal detected, opening circuit",
			zap.String("domain", b.domain), zap.Error(err))
		b.open()
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.logger.Warn("probe failed, reopening circuit", zap.String("domain", b.domain))
		b.open()
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.logger.Warn("failure threshold reached, opening circuit",
				zap.String("domain", b.domain), zap.Int("failures", b.failureCount))
			b.open()
		}
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.clock.Now()
	b.halfOpenAttempts = 0
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
