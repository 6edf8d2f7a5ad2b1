package throttle

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"nichescout/internal/research"
)

// Registry hands out exactly one Limiter per external domain. A
// failure on one host must never throttle an unrelated host.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter

	defaults LimiterConfig
	perHost  map[string]LimiterConfig
	clock    research.Clock
	logger   *zap.Logger
}

// NewRegistry builds a registry with fallback pacing defaults and
// optional per-host overrides keyed by lowercase hostname.
func NewRegistry(defaults LimiterConfig, perHost map[string]LimiterConfig, clock research.Clock, logger *zap.Logger) *Registry {
	if perHost == nil {
		perHost = make(map[string]LimiterConfig)
	}
	return &Registry{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
		perHost:  perHost,
		clock:    clock,
		logger:   logger,
	}
}

// ForDomain returns the limiter owning the given domain, creating it
// on first use.
func (r *Registry) ForDomain(domain string) *Limiter {
	key := strings.ToLower(strings.TrimSpace(domain))
	if key == "" {
		key = "default"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	cfg, ok := r.perHost[key]
	if !ok {
		cfg = r.defaults
	}
	cfg.Domain = key
	l := NewLimiter(cfg, r.clock, r.logger)
	r.limiters[key] = l
	return l
}

// Stats reports a snapshot for every limiter created so far.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stats, 0, len(r.limiters))
	for _, l := range r.limiters {
		out = append(out, l.Stats())
	}
	return out
}
