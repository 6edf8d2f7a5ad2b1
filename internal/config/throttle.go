package config

import (
	"time"

	"nichescout/internal/pool"
	"nichescout/internal/throttle"
)

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// LimiterDefaults converts the rate_limit section into the pacing
// applied to any domain without an override.
func (c Config) LimiterDefaults() throttle.LimiterConfig {
	rl := c.RateLimit
	return throttle.LimiterConfig{
		BaseDelay:  seconds(rl.BaseDelaySeconds),
		MinDelay:   seconds(rl.MinDelaySeconds),
		Jitter:     seconds(rl.JitterSeconds),
		MaxRetries: rl.MaxRetries,
		Breaker: throttle.BreakerConfig{
			FailureThreshold: rl.Breaker.FailureThreshold,
			RecoveryTimeout:  time.Duration(rl.Breaker.RecoveryTimeoutSeconds) * time.Second,
			HalfOpenMax:      rl.Breaker.HalfOpenMax,
		},
		Retry: throttle.RetryConfig{
			BaseDelay: seconds(rl.Backoff.BaseDelaySeconds),
			MaxDelay:  seconds(rl.Backoff.MaxDelaySeconds),
			Factor:    rl.Backoff.Factor,
			Jitter:    rl.Backoff.JitterFraction,
		},
	}
}

// PoolConfig converts the pool section into worker pool settings.
func (c Config) PoolConfig() pool.Config {
	return pool.Config{
		MaxWorkers: c.Pool.MaxWorkers,
		StartDelay: seconds(c.Pool.StartDelaySeconds),
		MinDelay:   seconds(c.Pool.MinDelaySeconds),
	}
}

// DomainOverrides converts per-host sections into limiter configs.
// Fields left at zero fall back to the limiter defaults.
func (c Config) DomainOverrides() map[string]throttle.LimiterConfig {
	if len(c.Domains) == 0 {
		return nil
	}
	defaults := c.LimiterDefaults()
	out := make(map[string]throttle.LimiterConfig, len(c.Domains))
	for host, d := range c.Domains {
		cfg := defaults
		if d.BaseDelaySeconds > 0 {
			cfg.BaseDelay = seconds(d.BaseDelaySeconds)
		}
		if d.MinDelaySeconds > 0 {
			cfg.MinDelay = seconds(d.MinDelaySeconds)
		}
		if d.JitterSeconds > 0 {
			cfg.Jitter = seconds(d.JitterSeconds)
		}
		if d.MaxRetries > 0 {
			cfg.MaxRetries = d.MaxRetries
		}
		out[host] = cfg
	}
	return out
}
