package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.True(t, cfg.Logging.Development)
	require.False(t, cfg.Server.Enabled)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30, cfg.Discovery.MaxProducts)
	require.Equal(t, 3, cfg.Discovery.ProductsPerTopic)
	require.Equal(t, 3, cfg.Pool.MaxWorkers)
	require.Equal(t, 15.0, cfg.RateLimit.BaseDelaySeconds)
	require.Equal(t, 8.0, cfg.RateLimit.MinDelaySeconds)
	require.Equal(t, 3, cfg.RateLimit.MaxRetries)
	require.Equal(t, 3, cfg.RateLimit.Breaker.FailureThreshold)
	require.Equal(t, 600, cfg.RateLimit.Breaker.RecoveryTimeoutSeconds)
	require.Equal(t, 30.0, cfg.Scoring.BaseOffset)
	require.Equal(t, []string{"csv", "json"}, cfg.Report.Formats)
	require.Equal(t, "reports", cfg.Report.OutputDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  development: false
discovery:
  max_products: 10
  categories: ["pets"]
rate_limit:
  base_delay_seconds: 20
domains:
  www.amazon.com:
    base_delay_seconds: 30
    max_retries: 5
db:
  dsn: postgres://localhost/nichescout
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.False(t, cfg.Logging.Development)
	require.Equal(t, 10, cfg.Discovery.MaxProducts)
	require.Equal(t, []string{"pets"}, cfg.Discovery.Categories)
	require.Equal(t, 20.0, cfg.RateLimit.BaseDelaySeconds)
	require.Equal(t, "postgres://localhost/nichescout", cfg.DB.DSN)

	override, ok := cfg.Domains["www.amazon.com"]
	require.True(t, ok)
	require.Equal(t, 30.0, override.BaseDelaySeconds)
	require.Equal(t, 5, override.MaxRetries)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Pool.MaxWorkers = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Discovery.MaxProducts = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Enabled = true
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.Backoff.Factor = 0.5
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scoring.RatioThreshold = 1.5
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Report.Formats = []string{"xml"}
	require.Error(t, cfg.Validate())
}

func TestLimiterDefaultsConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	lc := cfg.LimiterDefaults()
	require.Equal(t, 15*time.Second, lc.BaseDelay)
	require.Equal(t, 8*time.Second, lc.MinDelay)
	require.Equal(t, 2*time.Second, lc.Jitter)
	require.Equal(t, 3, lc.MaxRetries)
	require.Equal(t, time.Minute, lc.Retry.BaseDelay)
	require.Equal(t, 10*time.Minute, lc.Retry.MaxDelay)
	require.Equal(t, 2.0, lc.Retry.Factor)
	require.Equal(t, 0.1, lc.Retry.Jitter)
	require.Equal(t, 3, lc.Breaker.FailureThreshold)
	require.Equal(t, 10*time.Minute, lc.Breaker.RecoveryTimeout)
	require.Equal(t, 1, lc.Breaker.HalfOpenMax)
}

func TestDomainOverridesFallBackToDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Domains = map[string]DomainConfig{
		"www.reddit.com": {BaseDelaySeconds: 25},
	}

	overrides := cfg.DomainOverrides()
	require.Len(t, overrides, 1)

	rc := overrides["www.reddit.com"]
	require.Equal(t, 25*time.Second, rc.BaseDelay)
	require.Equal(t, 8*time.Second, rc.MinDelay, "unset fields inherit the defaults")
	require.Equal(t, 3, rc.MaxRetries)
}

func TestDomainOverridesEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Nil(t, cfg.DomainOverrides())
}

func TestPoolConfigConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	pc := cfg.PoolConfig()
	require.Equal(t, 3, pc.MaxWorkers)
	require.Equal(t, 10*time.Second, pc.StartDelay)
	require.Equal(t, 5*time.Second, pc.MinDelay)
}

func TestScoringWeightsConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	w := cfg.ScoringWeights()
	require.Equal(t, 30.0, w.BaseOffset)
	require.Equal(t, 25.0, w.SentimentWeight)
	require.Equal(t, 25.0, w.TrendWeight)
	require.Equal(t, 15.0, w.TrendFlatWeight)
	require.Equal(t, 0.7, w.RatioThreshold)
}

func TestRequestTimeout(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 20*time.Second, cfg.RequestTimeout())
}
