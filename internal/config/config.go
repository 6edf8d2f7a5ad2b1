// Package config loads and validates tool configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig           `mapstructure:"logging"`
	Server    ServerConfig            `mapstructure:"server"`
	Discovery DiscoveryConfig         `mapstructure:"discovery"`
	Pool      PoolConfig              `mapstructure:"pool"`
	RateLimit RateLimitConfig         `mapstructure:"rate_limit"`
	Domains   map[string]DomainConfig `mapstructure:"domains"`
	Scoring   ScoringConfig           `mapstructure:"scoring"`
	DB        DBConfig                `mapstructure:"db"`
	Report    ReportConfig            `mapstructure:"report"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ServerConfig controls the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DiscoveryConfig governs the discovery pipeline.
type DiscoveryConfig struct {
	Categories       []string `mapstructure:"categories"`
	MaxProducts      int      `mapstructure:"max_products"`
	ProductsPerTopic int      `mapstructure:"products_per_topic"`
	PostsPerProduct  int      `mapstructure:"posts_per_product"`
	UserAgent        string   `mapstructure:"user_agent"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
	HeadlessTrends   bool     `mapstructure:"headless_trends"`
}

// PoolConfig bounds batch concurrency.
type PoolConfig struct {
	MaxWorkers        int     `mapstructure:"max_workers"`
	StartDelaySeconds float64 `mapstructure:"start_delay_seconds"`
	MinDelaySeconds   float64 `mapstructure:"min_delay_seconds"`
}

// RateLimitConfig carries the default pacing applied to any domain
// without an explicit override.
type RateLimitConfig struct {
	BaseDelaySeconds float64 `mapstructure:"base_delay_seconds"`
	MinDelaySeconds  float64 `mapstructure:"min_delay_seconds"`
	JitterSeconds    float64 `mapstructure:"jitter_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`

	Backoff BackoffConfig `mapstructure:"backoff"`
	Breaker BreakerConfig `mapstructure:"circuit_breaker"`
}

// BackoffConfig tunes retry delays.
type BackoffConfig struct {
	BaseDelaySeconds float64 `mapstructure:"base_delay_seconds"`
	MaxDelaySeconds  float64 `mapstructure:"max_delay_seconds"`
	Factor           float64 `mapstructure:"factor"`
	JitterFraction   float64 `mapstructure:"jitter_fraction"`
}

// BreakerConfig tunes the per-domain circuit breaker.
type BreakerConfig struct {
	FailureThreshold       int `mapstructure:"failure_threshold"`
	RecoveryTimeoutSeconds int `mapstructure:"recovery_timeout_seconds"`
	HalfOpenMax            int `mapstructure:"half_open_max"`
}

// DomainConfig overrides pacing for one host.
type DomainConfig struct {
	BaseDelaySeconds float64 `mapstructure:"base_delay_seconds"`
	MinDelaySeconds  float64 `mapstructure:"min_delay_seconds"`
	JitterSeconds    float64 `mapstructure:"jitter_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
}

// ScoringConfig recalibrates the opportunity score components.
type ScoringConfig struct {
	BaseOffset      float64 `mapstructure:"base_offset"`
	SentimentWeight float64 `mapstructure:"sentiment_weight"`
	TrendWeight     float64 `mapstructure:"trend_weight"`
	TrendFlatWeight float64 `mapstructure:"trend_flat_weight"`
	VolumeCap       float64 `mapstructure:"volume_cap"`
	VolumeScale     float64 `mapstructure:"volume_scale"`
	RatioBonus      float64 `mapstructure:"ratio_bonus"`
	RatioThreshold  float64 `mapstructure:"ratio_threshold"`
	NegativePenalty float64 `mapstructure:"negative_penalty"`
}

// DBConfig controls access to the relational database. An empty DSN
// disables persistence.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ReportConfig sets export destinations.
type ReportConfig struct {
	OutputDir   string   `mapstructure:"output_dir"`
	Formats     []string `mapstructure:"formats"`
	TopProducts int      `mapstructure:"top_products"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NICHESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Hostname keys contain dots, which Unmarshal splits into nested
	// maps; the domains section has to be decoded from the raw value.
	cfg.Domains = nil
	if raw := v.GetStringMap("domains"); len(raw) > 0 {
		cfg.Domains = make(map[string]DomainConfig, len(raw))
		for host, entry := range raw {
			var dc DomainConfig
			if err := mapstructure.Decode(entry, &dc); err != nil {
				return Config{}, fmt.Errorf("decode domains.%s: %w", host, err)
			}
			cfg.Domains[host] = dc
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)

	v.SetDefault("discovery.categories", []string{"technology", "hobbies", "pets", "shopping"})
	v.SetDefault("discovery.max_products", 30)
	v.SetDefault("discovery.products_per_topic", 3)
	v.SetDefault("discovery.posts_per_product", 20)
	v.SetDefault("discovery.user_agent", "nichescout-research/0.1")
	v.SetDefault("discovery.timeout_seconds", 20)
	v.SetDefault("discovery.headless_trends", false)

	v.SetDefault("pool.max_workers", 3)
	v.SetDefault("pool.start_delay_seconds", 10)
	v.SetDefault("pool.min_delay_seconds", 5)

	v.SetDefault("rate_limit.base_delay_seconds", 15)
	v.SetDefault("rate_limit.min_delay_seconds", 8)
	v.SetDefault("rate_limit.jitter_seconds", 2)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.backoff.base_delay_seconds", 60)
	v.SetDefault("rate_limit.backoff.max_delay_seconds", 600)
	v.SetDefault("rate_limit.backoff.factor", 2.0)
	v.SetDefault("rate_limit.backoff.jitter_fraction", 0.1)
	v.SetDefault("rate_limit.circuit_breaker.failure_threshold", 3)
	v.SetDefault("rate_limit.circuit_breaker.recovery_timeout_seconds", 600)
	v.SetDefault("rate_limit.circuit_breaker.half_open_max", 1)

	v.SetDefault("scoring.base_offset", 30)
	v.SetDefault("scoring.sentiment_weight", 25)
	v.SetDefault("scoring.trend_weight", 25)
	v.SetDefault("scoring.trend_flat_weight", 15)
	v.SetDefault("scoring.volume_cap", 5)
	v.SetDefault("scoring.volume_scale", 2.5)
	v.SetDefault("scoring.ratio_bonus", 5)
	v.SetDefault("scoring.ratio_threshold", 0.7)
	v.SetDefault("scoring.negative_penalty", 10)

	v.SetDefault("db.max_open_conns", 4)

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.formats", []string{"csv", "json"})
	v.SetDefault("report.top_products", 20)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	if c.Pool.MaxWorkers <= 0 {
		return fmt.Errorf("pool.max_workers must be > 0")
	}
	if c.Discovery.MaxProducts <= 0 {
		return fmt.Errorf("discovery.max_products must be > 0")
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rate_limit.max_retries must be >= 0")
	}
	if c.RateLimit.Backoff.Factor < 1 {
		return fmt.Errorf("rate_limit.backoff.factor must be >= 1")
	}
	if c.Scoring.RatioThreshold < 0 || c.Scoring.RatioThreshold > 1 {
		return fmt.Errorf("scoring.ratio_threshold must be in [0, 1]")
	}
	for _, format := range c.Report.Formats {
		if format != "csv" && format != "json" {
			return fmt.Errorf("report.formats: unsupported format %q", format)
		}
	}
	return nil
}

// RequestTimeout converts the discovery timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Discovery.TimeoutSeconds) * time.Second
}
