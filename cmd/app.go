package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nichescout/internal/config"
	"nichescout/internal/discovery"
	"nichescout/internal/id/uuid"
	"nichescout/internal/logging"
	"nichescout/internal/metrics"
	"nichescout/internal/pool"
	"nichescout/internal/report"
	"nichescout/internal/research"
	"nichescout/internal/scoring"
	"nichescout/internal/sentiment"
	"nichescout/internal/sources/amazon"
	"nichescout/internal/sources/reddit"
	"nichescout/internal/sources/trends"
	"nichescout/internal/storage/postgres"
	"nichescout/internal/throttle"

	"nichescout/internal/clock/system"
)

// app owns the wired service graph shared by all subcommands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    research.Clock
	registry *throttle.Registry
	finder   *discovery.Finder
	store    research.ProductStore
	trends   *trends.Source
}

// newApp loads configuration and wires every collaborator. An empty DSN
// leaves persistence disabled rather than failing.
func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	clock := system.New()
	registry := throttle.NewRegistry(cfg.LimiterDefaults(), cfg.DomainOverrides(), clock, logger)

	marketplace, err := amazon.New(amazon.Config{
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("init marketplace source: %w", err)
	}
	discussion, err := reddit.New(reddit.Config{
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("init discussion source: %w", err)
	}
	trendSource := trends.New(trends.Config{
		Headless:  cfg.Discovery.HeadlessTrends,
		UserAgent: cfg.Discovery.UserAgent,
	}, registry, logger)

	var store research.ProductStore
	if cfg.DB.DSN != "" {
		pgStore, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pgStore.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = pgStore
	}

	workerPool := pool.New(cfg.PoolConfig(), logger)

	finder := discovery.New(discovery.Config{
		Categories:       cfg.Discovery.Categories,
		MaxProducts:      cfg.Discovery.MaxProducts,
		ProductsPerTopic: cfg.Discovery.ProductsPerTopic,
		PostsPerProduct:  cfg.Discovery.PostsPerProduct,
	}, discovery.Deps{
		Trends:     trendSource,
		Market:     marketplace,
		Discussion: discussion,
		Classifier: sentiment.NewClassifier(),
		Scorer:     scoring.New(cfg.ScoringWeights()),
		Store:      store,
		Pool:       workerPool,
		Clock:      clock,
		IDs:        uuid.NewUUIDGenerator(),
		Logger:     logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		registry: registry,
		finder:   finder,
		store:    store,
		trends:   trendSource,
	}, nil
}

// exporters builds the configured report writers.
func (a *app) exporters() []research.Exporter {
	var out []research.Exporter
	for _, format := range a.cfg.Report.Formats {
		switch format {
		case "csv":
			out = append(out, report.NewCSV(a.cfg.Report.OutputDir, a.clock))
		case "json":
			out = append(out, report.NewJSON(a.cfg.Report.OutputDir, a.clock))
		}
	}
	return out
}

// Close releases resources in reverse wiring order.
func (a *app) Close() {
	if a.trends != nil {
		a.trends.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
