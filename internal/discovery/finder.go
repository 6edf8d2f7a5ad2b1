// Package discovery orchestrates a research run: trending topics feed
// marketplace searches, marketplace hits are validated against community
// sentiment, and the survivors are scored and ranked.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"nichescout/internal/metrics"
	"nichescout/internal/pool"
	"nichescout/internal/research"
	"nichescout/internal/scoring"
	"nichescout/internal/sentiment"
)

// Config controls run shape.
type Config struct {
	Categories       []string
	TopicsLimit      int
	MaxProducts      int
	ProductsPerTopic int
	PostsPerProduct  int
	MinPostsRetry    int
}

func (c Config) withDefaults() Config {
	if c.TopicsLimit <= 0 {
		c.TopicsLimit = 15
	}
	if c.MaxProducts <= 0 {
		c.MaxProducts = 30
	}
	if c.ProductsPerTopic <= 0 {
		c.ProductsPerTopic = 3
	}
	if c.PostsPerProduct <= 0 {
		c.PostsPerProduct = 20
	}
	if c.MinPostsRetry <= 0 {
		c.MinPostsRetry = 5
	}
	return c
}

// Deps carries the collaborators a Finder needs. Store may be nil when
// persistence is disabled.
type Deps struct {
	Trends     research.TrendSource
	Market     research.MarketplaceSource
	Discussion research.DiscussionSource
	Classifier research.SentimentClassifier
	Scorer     *scoring.Scorer
	Store      research.ProductStore
	Pool       *pool.Pool
	Clock      research.Clock
	IDs        research.IDGenerator
	Logger     *zap.Logger
}

// Finder runs the discovery pipeline end to end.
type Finder struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New builds a Finder.
func New(cfg Config, deps Deps) *Finder {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Finder{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		logger: deps.Logger.Named("discovery"),
	}
}

// Outcome is everything one run produced.
type Outcome struct {
	Run      research.RunSummary
	Products []research.ScoredProduct
	Mentions []research.Mention
}

// candidate is a marketplace hit paired with the trend signal that
// surfaced it.
type candidate struct {
	listing research.ProductListing
	signal  research.TrendSignal
}

// enriched is a candidate after sentiment validation.
type enriched struct {
	candidate research.CandidateProduct
	mentions  []research.Mention
}

// Run executes one discovery pass. Individual topic or product failures
// are recorded and skipped; the run only errors out when it cannot
// produce any products at all.
func (f *Finder) Run(ctx context.Context, progress pool.ProgressFunc) (Outcome, error) {
	started := f.deps.Clock.Now()
	runID, err := f.deps.IDs.NewID()
	if err != nil {
		return Outcome{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := f.logger.With(zap.String("run_id", runID))
	logger.Info("discovery run starting",
		zap.Strings("categories", f.cfg.Categories),
		zap.Int("max_products", f.cfg.MaxProducts))

	outcome := Outcome{Run: research.RunSummary{
		ID:        runID,
		Status:    research.RunStatusRunning,
		StartedAt: started,
	}}

	signals, err := f.deps.Trends.Trending(ctx, f.cfg.Categories, f.cfg.TopicsLimit)
	if err != nil {
		return f.finish(ctx, outcome, 0, fmt.Errorf("fetch trending topics: %w", err))
	}
	if len(signals) == 0 {
		return f.finish(ctx, outcome, 0, fmt.Errorf("no trending topics found"))
	}
	outcome.Run.TopicsScanned = len(signals)
	logger.Info("trending topics fetched", zap.Int("topics", len(signals)))

	candidates, failed := f.findCandidates(ctx, signals)
	if len(candidates) == 0 {
		return f.finish(ctx, outcome, failed, fmt.Errorf("no products found for %d topics", len(signals)))
	}
	logger.Info("marketplace candidates collected",
		zap.Int("candidates", len(candidates)),
		zap.Int("failed_topics", failed))

	enrichedItems, sentimentFailed := f.enrichCandidates(ctx, candidates, progress)
	failed += sentimentFailed

	var scoredInput []research.CandidateProduct
	for _, item := range enrichedItems {
		scoredInput = append(scoredInput, item.candidate)
		outcome.Mentions = append(outcome.Mentions, item.mentions...)
	}

	ranked := f.deps.Scorer.Rank(scoredInput)
	scoredAt := f.deps.Clock.Now()
	for i := range ranked {
		ranked[i].ScoredAt = scoredAt
	}
	outcome.Products = ranked
	outcome.Run.ProductsScored = len(ranked)
	metrics.IncProductsScored(len(ranked))

	return f.finish(ctx, outcome, failed, nil)
}

// findCandidates searches the marketplace for every trending topic in
// parallel and dedupes the hits by name.
func (f *Finder) findCandidates(ctx context.Context, signals []research.TrendSignal) ([]candidate, int) {
	tasks := make([]pool.Task, len(signals))
	for i, signal := range signals {
		signal := signal
		tasks[i] = func(ctx context.Context) (any, error) {
			listings, err := f.deps.Market.Search(ctx, signal.Topic, f.cfg.ProductsPerTopic)
			if err != nil {
				return nil, fmt.Errorf("search products for %q: %w", signal.Topic, err)
			}
			return listings, nil
		}
	}

	results := f.deps.Pool.Run(ctx, tasks, nil)

	var (
		candidates []candidate
		failed     int
		seen       = make(map[string]struct{})
	)
	for i, result := range results {
		if result.Err != nil {
			failed++
			f.logger.Warn("topic search failed",
				zap.String("topic", signals[i].Topic),
				zap.Error(result.Err))
			continue
		}
		listings, _ := result.Value.([]research.ProductListing)
		for _, listing := range listings {
			key := strings.ToLower(strings.TrimSpace(listing.Name))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, candidate{listing: listing, signal: signals[i]})
		}
	}
	if len(candidates) > f.cfg.MaxProducts {
		candidates = candidates[:f.cfg.MaxProducts]
	}
	return candidates, failed
}

// enrichCandidates validates each candidate against community discussion
// and assembles the scorable product. A failed discussion lookup keeps
// the product with empty sentiment rather than dropping it.
func (f *Finder) enrichCandidates(ctx context.Context, candidates []candidate, progress pool.ProgressFunc) ([]enriched, int) {
	tasks := make([]pool.Task, len(candidates))
	for i, cand := range candidates {
		cand := cand
		tasks[i] = func(ctx context.Context) (any, error) {
			return f.enrichOne(ctx, cand)
		}
	}

	results := f.deps.Pool.Run(ctx, tasks, progress)

	var (
		items  []enriched
		failed int
	)
	for i, result := range results {
		if result.Err != nil {
			failed++
			f.logger.Warn("sentiment lookup failed",
				zap.String("product", candidates[i].listing.Name),
				zap.Error(result.Err))
			items = append(items, enriched{
				candidate: f.buildCandidate(candidates[i], sentiment.Empty(), 0),
			})
			continue
		}
		item, _ := result.Value.(enriched)
		items = append(items, item)
	}
	return items, failed
}

func (f *Finder) enrichOne(ctx context.Context, cand candidate) (enriched, error) {
	name := cand.listing.Name
	query := strings.Join(ExtractKeywords(name), " ")
	if query == "" {
		query = name
	}

	observations, err := f.deps.Discussion.Search(ctx, query, f.cfg.PostsPerProduct)
	if err != nil {
		return enriched{}, err
	}
	// Thin results for the keyword query often mean the keywords were
	// too generic. Retry once with the full title.
	if len(observations) < f.cfg.MinPostsRetry && query != name {
		retried, retryErr := f.deps.Discussion.Search(ctx, name, f.cfg.PostsPerProduct)
		if retryErr == nil && len(retried) > len(observations) {
			observations = retried
		}
	}

	results := make([]research.SentimentResult, 0, len(observations))
	mentions := make([]research.Mention, 0, len(observations))
	for _, obs := range observations {
		label, polarity := f.deps.Classifier.Classify(obs.Text())
		result := research.SentimentResult{
			Label:    label,
			Polarity: polarity,
			Weight:   obs.Upvotes,
		}
		results = append(results, result)
		mentions = append(mentions, research.Mention{
			Product:     name,
			Observation: obs,
			Sentiment:   result,
		})
	}
	aggregate := sentiment.Aggregate(results)

	return enriched{
		candidate: f.buildCandidate(cand, aggregate, len(observations)),
		mentions:  mentions,
	}, nil
}

func (f *Finder) buildCandidate(cand candidate, agg research.AggregateSentiment, volume int) research.CandidateProduct {
	return research.CandidateProduct{
		Name:             cand.listing.Name,
		RelatedTopic:     cand.signal.Topic,
		Category:         cand.signal.Category,
		Price:            cand.listing.Price,
		Rating:           cand.listing.Rating,
		URL:              cand.listing.URL,
		CompetitionCount: cand.listing.ReviewCount,
		Sentiment:        agg,
		TrendScore:       cand.signal.Score,
		TrendDirection:   cand.signal.Direction,
		DiscussionVolume: volume,
		Niche:            ClassifyNiche(cand.listing.Name, cand.signal.Topic),
	}
}

// finish stamps the run summary, records metrics, and persists the
// outcome when a store is configured.
func (f *Finder) finish(ctx context.Context, outcome Outcome, failed int, runErr error) (Outcome, error) {
	finished := f.deps.Clock.Now()
	outcome.Run.FinishedAt = finished
	outcome.Run.Duration = finished.Sub(outcome.Run.StartedAt)
	outcome.Run.ItemsFailed = failed

	switch {
	case runErr != nil:
		outcome.Run.Status = research.RunStatusFailed
		outcome.Run.ErrorText = runErr.Error()
	case failed > 0:
		outcome.Run.Status = research.RunStatusPartial
	default:
		outcome.Run.Status = research.RunStatusSucceeded
	}

	metrics.ObserveRun(outcome.Run.Duration)
	metrics.IncItemsFailed(failed)

	if f.deps.Store != nil {
		if err := f.deps.Store.SaveRun(ctx, outcome.Run); err != nil {
			f.logger.Error("save run failed", zap.Error(err))
		}
		if len(outcome.Products) > 0 {
			if err := f.deps.Store.SaveProducts(ctx, outcome.Run.ID, outcome.Products); err != nil {
				f.logger.Error("save products failed", zap.Error(err))
			}
		}
		if len(outcome.Mentions) > 0 {
			if err := f.deps.Store.SaveMentions(ctx, outcome.Run.ID, outcome.Mentions); err != nil {
				f.logger.Error("save mentions failed", zap.Error(err))
			}
		}
	}

	f.logger.Info("discovery run finished",
		zap.String("run_id", outcome.Run.ID),
		zap.String("status", string(outcome.Run.Status)),
		zap.Int("products", outcome.Run.ProductsScored),
		zap.Int("failed", failed),
		zap.Duration("duration", outcome.Run.Duration))

	return outcome, runErr
}
