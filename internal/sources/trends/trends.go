// Package trends implements research.TrendSource. It renders the
// trending-searches page with headless Chrome when enabled and falls
// back to a curated keyword list when rendering fails or is off.
package trends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"nichescout/internal/research"
	"nichescout/internal/throttle"
)

const (
	trendsDomain = "trends.google.com"
	trendingURL  = "https://trends.google.com/trending?geo=US&hours=168"
)

// Config controls the trend client.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Source reports trending topics. Rendered fetches go through the
// trends domain limiter; the fallback list is local and free.
type Source struct {
	cfg         Config
	limiter     *throttle.Limiter
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New builds a Source. The chromedp allocator is only created when
// headless rendering is enabled.
func New(cfg Config, registry *throttle.Registry, logger *zap.Logger) *Source {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{
		cfg:     cfg,
		limiter: registry.ForDomain(trendsDomain),
		logger:  logger.With(zap.String("source", "trends")),
	}
	if cfg.Headless {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
		)
		if cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
		}
		s.allocator, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return s
}

// Close releases the browser allocator, if any.
func (s *Source) Close() {
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// Trending returns up to limit trending topics for the categories.
// Scrape failures degrade to the curated fallback rather than erroring
// out: a run must always have seed topics.
func (s *Source) Trending(ctx context.Context, categories []string, limit int) ([]research.TrendSignal, error) {
	if limit <= 0 {
		limit = 15
	}

	if s.cfg.Headless && s.allocator != nil {
		signals, err := s.scrape(ctx, limit)
		if err == nil && len(signals) > 0 {
			return signals, nil
		}
		if err != nil {
			s.logger.Warn("trend scrape failed, using fallback", zap.Error(err))
		}
	}

	return Fallback(categories, limit), nil
}

func (s *Source) scrape(ctx context.Context, limit int) ([]research.TrendSignal, error) {
	var html string
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		taskCtx, cancel := chromedp.NewContext(s.allocator)
		defer cancel()
		taskCtx, timeoutCancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
		defer timeoutCancel()

		if err := chromedp.Run(taskCtx,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{
				"Accept-Language": "en-US,en;q=0.9",
			}),
			chromedp.Navigate(trendingURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("chromedp run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseTrending(html, limit)
}

// parseTrending extracts topic rows from the rendered trending page.
func parseTrending(html string, limit int) ([]research.TrendSignal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	seen := make(map[string]struct{})
	var signals []research.TrendSignal

	doc.Find("tr[role=row] td:nth-child(2)").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		topic := strings.TrimSpace(sel.Find("div").First().Text())
		if topic == "" {
			topic = strings.TrimSpace(sel.Text())
		}
		if topic == "" {
			return true
		}
		key := strings.ToLower(topic)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		signals = append(signals, research.TrendSignal{
			Topic:     topic,
			Score:     80,
			Direction: research.TrendRising,
		})
		return len(signals) < limit
	})

	return signals, nil
}
