// Package amazon implements research.MarketplaceSource against the
// marketplace search page using Colly.
package amazon

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"nichescout/internal/research"
	"nichescout/internal/throttle"
)

const defaultBaseURL = "https://www.amazon.com"

var (
	numberPattern = regexp.MustCompile(`[\d,]+`)
	pricePattern  = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// Config controls the search client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Source searches the marketplace and yields product listings. Every
// fetch goes through the domain's limiter.
type Source struct {
	cfg           Config
	limiter       *throttle.Limiter
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Source throttled by the limiter owning its domain.
func New(cfg Config, registry *throttle.Registry, logger *zap.Logger) (*Source, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	return &Source{
		cfg:           cfg,
		limiter:       registry.ForDomain(u.Hostname()),
		logger:        logger.With(zap.String("source", "amazon")),
		baseCollector: c,
	}, nil
}

// Search returns up to limit listings for the query, ordered as the
// marketplace returned them.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]research.ProductListing, error) {
	if limit <= 0 {
		limit = 10
	}
	searchURL := fmt.Sprintf("%s/s?k=%s", s.cfg.BaseURL, url.QueryEscape(query))

	var listings []research.ProductListing
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		got, err := s.fetch(ctx, searchURL, limit)
		if err != nil {
			return err
		}
		listings = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("listings", len(listings)))
	return listings, nil
}

func (s *Source) fetch(ctx context.Context, searchURL string, limit int) ([]research.ProductListing, error) {
	collector := s.baseCollector.Clone()

	var (
		listings []research.ProductListing
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	collector.OnHTML(`div[data-component-type="s-search-result"]`, func(e *colly.HTMLElement) {
		if len(listings) >= limit {
			return
		}
		name := strings.TrimSpace(e.ChildText("h2 span"))
		if name == "" {
			return
		}
		listing := research.ProductListing{
			Name:        name,
			ReviewCount: parseCount(e.ChildText(`span[aria-label$="ratings"], span.s-underline-text`)),
			Price:       parsePrice(e.ChildText("span.a-price span.a-offscreen")),
			Rating:      parseRating(e.ChildAttr("span.a-icon-alt", "aria-label") + e.ChildText("span.a-icon-alt")),
		}
		if href := e.ChildAttr("h2 a", "href"); href != "" {
			listing.URL = e.Request.AbsoluteURL(href)
		}
		listings = append(listings, listing)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = classifyError(s.limiter.Domain(), r.StatusCode, err)
	})

	visitErr := collector.Visit(searchURL)
	collector.Wait()

	// On an HTTP error Visit returns the bare status text while OnError
	// saw the response; the classified error must win so blocks keep
	// their type.
	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, classifyError(s.limiter.Domain(), 0, visitErr)
	}
	return listings, nil
}

// classifyError converts blocking status codes into the typed signal
// the circuit breaker opens on immediately.
func classifyError(domain string, status int, err error) error {
	if status == 403 || status == 429 || status == 503 {
		return &research.BlockedError{Domain: domain, StatusCode: status}
	}
	return fmt.Errorf("fetch %s: %w", domain, err)
}

func parseCount(raw string) int {
	match := numberPattern.FindString(raw)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func parsePrice(raw string) float64 {
	match := pricePattern.FindString(raw)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseRating(raw string) float64 {
	// "4.5 out of 5 stars"
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return v
}
