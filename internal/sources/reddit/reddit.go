// Package reddit implements research.DiscussionSource against the
// public search JSON endpoint.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"nichescout/internal/research"
	"nichescout/internal/throttle"
)

const defaultBaseURL = "https://www.reddit.com"

// Config controls the search client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Source searches community discussion for product mentions. Every
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
		logger:        logger.With(zap.String("source", "reddit")),
		baseCollector: c,
	}, nil
}

// listing mirrors the subset of the search payload we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Ups         int     `json:"ups"`
				NumComments int     `json:"num_comments"`
				Permalink   string  `json:"permalink"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search returns up to limit observations mentioning the query.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]research.ObservationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	searchURL := fmt.Sprintf("%s/search.json?q=%s&limit=%d&sort=relevance",
		s.cfg.BaseURL, url.QueryEscape(query), limit)

	var observations []research.ObservationRecord
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		got, err := s.fetch(ctx, searchURL, limit)
		if err != nil {
			return err
		}
		observations = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("posts", len(observations)))
	return observations, nil
}

func (s *Source) fetch(ctx context.Context, searchURL string, limit int) ([]research.ObservationRecord, error) {
	collector := s.baseCollector.Clone()

	var (
		observations []research.ObservationRecord
		fetchErr     error
	)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		var payload listing
		if err := json.Unmarshal(r.Body, &payload); err != nil {
			fetchErr = fmt.Errorf("decode search payload: %w", err)
			return
		}
		for _, child := range payload.Data.Children {
			if len(observations) >= limit {
				break
			}
			post := child.Data
			obs := research.ObservationRecord{
				Source:   "reddit",
				Title:    post.Title,
				Body:     post.Selftext,
				Upvotes:  post.Ups,
				Comments: post.NumComments,
			}
			if post.Permalink != "" {
				obs.URL = s.cfg.BaseURL + post.Permalink
			}
			if post.CreatedUTC > 0 {
				obs.CreatedAt = time.Unix(int64(post.CreatedUTC), 0).UTC()
			}
			observations = append(observations, obs)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r.StatusCode == 403 || r.StatusCode == 429 {
			fetchErr = &research.BlockedError{Domain: s.limiter.Domain(), StatusCode: r.StatusCode}
			return
		}
		fetchErr = fmt.Errorf("fetch %s: %w", s.limiter.Domain(), err)
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
		return nil, fmt.Errorf("visit search: %w", visitErr)
	}
	return observations, nil
}
