// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nichescout/internal/research"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store persists discovery runs, scored products, and mentions.
type Store struct {
	pool    dbPool
	builder sq.StatementBuilderType
}

var _ research.ProductStore = (*Store)(nil)

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool), nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool), nil
}

func newStore(pool dbPool) *Store {
	return &Store{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	topics_scanned INT NOT NULL DEFAULT 0,
	products_scored INT NOT NULL DEFAULT 0,
	items_failed INT NOT NULL DEFAULT 0,
	error_text TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS products (
	name TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	related_topic TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	competition_count INT NOT NULL DEFAULT 0,
	sentiment JSONB NOT NULL DEFAULT '{}',
	trend_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	trend_direction TEXT NOT NULL DEFAULT 'unknown',
	discussion_volume INT NOT NULL DEFAULT 0,
	niche_type TEXT NOT NULL DEFAULT 'none',
	opportunity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	scored_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS products_score_idx ON products (opportunity_score DESC)`,
		`CREATE TABLE IF NOT EXISTS mentions (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	product TEXT NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	upvotes INT NOT NULL DEFAULT 0,
	comments INT NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	posted_at TIMESTAMPTZ,
	label TEXT NOT NULL,
	polarity DOUBLE PRECISION NOT NULL DEFAULT 0,
	weight INT NOT NULL DEFAULT 1
)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun upserts one run summary row.
func (s *Store) SaveRun(ctx context.Context, run research.RunSummary) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("product store is not configured")
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query, args, err := s.builder.
		Insert("runs").
		Columns("id", "status", "started_at", "finished_at",
			"topics_scanned", "products_scored", "items_failed", "error_text").
		Values(run.ID, string(run.Status), run.StartedAt, run.FinishedAt,
			run.TopicsScanned, run.ProductsScored, run.ItemsFailed, run.ErrorText).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	finished_at = EXCLUDED.finished_at,
	topics_scanned = EXCLUDED.topics_scanned,
	products_scored = EXCLUDED.products_scored,
	items_failed = EXCLUDED.items_failed,
	error_text = EXCLUDED.error_text`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run upsert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// SaveProducts upserts scored products keyed by name, so repeated runs
// refresh scores instead of accumulating duplicates.
func (s *Store) SaveProducts(ctx context.Context, runID string, products []research.ScoredProduct) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("product store is not configured")
	}
	for _, p := range products {
		if p.Name == "" {
			return fmt.Errorf("product name is required")
		}
		sentimentJSON, err := json.Marshal(p.Sentiment)
		if err != nil {
			return fmt.Errorf("marshal sentiment: %w", err)
		}
		query, args, err := s.builder.
			Insert("products").
			Columns("name", "run_id", "related_topic", "category", "price",
				"rating", "url", "competition_count", "sentiment",
				"trend_score", "trend_direction", "discussion_volume",
				"niche_type", "opportunity_score", "scored_at").
			Values(p.Name, runID, p.RelatedTopic, p.Category, p.Price,
				p.Rating, p.URL, p.CompetitionCount, sentimentJSON,
				p.TrendScore, string(p.TrendDirection), p.DiscussionVolume,
				string(p.Niche), p.OpportunityScore, p.ScoredAt).
			Suffix(`ON CONFLICT (name) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	related_topic = EXCLUDED.related_topic,
	category = EXCLUDED.category,
	price = EXCLUDED.price,
	rating = EXCLUDED.rating,
	url = EXCLUDED.url,
	competition_count = EXCLUDED.competition_count,
	sentiment = EXCLUDED.sentiment,
	trend_score = EXCLUDED.trend_score,
	trend_direction = EXCLUDED.trend_direction,
	discussion_volume = EXCLUDED.discussion_volume,
	niche_type = EXCLUDED.niche_type,
	opportunity_score = EXCLUDED.opportunity_score,
	scored_at = EXCLUDED.scored_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build product upsert: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
	}
	return nil
}

// SaveMentions appends classified observations for a run.
func (s *Store) SaveMentions(ctx context.Context, runID string, mentions []research.Mention) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("product store is not configured")
	}
	for _, m := range mentions {
		var postedAt any
		if !m.Observation.CreatedAt.IsZero() {
			postedAt = m.Observation.CreatedAt
		}
		query, args, err := s.builder.
			Insert("mentions").
			Columns("run_id", "product", "source", "title", "body",
				"upvotes", "comments", "url", "posted_at",
				"label", "polarity", "weight").
			Values(runID, m.Product, m.Observation.Source,
				m.Observation.Title, m.Observation.Body,
				m.Observation.Upvotes, m.Observation.Comments,
				m.Observation.URL, postedAt,
				string(m.Sentiment.Label), m.Sentiment.Polarity, m.Sentiment.Weight).
			ToSql()
		if err != nil {
			return fmt.Errorf("build mention insert: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert mention: %w", err)
		}
	}
	return nil
}

// TopProducts returns the highest-scoring products, best first.
func (s *Store) TopProducts(ctx context.Context, limit int) ([]research.ScoredProduct, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("product store is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	query, args, err := s.builder.
		Select("name", "related_topic", "category", "price", "rating",
			"url", "competition_count", "sentiment", "trend_score",
			"trend_direction", "discussion_volume", "niche_type",
			"opportunity_score", "scored_at").
		From("products").
		OrderBy("opportunity_score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top products query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	var products []research.ScoredProduct
	for rows.Next() {
		var (
			p             research.ScoredProduct
			sentimentJSON []byte
			direction     string
			niche         string
		)
		if err := rows.Scan(&p.Name, &p.RelatedTopic, &p.Category, &p.Price,
			&p.Rating, &p.URL, &p.CompetitionCount, &sentimentJSON,
			&p.TrendScore, &direction, &p.DiscussionVolume, &niche,
			&p.OpportunityScore, &p.ScoredAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if len(sentimentJSON) > 0 {
			if err := json.Unmarshal(sentimentJSON, &p.Sentiment); err != nil {
				return nil, fmt.Errorf("decode sentiment: %w", err)
			}
		}
		p.TrendDirection = research.TrendDirection(direction)
		p.Niche = research.NicheType(niche)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
