package research

import (
	"context"
	"time"
)

// MarketplaceSource searches a marketplace and returns product listings.
type MarketplaceSource interface {
	Search(ctx context.Context, query string, limit int) ([]ProductListing, error)
}

// DiscussionSource searches community discussion for product mentions.
type DiscussionSource interface {
	Search(ctx context.Context, query string, limit int) ([]ObservationRecord, error)
}

// TrendSource reports trending topics with interest scores.
type TrendSource interface {
	Trending(ctx context.Context, categories []string, limit int) ([]TrendSignal, error)
}

// SentimentClassifier scores a single piece of text.
type SentimentClassifier interface {
	Classify(text string) (SentimentLabel, float64)
}

// ProductStore persists scored products, their mentions, and run
// metadata.
type ProductStore interface {
	SaveRun(ctx context.Context, run RunSummary) error
	SaveProducts(ctx context.Context, runID string, products []ScoredProduct) error
	SaveMentions(ctx context.Context, runID string, mentions []Mention) error
	TopProducts(ctx context.Context, limit int) ([]ScoredProduct, error)
	Close()
}

// Exporter writes a ranked result set to a report artifact.
type Exporter interface {
	Export(products []ScoredProduct) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
