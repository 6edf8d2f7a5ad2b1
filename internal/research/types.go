// Package research defines core types shared across subsystems.
package research

import (
	"time"
)

// TrendDirection describes where a search-interest curve is heading.
type TrendDirection string

// Trend direction values reported by the trend source.
const (
	TrendRising  TrendDirection = "rising"
	TrendStable  TrendDirection = "stable"
	TrendFalling TrendDirection = "falling"
	TrendUnknown TrendDirection = "unknown"
)

// NicheType classifies how a candidate relates to its parent trending topic.
type NicheType string

// Niche type values, ordered by assumed margin advantage.
const (
	NicheAccessory     NicheType = "accessory"
	NicheAlternative   NicheType = "alternative"
	NicheComplementary NicheType = "complementary"
	NicheRelated       NicheType = "related"
	NicheNone          NicheType = "none"
)

// SentimentLabel is the categorical classification of one observation.
type SentimentLabel string

// Sentiment labels produced by the classifier.
const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// ObservationRecord is a single text sample about a candidate product,
// typically one community post. Immutable once produced by a source.
type ObservationRecord struct {
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Upvotes   int       `json:"upvotes"`
	Comments  int       `json:"comments"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Text returns the combined title and body used for classification.
func (o ObservationRecord) Text() string {
	if o.Title == "" {
		return o.Body
	}
	if o.Body == "" {
		return o.Title
	}
	return o.Title + " " + o.Body
}

// SentimentResult is the classifier output for one observation.
type SentimentResult struct {
	Label    SentimentLabel `json:"label"`
	Polarity float64        `json:"polarity"`
	Weight   int            `json:"weight"`
}

// AggregateSentiment summarizes a batch of sentiment results. It is
// recomputed fresh per batch and never updated incrementally.
type AggregateSentiment struct {
	Polarity      float64 `json:"polarity"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
	NeutralCount  int     `json:"neutral_count"`
	Ratio         float64 `json:"ratio"`
	Observations  int     `json:"observations"`
}

// ProductListing is one marketplace search hit.
type ProductListing struct {
	Name        string  `json:"name"`
	ReviewCount int     `json:"review_count"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	URL         string  `json:"url,omitempty"`
}

// TrendSignal is one trending topic with its interest score.
type TrendSignal struct {
	Topic     string         `json:"topic"`
	Score     float64        `json:"score"`
	Direction TrendDirection `json:"direction"`
	Category  string         `json:"category,omitempty"`
}

// CandidateProduct is the unit being scored. Built by the discovery
// pipeline from source outputs; the scorer treats it as read-only.
type CandidateProduct struct {
	Name             string             `json:"name"`
	RelatedTopic     string             `json:"related_topic,omitempty"`
	Category         string             `json:"category,omitempty"`
	Price            float64            `json:"price,omitempty"`
	Rating           float64            `json:"rating,omitempty"`
	URL              string             `json:"url,omitempty"`
	CompetitionCount int                `json:"competition_count"`
	Sentiment        AggregateSentiment `json:"sentiment"`
	TrendScore       float64            `json:"trend_score"`
	TrendDirection   TrendDirection     `json:"trend_direction"`
	DiscussionVolume int                `json:"discussion_volume"`
	Niche            NicheType          `json:"niche_type"`
}

// ScoredProduct pairs a candidate with its computed opportunity score.
type ScoredProduct struct {
	CandidateProduct
	OpportunityScore float64 `json:"opportunity_score"`
	ScoredAt         time.Time
}

// Mention pairs one observation with its sentiment classification for
// persistence.
type Mention struct {
	Product     string            `json:"product"`
	Observation ObservationRecord `json:"observation"`
	Sentiment   SentimentResult   `json:"sentiment"`
}

// RunStatus tracks the lifecycle of one discovery run.
type RunStatus string

// Run status values persisted with each run.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary captures the outcome of one discovery run.
type RunSummary struct {
	ID             string        `json:"id"`
	Status         RunStatus     `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	TopicsScanned  int           `json:"topics_scanned"`
	ProductsScored int           `json:"products_scored"`
	ItemsFailed    int           `json:"items_failed"`
	ErrorText      string        `json:"error_text,omitempty"`
	Duration       time.Duration `json:"-"`
}
