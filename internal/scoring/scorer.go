// Package scoring turns heterogeneous market signals into one
// comparable 0-100 opportunity score.
package scoring

import (
	"math"
	"sort"

	"nichescout/internal/research"
)

// Weights calibrates the score components. The constants are an
// empirical default, not a contract; monotonicity is the contract.
type Weights struct {
	BaseOffset      float64
	SentimentWeight float64 // max points from sentiment, linear in (s+1)/2
	TrendWeight     float64 // max points from a rising trend
	TrendFlatWeight float64 // max points from a non-rising trend
	VolumeCap       float64 // cap on the log-scaled discussion bonus
	VolumeScale     float64 // multiplier on log10(volume+1)
	RatioBonus      float64 // awarded when positive ratio exceeds RatioThreshold
	RatioThreshold  float64
	NegativePenalty float64 // applied when negatives outnumber positives
}

// DefaultWeights mirrors the calibration used by the discovery runs.
func DefaultWeights() Weights {
	return Weights{
		BaseOffset:      30,
		SentimentWeight: 25,
		TrendWeight:     25,
		TrendFlatWeight: 15,
		VolumeCap:       5,
		VolumeScale:     2.5,
		RatioBonus:      5,
		RatioThreshold:  0.7,
		NegativePenalty: 10,
	}
}

// competitionBuckets maps review-count ceilings to points. Fewer
// reviews means a less saturated market and a higher score; the table
// must stay monotone non-increasing.
var competitionBuckets = []struct {
	below  int
	points float64
}{
	{50, 25},
	{200, 20},
	{1000, 15},
	{5000, 10},
}

const competitionFloor = 5.0

// nicheBonuses reflect assumed margin differences per niche type.
var nicheBonuses = map[research.NicheType]float64{
	research.NicheAccessory:     10,
	research.NicheAlternative:   8,
	research.NicheComplementary: 6,
	research.NicheRelated:       4,
	research.NicheNone:          0,
}

// Scorer computes opportunity scores. Pure and deterministic; missing
// inputs fall back to neutral defaults, never to errors.
type Scorer struct {
	weights Weights
}

// New builds a Scorer. Zero-valued weights are replaced by defaults.
func New(weights Weights) *Scorer {
	def := DefaultWeights()
	if weights.SentimentWeight <= 0 {
		weights.SentimentWeight = def.SentimentWeight
	}
	if weights.TrendWeight <= 0 {
		weights.TrendWeight = def.TrendWeight
	}
	if weights.TrendFlatWeight <= 0 {
		weights.TrendFlatWeight = def.TrendFlatWeight
	}
	if weights.VolumeCap <= 0 {
		weights.VolumeCap = def.VolumeCap
	}
	if weights.VolumeScale <= 0 {
		weights.VolumeScale = def.VolumeScale
	}
	if weights.RatioThreshold <= 0 {
		weights.RatioThreshold = def.RatioThreshold
	}
	return &Scorer{weights: weights}
}

// Score computes the opportunity score for one candidate, clamped to
// [0, 100] and rounded to one decimal.
func (s *Scorer) Score(c research.CandidateProduct) float64 {
	b := s.Breakdown(c)
	return b.Total
}

// Breakdown carries each component so callers can explain a score.
type Breakdown struct {
	Competition float64 `json:"competition"`
	Sentiment   float64 `json:"sentiment"`
	Trend       float64 `json:"trend"`
	Volume      float64 `json:"volume"`
	Niche       float64 `json:"niche"`
	Adjustment  float64 `json:"adjustment"`
	Total       float64 `json:"total"`
}

// Breakdown computes the score with its per-component parts.
func (s *Scorer) Breakdown(c research.CandidateProduct) Breakdown {
	w := s.weights

	competition := s.competitionScore(c.CompetitionCount)
	sentiment := ((clamp(c.Sentiment.Polarity, -1, 1) + 1) / 2) * w.SentimentWeight
	trend := s.trendScore(c.TrendScore, c.TrendDirection)

	volume := 0.0
	if c.DiscussionVolume > 0 {
		volume = math.Min(w.VolumeCap, math.Log10(float64(c.DiscussionVolume)+1)*w.VolumeScale)
	}

	niche := nicheBonuses[c.Niche]

	adjustment := 0.0
	if c.Sentiment.Ratio > w.RatioThreshold {
		adjustment += w.RatioBonus
	}
	if c.Sentiment.NegativeCount > c.Sentiment.PositiveCount {
		adjustment -= w.NegativePenalty
	}

	total := w.BaseOffset + competition + sentiment + trend + volume + niche + adjustment
	total = math.Round(clamp(total, 0, 100)*10) / 10

	return Breakdown{
		Competition: competition,
		Sentiment:   sentiment,
		Trend:       trend,
		Volume:      volume,
		Niche:       niche,
		Adjustment:  adjustment,
		Total:       total,
	}
}

func (s *Scorer) competitionScore(reviews int) float64 {
	if reviews <= 0 {
		return competitionBuckets[0].points
	}
	for _, bucket := range competitionBuckets {
		if reviews < bucket.below {
			return bucket.points
		}
	}
	return competitionFloor
}

func (s *Scorer) trendScore(raw float64, direction research.TrendDirection) float64 {
	raw = clamp(raw, 0, 100)
	if direction == research.TrendRising {
		return raw / 100 * s.weights.TrendWeight
	}
	return raw / 100 * s.weights.TrendFlatWeight
}

// Rank scores every candidate and returns them sorted by descending
// opportunity score. Input is not mutated.
func (s *Scorer) Rank(candidates []research.CandidateProduct) []research.ScoredProduct {
	out := make([]research.ScoredProduct, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, research.ScoredProduct{
			CandidateProduct: c,
			OpportunityScore: s.Score(c),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpportunityScore > out[j].OpportunityScore
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
