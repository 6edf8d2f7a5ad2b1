package config

import (
	"nichescout/internal/scoring"
)

// ScoringWeights converts the scoring section into scorer weights.
func (c Config) ScoringWeights() scoring.Weights {
	s := c.Scoring
	return scoring.Weights{
		BaseOffset:      s.BaseOffset,
		SentimentWeight: s.SentimentWeight,
		TrendWeight:     s.TrendWeight,
		TrendFlatWeight: s.TrendFlatWeight,
		VolumeCap:       s.VolumeCap,
		VolumeScale:     s.VolumeScale,
		RatioBonus:      s.RatioBonus,
		RatioThreshold:  s.RatioThreshold,
		NegativePenalty: s.NegativePenalty,
	}
}
