// Package sentiment classifies community text and reduces per-item
// classifications into an engagement-weighted aggregate.
package sentiment

import (
	"nichescout/internal/research"
)

// Label thresholds, fixed by convention (VADER-style cutoffs).
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// LabelFor maps a polarity score onto its categorical label.
func LabelFor(polarity float64) research.SentimentLabel {
	switch {
	case polarity >= positiveThreshold:
		return research.SentimentPositive
	case polarity <= negativeThreshold:
		return research.SentimentNegative
	default:
		return research.SentimentNeutral
	}
}

// Empty is the canonical "no data" aggregate: zero polarity, a neutral
// 0.5 ratio prior, all counts zero. Every no-op path must return it so
// "no signal" and "balanced signal" coincide by convention.
func Empty() research.AggregateSentiment {
	return research.AggregateSentiment{Ratio: 0.5}
}

// Aggregate reduces per-item results into one weighted summary.
// Weights are floored at 1 so zero-upvote items still count. Out-of-
// range polarity is clamped into [-1, 1] rather than rejected.
func Aggregate(results []research.SentimentResult) research.AggregateSentiment {
	if len(results) == 0 {
		return Empty()
	}

	var (
		weightedSum float64
		totalWeight float64
		agg         research.AggregateSentiment
	)

	for _, r := range results {
		weight := float64(r.Weight)
		if weight < 1 {
			weight = 1
		}
		polarity := r.Polarity
		if polarity > 1 {
			polarity = 1
		} else if polarity < -1 {
			polarity = -1
		}

		weightedSum += polarity * weight
		totalWeight += weight

		switch r.Label {
		case research.SentimentPositive:
			agg.PositiveCount++
		case research.SentimentNegative:
			agg.NegativeCount++
		default:
			agg.NeutralCount++
		}
	}

	agg.Observations = len(results)
	agg.Polarity = weightedSum / totalWeight
	denom := agg.PositiveCount + agg.NegativeCount
	if denom < 1 {
		denom = 1
	}
	agg.Ratio = float64(agg.PositiveCount) / float64(denom)
	return agg
}

// AggregateObservations classifies each observation with the supplied
// classifier and aggregates the results, weighting by upvotes.
func AggregateObservations(classifier research.SentimentClassifier, observations []research.ObservationRecord) research.AggregateSentiment {
	if len(observations) == 0 {
		return Empty()
	}
	results := make([]research.SentimentResult, 0, len(observations))
	for _, obs := range observations {
		label, polarity := classifier.Classify(obs.Text())
		results = append(results, research.SentimentResult{
			Label:    label,
			Polarity: polarity,
			Weight:   obs.Upvotes,
		})
	}
	return Aggregate(results)
}
