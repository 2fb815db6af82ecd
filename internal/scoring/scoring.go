// Package scoring ranks listings against the current population.
//
// Each listing's price, mileage and year are min-max normalized against the
// population aggregates and combined into one weighted composite. Scores are
// lower-is-better: the cheapest, least-driven, newest listing in the
// population tends toward 0.
package scoring

import "carscan/search-service/internal/model"

// Weights controls how much each normalized dimension contributes to the
// composite score. Dimensions missing on a listing (or degenerate in the
// population) are excluded from both numerator and denominator, so the
// score stays a weighted average of whatever is actually known.
type Weights struct {
	Price   float64
	Mileage float64
	Year    float64
}

// DefaultWeights returns the production weighting: price dominates, mileage
// refines, year nudges.
func DefaultWeights() Weights {
	return Weights{Price: 0.5, Mileage: 0.3, Year: 0.2}
}

// Apply recomputes the listing's normalized fields and composite score
// against stats. Previously derived values are discarded first, so a
// dimension that can no longer be normalized (value gone, or min == max in
// the population) ends up absent rather than stale.
//
// Normalization per dimension, only when the listing has a value and the
// population spread is non-degenerate (max > min):
//
//	price_normalized   = (price - min) / (max - min)         lower is better
//	mileage_normalized = (mileage - min) / (max - min)       lower is better
//	year_normalized    = 1 - (year - min) / (max - min)      newer is better
//
// The composite is Σ(weight·normalized) / Σ(weight present); with no
// present dimension the score stays absent.
func (w Weights) Apply(l *model.CanonicalListing, stats model.PopulationStats) {
	l.PriceNormalized = nil
	l.MileageNormalized = nil
	l.YearNormalized = nil
	l.Score = nil

	if l.Price != nil {
		if v, ok := minMax(*l.Price, stats.MinPrice, stats.MaxPrice); ok {
			l.PriceNormalized = &v
		}
	}
	if l.Mileage != nil {
		if v, ok := minMax(float64(*l.Mileage), stats.MinMileage, stats.MaxMileage); ok {
			l.MileageNormalized = &v
		}
	}
	if l.Year != nil {
		if v, ok := minMax(float64(*l.Year), stats.MinYear, stats.MaxYear); ok {
			inverted := 1 - v
			l.YearNormalized = &inverted
		}
	}

	var score, weightSum float64
	if l.PriceNormalized != nil {
		score += *l.PriceNormalized * w.Price
		weightSum += w.Price
	}
	if l.MileageNormalized != nil {
		score += *l.MileageNormalized * w.Mileage
		weightSum += w.Mileage
	}
	if l.YearNormalized != nil {
		score += *l.YearNormalized * w.Year
		weightSum += w.Year
	}

	if weightSum > 0 {
		composite := score / weightSum
		l.Score = &composite
	}
}

// minMax returns (value - min) / (max - min), reporting false when either
// bound is unknown or the population is degenerate (max <= min).
func minMax(value float64, min, max *float64) (float64, bool) {
	if min == nil || max == nil || *max <= *min {
		return 0, false
	}
	return (value - *min) / (*max - *min), true
}
