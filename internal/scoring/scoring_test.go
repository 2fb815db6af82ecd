package scoring_test

import (
	"math"
	"testing"

	"carscan/search-service/internal/model"
	"carscan/search-service/internal/scoring"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
func i64(v int64) *int64   { return &v }

func statsFor(prices ...float64) model.PopulationStats {
	min, max := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return model.PopulationStats{MinPrice: &min, MaxPrice: &max}
}

// ── Price normalization ────────────────────────────────────────────────────

func TestApply_PriceExtremes(t *testing.T) {
	stats := statsFor(10000, 20000, 30000)
	w := scoring.DefaultWeights()

	cheapest := model.CanonicalListing{Price: f(10000)}
	w.Apply(&cheapest, stats)
	if cheapest.PriceNormalized == nil || *cheapest.PriceNormalized != 0 {
		t.Errorf("cheapest price_normalized = %v, want 0", cheapest.PriceNormalized)
	}

	priciest := model.CanonicalListing{Price: f(30000)}
	w.Apply(&priciest, stats)
	if priciest.PriceNormalized == nil || *priciest.PriceNormalized != 1 {
		t.Errorf("priciest price_normalized = %v, want 1", priciest.PriceNormalized)
	}

	middle := model.CanonicalListing{Price: f(20000)}
	w.Apply(&middle, stats)
	if middle.PriceNormalized == nil || math.Abs(*middle.PriceNormalized-0.5) > 1e-9 {
		t.Errorf("middle price_normalized = %v, want 0.5", middle.PriceNormalized)
	}
}

// With only a price present, the composite score must equal the price
// component exactly — the denominator shrinks to the price weight.
func TestApply_ScoreEqualsPriceNormalizedWhenOnlyPrice(t *testing.T) {
	stats := statsFor(10000, 20000, 30000)
	w := scoring.DefaultWeights()

	l := model.CanonicalListing{Price: f(30000)}
	w.Apply(&l, stats)

	if l.Score == nil {
		t.Fatal("score = nil, want price_normalized value")
	}
	if *l.Score != *l.PriceNormalized {
		t.Errorf("score = %v, want %v (= price_normalized)", *l.Score, *l.PriceNormalized)
	}
}

// ── Degenerate populations ─────────────────────────────────────────────────

func TestApply_SingleListingPopulation(t *testing.T) {
	// One listing: min == max for every dimension.
	stats := statsFor(15000)
	w := scoring.DefaultWeights()

	l := model.CanonicalListing{Price: f(15000)}
	w.Apply(&l, stats)

	if l.PriceNormalized != nil {
		t.Errorf("price_normalized = %v, want absent for single-listing population", *l.PriceNormalized)
	}
	if l.Score != nil {
		t.Errorf("score = %v, want absent", *l.Score)
	}
}

func TestApply_EmptyStats(t *testing.T) {
	w := scoring.DefaultWeights()
	l := model.CanonicalListing{Price: f(15000), Year: i(2020), Mileage: i64(40000)}
	w.Apply(&l, model.PopulationStats{})

	if l.PriceNormalized != nil || l.MileageNormalized != nil || l.YearNormalized != nil || l.Score != nil {
		t.Error("all derived fields must stay absent when the population has no aggregates")
	}
}

func TestApply_StaleDerivedFieldsReset(t *testing.T) {
	w := scoring.DefaultWeights()
	l := model.CanonicalListing{
		Price:             f(15000),
		PriceNormalized:   f(0.7),
		MileageNormalized: f(0.2),
		YearNormalized:    f(0.9),
		Score:             f(0.55),
	}
	// Degenerate population: everything must be wiped, not kept.
	w.Apply(&l, statsFor(15000))

	if l.PriceNormalized != nil || l.MileageNormalized != nil || l.YearNormalized != nil || l.Score != nil {
		t.Error("previously derived fields must be reset when normalization is impossible")
	}
}

// ── Year inversion ─────────────────────────────────────────────────────────

func TestApply_NewerYearScoresLower(t *testing.T) {
	minY, maxY := 2010.0, 2020.0
	stats := model.PopulationStats{MinYear: &minY, MaxYear: &maxY}
	w := scoring.DefaultWeights()

	newest := model.CanonicalListing{Year: i(2020)}
	w.Apply(&newest, stats)
	if newest.YearNormalized == nil || *newest.YearNormalized != 0 {
		t.Errorf("newest year_normalized = %v, want 0", newest.YearNormalized)
	}

	oldest := model.CanonicalListing{Year: i(2010)}
	w.Apply(&oldest, stats)
	if oldest.YearNormalized == nil || *oldest.YearNormalized != 1 {
		t.Errorf("oldest year_normalized = %v, want 1", oldest.YearNormalized)
	}
}

// ── Weighted combination ───────────────────────────────────────────────────

func TestApply_FullWeightedCombination(t *testing.T) {
	minP, maxP := 10000.0, 30000.0
	minM, maxM := 0.0, 100000.0
	minY, maxY := 2010.0, 2020.0
	stats := model.PopulationStats{
		MinPrice: &minP, MaxPrice: &maxP,
		MinMileage: &minM, MaxMileage: &maxM,
		MinYear: &minY, MaxYear: &maxY,
	}
	w := scoring.DefaultWeights()

	// price 20000 → 0.5, mileage 50000 → 0.5, year 2015 → 0.5 inverted 0.5.
	l := model.CanonicalListing{Price: f(20000), Mileage: i64(50000), Year: i(2015)}
	w.Apply(&l, stats)

	if l.Score == nil {
		t.Fatal("score = nil, want weighted composite")
	}
	want := (0.5*0.5 + 0.5*0.3 + 0.5*0.2) / (0.5 + 0.3 + 0.2)
	if math.Abs(*l.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", *l.Score, want)
	}
}

func TestApply_MissingDimensionShrinksDenominator(t *testing.T) {
	minP, maxP := 10000.0, 30000.0
	minY, maxY := 2010.0, 2020.0
	stats := model.PopulationStats{
		MinPrice: &minP, MaxPrice: &maxP,
		MinYear: &minY, MaxYear: &maxY,
	}
	w := scoring.DefaultWeights()

	// No mileage: score = (0.5·price + 0.2·year) / 0.7.
	l := model.CanonicalListing{Price: f(30000), Year: i(2010)}
	w.Apply(&l, stats)

	if l.MileageNormalized != nil {
		t.Errorf("mileage_normalized = %v, want absent", *l.MileageNormalized)
	}
	if l.Score == nil {
		t.Fatal("score = nil, want composite over present dimensions")
	}
	want := (1*0.5 + 1*0.2) / 0.7
	if math.Abs(*l.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", *l.Score, want)
	}
}

func TestApply_NoDimensionsLeavesScoreAbsent(t *testing.T) {
	w := scoring.DefaultWeights()
	l := model.CanonicalListing{Title: "sin datos"}
	w.Apply(&l, statsFor(10000, 30000))
	if l.Score != nil {
		t.Errorf("score = %v, want absent for a listing with no numeric fields", *l.Score)
	}
}
