package normalize_test

import (
	"reflect"
	"testing"

	"carscan/search-service/internal/model"
	"carscan/search-service/internal/normalize"
)

func newNormalizer() *normalize.Normalizer {
	return normalize.NewNormalizer(normalize.NewGazetteer(nil))
}

// ── Field mapping ──────────────────────────────────────────────────────────

func TestNormalize_VehicleRecord(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "mercadolibre",
		Title:    "  Mazda 3 Touring 2018  ",
		Price:    "$62.500.000",
		FreeText: "Mazda 3 Touring 2018, 45.000 km, único dueño",
		Location: "Laureles, Medellín",
		URL:      "https://example.com/MCO-123",
	}

	got := n.Normalize(raw, "Bogotá")

	if got.Title != "Mazda 3 Touring 2018" {
		t.Errorf("Title = %q, want trimmed title", got.Title)
	}
	if got.Price == nil || *got.Price != 62500000 {
		t.Errorf("Price = %v, want 62500000", got.Price)
	}
	if got.Year == nil || *got.Year != 2018 {
		t.Errorf("Year = %v, want 2018 (from free text)", got.Year)
	}
	if got.Mileage == nil || *got.Mileage != 45000 {
		t.Errorf("Mileage = %v, want 45000 (from free text)", got.Mileage)
	}
	if got.City != "Medellín" {
		t.Errorf("City = %q, want Medellín", got.City)
	}
	if got.Kind != model.MeasureDistanceKM {
		t.Errorf("Kind = %q, want %q", got.Kind, model.MeasureDistanceKM)
	}
}

func TestNormalize_DedicatedFieldBeatsFreeText(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "tucarro",
		Title:    "Renault Duster",
		Year:     "2021",
		Mileage:  "12.000 km",
		FreeText: "Renault Duster 2015, 99.000 km",
		URL:      "https://example.com/duster",
	}

	got := n.Normalize(raw, "Bogotá")

	if got.Year == nil || *got.Year != 2021 {
		t.Errorf("Year = %v, want dedicated field value 2021", got.Year)
	}
	if got.Mileage == nil || *got.Mileage != 12000 {
		t.Errorf("Mileage = %v, want dedicated field value 12000", got.Mileage)
	}
}

func TestNormalize_FreeTextFallbackWhenDedicatedUnparseable(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "tucarro",
		Title:    "Chevrolet Onix",
		Year:     "N/A",
		Mileage:  "sin dato",
		FreeText: "Chevrolet Onix 2020, 33.000 km",
		URL:      "https://example.com/onix",
	}

	got := n.Normalize(raw, "Bogotá")

	if got.Year == nil || *got.Year != 2020 {
		t.Errorf("Year = %v, want free-text fallback 2020", got.Year)
	}
	if got.Mileage == nil || *got.Mileage != 33000 {
		t.Errorf("Mileage = %v, want free-text fallback 33000", got.Mileage)
	}
}

// ── Property records ───────────────────────────────────────────────────────

func TestNormalize_AreaKindUsesAreaExtractor(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "fincaraiz",
		Title:    "Local comercial Chapinero",
		Price:    "$890.000.000",
		FreeText: "Local comercial de 250 m2 sobre vía principal",
		Location: "Chapinero, Bogotá",
		URL:      "https://example.com/local-250",
		Kind:     model.MeasureAreaM2,
	}

	got := n.Normalize(raw, "Bogotá")

	if got.Kind != model.MeasureAreaM2 {
		t.Errorf("Kind = %q, want %q", got.Kind, model.MeasureAreaM2)
	}
	if got.Mileage == nil || *got.Mileage != 250 {
		t.Errorf("Mileage = %v, want area 250", got.Mileage)
	}
}

func TestNormalize_AreaKindNeverInfersYear(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "bodegasylocales",
		Title:    "Bodega sector industrial",
		FreeText: "Bodega construida en 2015, 1.200 m2, altura 8m",
		URL:      "https://example.com/bodega-1200",
		Kind:     model.MeasureAreaM2,
	}

	got := n.Normalize(raw, "Medellín")

	if got.Year != nil {
		t.Errorf("Year = %v, want nil for property records", *got.Year)
	}
	if got.Mileage == nil || *got.Mileage != 1200 {
		t.Errorf("Mileage = %v, want area 1200", got.Mileage)
	}
}

func TestNormalize_EmptyKindDefaultsToDistance(t *testing.T) {
	n := newNormalizer()
	got := n.Normalize(model.RawListing{Title: "x", URL: "u"}, "Bogotá")
	if got.Kind != model.MeasureDistanceKM {
		t.Errorf("Kind = %q, want default %q", got.Kind, model.MeasureDistanceKM)
	}
}

// ── City precedence ────────────────────────────────────────────────────────

func TestNormalize_ExplicitCityWinsOverLocation(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Title:    "x",
		URL:      "u",
		City:     "Cali",
		Location: "Algún barrio, Medellín",
	}
	if got := n.Normalize(raw, "Bogotá"); got.City != "Cali" {
		t.Errorf("City = %q, want explicit provider city Cali", got.City)
	}
}

func TestNormalize_EmptyLocationUsesDefaultCity(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{Title: "x", URL: "u"}
	if got := n.Normalize(raw, "Bucaramanga"); got.City != "Bucaramanga" {
		t.Errorf("City = %q, want default Bucaramanga", got.City)
	}
}

// ── Coordinates ────────────────────────────────────────────────────────────

func TestNormalize_OutOfRangeCoordinatesDropped(t *testing.T) {
	n := newNormalizer()
	lat, lon := 95.0, -200.0
	raw := model.RawListing{Title: "x", URL: "u", Latitude: &lat, Longitude: &lon}

	got := n.Normalize(raw, "Bogotá")

	if got.Latitude != nil {
		t.Errorf("Latitude = %v, want nil for out-of-range input", *got.Latitude)
	}
	if got.Longitude != nil {
		t.Errorf("Longitude = %v, want nil for out-of-range input", *got.Longitude)
	}
}

func TestNormalize_ValidCoordinatesKept(t *testing.T) {
	n := newNormalizer()
	lat, lon := 4.60971, -74.08175
	raw := model.RawListing{Title: "x", URL: "u", Latitude: &lat, Longitude: &lon}

	got := n.Normalize(raw, "Bogotá")

	if got.Latitude == nil || *got.Latitude != lat {
		t.Errorf("Latitude = %v, want %v", got.Latitude, lat)
	}
	if got.Longitude == nil || *got.Longitude != lon {
		t.Errorf("Longitude = %v, want %v", got.Longitude, lon)
	}
}

// ── Determinism ────────────────────────────────────────────────────────────

// Normalizing the same raw record twice must yield identical candidates —
// the ingest path relies on this to make re-upserts idempotent.
func TestNormalize_Deterministic(t *testing.T) {
	n := newNormalizer()
	raw := model.RawListing{
		Source:   "mercadolibre",
		Title:    "Kia Picanto 2019",
		Price:    "$38.900.000",
		FreeText: "Kia Picanto 2019, 21.000 km",
		Location: "Suba, Bogotá",
		URL:      "https://example.com/picanto",
	}

	first := n.Normalize(raw, "Bogotá")
	second := n.Normalize(raw, "Bogotá")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize is not deterministic:\n first = %+v\nsecond = %+v", first, second)
	}
}
