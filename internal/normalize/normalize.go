package normalize

import (
	"strings"

	"carscan/search-service/internal/model"
)

// Normalizer maps raw provider records onto the canonical listing shape.
// It is stateless apart from the gazetteer and safe for concurrent use.
type Normalizer struct {
	gaz *Gazetteer
}

// NewNormalizer returns a Normalizer resolving cities against gaz.
func NewNormalizer(gaz *Gazetteer) *Normalizer {
	return &Normalizer{gaz: gaz}
}

// Normalize converts one raw record into a CanonicalListing candidate.
//
// Dedicated fields win: free-text extraction only runs when the dedicated
// raw field is absent or fails to parse. For property records (MeasureAreaM2)
// the free-text fallback looks for an area token instead of a mileage token,
// and no year is inferred from text: a stray four-digit number in a property
// title is an address or a size, not a model year.
// City resolution order: provider-supplied city, then gazetteer match on the
// location string, then text before the first comma, then defaultCity.
//
// The caller owns the acceptance gate: candidates with an empty title or URL
// must be dropped, not stored.
func (n *Normalizer) Normalize(raw model.RawListing, defaultCity string) model.CanonicalListing {
	kind := raw.Kind
	if kind == "" {
		kind = model.MeasureDistanceKM
	}

	l := model.CanonicalListing{
		Source:    raw.Source,
		Title:     strings.TrimSpace(raw.Title),
		URL:       strings.TrimSpace(raw.URL),
		Kind:      kind,
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
	}

	l.Price = ParsePrice(raw.Price)

	l.Year = ParseYear(raw.Year)
	if l.Year == nil && raw.FreeText != "" && kind != model.MeasureAreaM2 {
		l.Year = ExtractYear(raw.FreeText)
	}

	l.Mileage = ParseMileage(raw.Mileage)
	if l.Mileage == nil && raw.FreeText != "" {
		if kind == model.MeasureAreaM2 {
			l.Mileage = ExtractArea(raw.FreeText)
		} else {
			l.Mileage = ExtractMileage(raw.FreeText)
		}
	}

	if city := strings.TrimSpace(raw.City); city != "" {
		l.City = city
	} else {
		l.City = n.gaz.Resolve(raw.Location, defaultCity)
	}

	// Out-of-range coordinates are noise, not an error.
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		l.Latitude = nil
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		l.Longitude = nil
	}

	return l
}
