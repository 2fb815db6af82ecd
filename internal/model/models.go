// Package model defines shared data structures for the search service.
package model

import "time"

// MeasureKind says what the numeric mileage column actually measures.
// Vehicle marketplaces report odometer kilometres; the commercial-property
// marketplaces report surface area in square metres through the same column.
type MeasureKind string

const (
	MeasureDistanceKM MeasureKind = "distance_km"
	MeasureAreaM2     MeasureKind = "area_m2"
)

// RawListing is the ragged, untyped record a provider emits. Every field is
// provider-formatted text; an empty string means the provider had nothing.
// Coordinates are carried through when a provider knows them, which today
// none of the marketplace providers do.
type RawListing struct {
	Source    string
	Title     string
	Price     string
	Year      string
	Mileage   string
	FreeText  string // title/description blob used for year/mileage/area fallback
	Location  string
	City      string // set when the provider already knows the canonical city
	URL       string
	Kind      MeasureKind
	Latitude  *float64
	Longitude *float64
}

// CanonicalListing mirrors a vehicle_listings row. The normalized fields and
// score are derived by the scoring engine and never set directly; DistanceKM
// is a per-search annotation and is not persisted.
type CanonicalListing struct {
	ID                int64       `json:"id"`
	Source            string      `json:"source"`
	Title             string      `json:"title"`
	Price             *float64    `json:"price"`
	Year              *int        `json:"year"`
	Mileage           *int64      `json:"mileage"`
	Kind              MeasureKind `json:"measurement_kind"`
	Latitude          *float64    `json:"latitude,omitempty"`
	Longitude         *float64    `json:"longitude,omitempty"`
	City              string      `json:"city"`
	URL               string      `json:"url"`
	PriceNormalized   *float64    `json:"price_normalized"`
	MileageNormalized *float64    `json:"mileage_normalized"`
	YearNormalized    *float64    `json:"year_normalized"`
	Score             *float64    `json:"score"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	DistanceKM        *float64    `json:"distance_km,omitempty"`
}

// PopulationStats is a point-in-time snapshot of the min/max aggregates the
// scoring engine normalizes against. Recomputed per scoring event, never
// persisted. A nil bound means no stored listing has that field.
type PopulationStats struct {
	MinPrice   *float64
	MaxPrice   *float64
	MinMileage *float64
	MaxMileage *float64
	MinYear    *float64
	MaxYear    *float64
}

// SearchRequest is the filter specification accepted by the search API.
type SearchRequest struct {
	Query         string   `json:"query"`
	UserLat       *float64 `json:"user_lat,omitempty"`
	UserLon       *float64 `json:"user_lon,omitempty"`
	MaxDistanceKM float64  `json:"max_distance_km,omitempty"`
	MinPrice      *float64 `json:"min_price,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	MinYear       *int     `json:"min_year,omitempty"`
	MaxYear       *int     `json:"max_year,omitempty"`
	MaxMileage    *int64   `json:"max_mileage,omitempty"`
	City          string   `json:"city,omitempty"`
}

// SearchResponse is the ranked, annotated result envelope.
type SearchResponse struct {
	Query        string             `json:"query"`
	TotalResults int                `json:"total_results"`
	Listings     []CanonicalListing `json:"listings"`
}
