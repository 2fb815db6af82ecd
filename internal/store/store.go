// Package store is the persistence boundary for canonical listings.
//
// Two implementations exist: Postgres (production, pgx pool) and SQLite
// (embedded, single-file, used for local runs and tests). Both guarantee
// the dedup invariant — url is the sole natural key, concurrent writers on
// the same url collapse into one row — and both order query results by
// score ascending with unscored listings last.
package store

import (
	"context"
	"errors"

	"carscan/search-service/internal/model"
)

// ErrNotFound is returned when no listing matches the lookup key.
var ErrNotFound = errors.New("listing not found")

// Filters is the conjunctive predicate set a search applies to stored
// listings. Nil members mean "no constraint on this dimension"; City is a
// case-insensitive substring match. Radius filtering is geodesic and
// happens in the search service after retrieval, so it is not part of the
// SQL predicate set.
type Filters struct {
	MinPrice   *float64
	MaxPrice   *float64
	MinYear    *int
	MaxYear    *int
	MaxMileage *int64
	City       string
}

// Store is implemented by every listings backend.
type Store interface {
	// FindByURL returns the listing stored under url, or ErrNotFound.
	FindByURL(ctx context.Context, url string) (*model.CanonicalListing, error)

	// Upsert inserts l or, when its url already exists, fully replaces
	// every stored field except url and created_at. Derived scoring fields
	// are untouched — a rescore follows separately, so a failed rescore
	// leaves the previous score in place. On return l carries the stored
	// id and timestamps; created reports whether a new row was made.
	// Concurrent upserts of the same url must serialize on the url key.
	Upsert(ctx context.Context, l *model.CanonicalListing) (created bool, err error)

	// UpdateScores writes l's derived fields (the three normalized values
	// and the composite score) to the row stored under l.URL.
	UpdateScores(ctx context.Context, l *model.CanonicalListing) error

	// Stats returns the population min/max aggregates, excluding NULLs.
	Stats(ctx context.Context) (model.PopulationStats, error)

	// Query returns listings matching every filter, ordered by score
	// ascending with absent scores last. Zero-valued Filters return the
	// whole population.
	Query(ctx context.Context, f Filters) ([]model.CanonicalListing, error)

	// RecordSearch stores one row of search history.
	RecordSearch(ctx context.Context, query string, lat, lon *float64) error

	Close()
}
