// Package scraper contains the marketplace providers that collect raw
// listings from Colombian vehicle and commercial-property sites. Each
// provider implements the Provider interface and returns unparsed
// RawListing values; all field extraction and city resolution happens
// later in the normalize package.
package scraper

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"carscan/search-service/internal/model"
)

// Provider fetches raw listings from one marketplace. Implementations must
// honour ctx cancellation and return whatever partial results they have
// alongside an error when a page fails mid-scrape.
type Provider interface {
	Name() string
	FetchRaw(ctx context.Context, query, city string) ([]model.RawListing, error)
}

// Options bounds provider behaviour. Zero values disable the corresponding
// limit (no cap, no delay).
type Options struct {
	MaxListings int           // per-source result cap
	DelayMin    time.Duration // polite-delay lower bound between page loads
	DelayMax    time.Duration // polite-delay upper bound
	Timeout     time.Duration // per-page navigation + extraction budget
}

// politeDelay sleeps a random duration in [DelayMin, DelayMax], returning
// early if ctx is cancelled. Randomised so repeated scrapes don't hit the
// sites with a fixed rhythm.
func politeDelay(ctx context.Context, opts Options) {
	if opts.DelayMax <= 0 {
		return
	}
	span := opts.DelayMax - opts.DelayMin
	d := opts.DelayMin
	if span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// capListings truncates raw to the per-source limit when one is set.
func capListings(raw []model.RawListing, max int) []model.RawListing {
	if max > 0 && len(raw) > max {
		return raw[:max]
	}
	return raw
}

// querySlug turns a free-form search query into the dash-separated path
// segment MercadoLibre-family sites use ("Toyota Corolla" -> "toyota-corolla").
func querySlug(query string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(query), " ", "-"))
}

var cityAccents = strings.NewReplacer("á", "a", "é", "e", "í", "i")

// citySlug lowercases a city name and strips the accents the property sites
// reject in URLs ("Bogotá" -> "bogota", "Medellín" -> "medellin").
func citySlug(city string) string {
	return cityAccents.Replace(strings.ToLower(strings.TrimSpace(city)))
}
