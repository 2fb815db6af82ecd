// Package search orchestrates the full listing pipeline: concurrent provider
// fan-out, normalization, URL-keyed upsert, per-listing rescoring, and the
// filtered, distance-annotated query that answers a search request.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"carscan/search-service/internal/geo"
	"carscan/search-service/internal/model"
	"carscan/search-service/internal/normalize"
	"carscan/search-service/internal/scoring"
	"carscan/search-service/internal/scraper"
	"carscan/search-service/internal/store"
)

const listingEventsChannel = "carscan.listings"

// Options tunes the orchestrator. Zero values fall back to the service
// defaults noted per field.
type Options struct {
	DefaultCity     string          // scrape fallback city ("Medellín")
	DefaultRadiusKM float64         // radius when the request omits one (50)
	MaxConcurrent   int             // provider fan-out bound (2)
	Weights         scoring.Weights // scoring weights (0.5/0.3/0.2)
}

// Service wires providers, the normalizer, and the store into the search
// pipeline. A nil Redis client disables event publishing.
type Service struct {
	store     store.Store
	providers []scraper.Provider
	norm      *normalize.Normalizer
	rdb       *redis.Client
	opts      Options
}

func New(st store.Store, providers []scraper.Provider, norm *normalize.Normalizer, rdb *redis.Client, opts Options) *Service {
	if opts.DefaultCity == "" {
		opts.DefaultCity = "Medellín"
	}
	if opts.DefaultRadiusKM <= 0 {
		opts.DefaultRadiusKM = 50
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	return &Service{store: st, providers: providers, norm: norm, rdb: rdb, opts: opts}
}

// ── Search pipeline ────────────────────────────────────────────────────────

// Search runs the whole pipeline for one request: scrape every provider,
// ingest what came back, then answer from the store with the request's
// filters applied. Provider failures cost coverage, never the response.
func (s *Service) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		city = s.opts.DefaultCity
	}

	raw := s.fetchAll(ctx, req.Query, city)
	s.ingest(ctx, raw, city)

	listings, err := s.store.Query(ctx, filtersFrom(req))
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}

	if req.UserLat != nil && req.UserLon != nil {
		radius := req.MaxDistanceKM
		if radius <= 0 {
			radius = s.opts.DefaultRadiusKM
		}
		listings = annotateDistance(listings, *req.UserLat, *req.UserLon, radius)
	}

	if err := s.store.RecordSearch(ctx, req.Query, req.UserLat, req.UserLon); err != nil {
		log.Printf("[search] record search failed: %v", err)
	}

	return &model.SearchResponse{
		Query:        req.Query,
		TotalResults: len(listings),
		Listings:     listings,
	}, nil
}

// fetchAll fans out to every provider with at most MaxConcurrent running at
// once and awaits them all. A failing provider contributes whatever partial
// results it returned alongside its error.
func (s *Service) fetchAll(ctx context.Context, query, city string) []model.RawListing {
	var (
		mu  sync.Mutex
		all []model.RawListing
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, s.opts.MaxConcurrent)

	for _, p := range s.providers {
		wg.Add(1)
		go func(p scraper.Provider) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			raw, err := p.FetchRaw(ctx, query, city)
			if err != nil {
				log.Printf("[search] provider %s failed: %v", p.Name(), err)
			} else {
				log.Printf("[search] provider %s returned %d raw listings", p.Name(), len(raw))
			}
			if len(raw) > 0 {
				mu.Lock()
				all = append(all, raw...)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return all
}

type ingestStats struct {
	inserted int
	updated  int
	dropped  int
	failed   int
}

// ingest normalizes and upserts each raw record, then rescores the stored
// row against fresh population stats. Records without a title or URL are
// dropped before they reach the store; a failed rescore keeps the listing's
// previous score.
func (s *Service) ingest(ctx context.Context, raw []model.RawListing, defaultCity string) ingestStats {
	var st ingestStats
	for _, r := range raw {
		listing := s.norm.Normalize(r, defaultCity)
		if listing.Title == "" || listing.URL == "" {
			st.dropped++
			continue
		}

		created, err := s.store.Upsert(ctx, &listing)
		if err != nil {
			st.failed++
			log.Printf("[search] upsert %s failed: %v", listing.URL, err)
			continue
		}
		if created {
			st.inserted++
		} else {
			st.updated++
		}

		scored, err := s.rescore(ctx, listing.URL)
		if err != nil {
			log.Printf("[search] rescore %s failed, previous score kept: %v", listing.URL, err)
			scored = &listing
		}
		s.publishUpserted(ctx, scored)
	}

	if len(raw) > 0 {
		log.Printf("[search] ingest complete: inserted=%d updated=%d dropped=%d failed=%d",
			st.inserted, st.updated, st.dropped, st.failed)
	}
	return st
}

// rescore re-reads the committed row, recomputes its normalized fields and
// score against a fresh population snapshot, and persists the result.
// Reading back instead of trusting the in-memory candidate also heals races
// with a concurrent writer on the same URL.
func (s *Service) rescore(ctx context.Context, url string) (*model.CanonicalListing, error) {
	current, err := s.store.FindByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("population stats: %w", err)
	}
	s.opts.Weights.Apply(current, stats)
	if err := s.store.UpdateScores(ctx, current); err != nil {
		return nil, fmt.Errorf("persist scores: %w", err)
	}
	return current, nil
}

// RescoreAll recomputes every listing's score against one population
// snapshot. The scheduler runs this periodically to bound the staleness that
// per-listing rescoring tolerates.
func (s *Service) RescoreAll(ctx context.Context) error {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("population stats: %w", err)
	}
	listings, err := s.store.Query(ctx, store.Filters{})
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	var failed int
	for i := range listings {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l := listings[i]
		s.opts.Weights.Apply(&l, stats)
		if err := s.store.UpdateScores(ctx, &l); err != nil {
			failed++
			log.Printf("[search] rescore %s failed: %v", l.URL, err)
		}
	}

	log.Printf("[search] rescore sweep: %d listings, %d failed", len(listings), failed)
	if failed > 0 {
		return fmt.Errorf("rescore sweep: %d of %d listings failed", failed, len(listings))
	}
	return nil
}

// ── Result shaping ─────────────────────────────────────────────────────────

// annotateDistance keeps listings within radiusKM of the user coordinate and
// stamps each survivor's distance. Listings without coordinates cannot
// satisfy the radius predicate and are dropped.
func annotateDistance(listings []model.CanonicalListing, lat, lon, radiusKM float64) []model.CanonicalListing {
	out := make([]model.CanonicalListing, 0, len(listings))
	for _, l := range listings {
		if l.Latitude == nil || l.Longitude == nil {
			continue
		}
		d := geo.Distance(lat, lon, *l.Latitude, *l.Longitude)
		if d > radiusKM {
			continue
		}
		l.DistanceKM = &d
		out = append(out, l)
	}
	return out
}

// filtersFrom maps the request's scalar bounds onto store predicates. The
// city filter uses the request value as given — the scrape default city is
// not a filter.
func filtersFrom(req model.SearchRequest) store.Filters {
	return store.Filters{
		MinPrice:   req.MinPrice,
		MaxPrice:   req.MaxPrice,
		MinYear:    req.MinYear,
		MaxYear:    req.MaxYear,
		MaxMileage: req.MaxMileage,
		City:       strings.TrimSpace(req.City),
	}
}

// publishUpserted emits a listing-changed event for downstream consumers
// (non-fatal, skipped entirely when Redis is not configured).
func (s *Service) publishUpserted(ctx context.Context, l *model.CanonicalListing) {
	if s.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]interface{}{
		"type":   "EVENT_LISTING_UPSERTED",
		"url":    l.URL,
		"source": l.Source,
		"score":  l.Score,
	})
	if err := s.rdb.Publish(ctx, listingEventsChannel, event).Err(); err != nil {
		log.Printf("[search] publish EVENT_LISTING_UPSERTED failed: %v", err)
	}
}
