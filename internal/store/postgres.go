package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"carscan/search-service/internal/model"
)

// Postgres is the production Store backed by a pgx connection pool.
// The UNIQUE constraint on url plus INSERT … ON CONFLICT gives the
// first-committer-wins guarantee the dedup invariant needs: a concurrent
// insert race on one url always collapses into a single row, with the
// loser's data applied as an update.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres runs schema migration on pool and returns the store.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	s := &Postgres{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return s, nil
}

func (s *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicle_listings (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			price DOUBLE PRECISION,
			year INT,
			mileage BIGINT,
			measurement_kind TEXT NOT NULL DEFAULT 'distance_km',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			city TEXT,
			url TEXT NOT NULL UNIQUE,
			price_normalized DOUBLE PRECISION,
			mileage_normalized DOUBLE PRECISION,
			year_normalized DOUBLE PRECISION,
			score DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_source ON vehicle_listings (source)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_price ON vehicle_listings (price)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_year ON vehicle_listings (year)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_city ON vehicle_listings (city)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_score ON vehicle_listings (score)`,
		`CREATE TABLE IF NOT EXISTS searches (
			id BIGSERIAL PRIMARY KEY,
			query TEXT NOT NULL,
			user_lat DOUBLE PRECISION,
			user_lon DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const listingColumns = `id, source, title, price, year, mileage, measurement_kind,
	latitude, longitude, city, url,
	price_normalized, mileage_normalized, year_normalized, score,
	created_at, updated_at`

// FindByURL returns the listing stored under url, or ErrNotFound.
func (s *Postgres) FindByURL(ctx context.Context, url string) (*model.CanonicalListing, error) {
	var l model.CanonicalListing
	err := s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM vehicle_listings WHERE url = $1`, url,
	).Scan(
		&l.ID, &l.Source, &l.Title, &l.Price, &l.Year, &l.Mileage, &l.Kind,
		&l.Latitude, &l.Longitude, &l.City, &l.URL,
		&l.PriceNormalized, &l.MileageNormalized, &l.YearNormalized, &l.Score,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, ErrNotFound
	}
	return &l, nil
}

// Upsert inserts l or fully replaces the row sharing its url (every field
// except url and created_at). xmax = 0 distinguishes a fresh insert from a
// conflict-update in one round trip.
func (s *Postgres) Upsert(ctx context.Context, l *model.CanonicalListing) (bool, error) {
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vehicle_listings
			(source, title, price, year, mileage, measurement_kind, latitude, longitude, city, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (url) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			year = EXCLUDED.year,
			mileage = EXCLUDED.mileage,
			measurement_kind = EXCLUDED.measurement_kind,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			city = EXCLUDED.city,
			updated_at = now()
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		l.Source, l.Title, l.Price, l.Year, l.Mileage, string(l.Kind),
		l.Latitude, l.Longitude, l.City, l.URL,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", l.URL, err)
	}
	return created, nil
}

// UpdateScores writes the derived fields of the row stored under l.URL.
func (s *Postgres) UpdateScores(ctx context.Context, l *model.CanonicalListing) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicle_listings
		 SET price_normalized = $2, mileage_normalized = $3, year_normalized = $4, score = $5
		 WHERE url = $1`,
		l.URL, l.PriceNormalized, l.MileageNormalized, l.YearNormalized, l.Score,
	)
	if err != nil {
		return fmt.Errorf("update scores %s: %w", l.URL, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns the population min/max aggregates; SQL aggregates skip
// NULLs, and an empty table yields all-nil bounds.
func (s *Postgres) Stats(ctx context.Context) (model.PopulationStats, error) {
	var st model.PopulationStats
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(price), MAX(price),
			MIN(mileage)::double precision, MAX(mileage)::double precision,
			MIN(year)::double precision, MAX(year)::double precision
		 FROM vehicle_listings`,
	).Scan(&st.MinPrice, &st.MaxPrice, &st.MinMileage, &st.MaxMileage, &st.MinYear, &st.MaxYear)
	if err != nil {
		return model.PopulationStats{}, fmt.Errorf("stats query: %w", err)
	}
	return st, nil
}

// Query returns listings matching every filter, best score first, unscored
// listings last.
func (s *Postgres) Query(ctx context.Context, f Filters) ([]model.CanonicalListing, error) {
	sql := `SELECT ` + listingColumns + ` FROM vehicle_listings`

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.MinYear != nil {
		add("year >= $%d", *f.MinYear)
	}
	if f.MaxYear != nil {
		add("year <= $%d", *f.MaxYear)
	}
	if f.MaxMileage != nil {
		add("mileage <= $%d", *f.MaxMileage)
	}
	if f.City != "" {
		add("city ILIKE $%d", "%"+f.City+"%")
	}
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY score ASC NULLS LAST, id ASC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listings query: %w", err)
	}
	defer rows.Close()

	listings := make([]model.CanonicalListing, 0)
	for rows.Next() {
		var l model.CanonicalListing
		if err := rows.Scan(
			&l.ID, &l.Source, &l.Title, &l.Price, &l.Year, &l.Mileage, &l.Kind,
			&l.Latitude, &l.Longitude, &l.City, &l.URL,
			&l.PriceNormalized, &l.MileageNormalized, &l.YearNormalized, &l.Score,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("listings scan: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// RecordSearch stores one row of search history.
func (s *Postgres) RecordSearch(ctx context.Context, query string, lat, lon *float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (query, user_lat, user_lon) VALUES ($1, $2, $3)`,
		query, lat, lon,
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Postgres) Close() {
	s.pool.Close()
}
