package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"carscan/search-service/internal/model"
)

// SQLite is the embedded Store used for local runs without a PostgreSQL
// server and by the store tests (":memory:"). A single connection serializes
// all writes, which also provides the per-url write serialization the dedup
// invariant requires.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and migrates
// the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicle_listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			price REAL,
			year INTEGER,
			mileage INTEGER,
			measurement_kind TEXT NOT NULL DEFAULT 'distance_km',
			latitude REAL,
			longitude REAL,
			city TEXT,
			url TEXT NOT NULL UNIQUE,
			price_normalized REAL,
			mileage_normalized REAL,
			year_normalized REAL,
			score REAL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_price ON vehicle_listings (price)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_listings_score ON vehicle_listings (score)`,
		`CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			user_lat REAL,
			user_lon REAL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// FindByURL returns the listing stored under url, or ErrNotFound.
func (s *SQLite) FindByURL(ctx context.Context, url string) (*model.CanonicalListing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM vehicle_listings WHERE url = ?`, url)
	l, err := scanListing(row.Scan)
	if err != nil {
		return nil, ErrNotFound
	}
	return l, nil
}

// Upsert inserts l or fully replaces the row sharing its url. The lookup and
// the write run in one transaction on the single connection, so concurrent
// upserts of one url serialize rather than racing.
func (s *SQLite) Upsert(ctx context.Context, l *model.CanonicalListing) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("upsert begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	nowText := now.Format(time.RFC3339Nano)

	var (
		existingID int64
		createdAt  string
	)
	lookupErr := tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM vehicle_listings WHERE url = ?`, l.URL,
	).Scan(&existingID, &createdAt)

	switch lookupErr {
	case sql.ErrNoRows:
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`INSERT INTO vehicle_listings
				(source, title, price, year, mileage, measurement_kind,
				 latitude, longitude, city, url, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.Source, l.Title, nullF(l.Price), nullI(l.Year), nullI64(l.Mileage),
			string(l.Kind), nullF(l.Latitude), nullF(l.Longitude), l.City, l.URL,
			nowText, nowText,
		)
		if err != nil {
			return false, fmt.Errorf("upsert insert %s: %w", l.URL, err)
		}
		l.ID, _ = res.LastInsertId()
		l.CreatedAt, l.UpdatedAt = now, now
		created = true

	case nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE vehicle_listings SET
				source = ?, title = ?, price = ?, year = ?, mileage = ?,
				measurement_kind = ?, latitude = ?, longitude = ?, city = ?,
				updated_at = ?
			 WHERE url = ?`,
			l.Source, l.Title, nullF(l.Price), nullI(l.Year), nullI64(l.Mileage),
			string(l.Kind), nullF(l.Latitude), nullF(l.Longitude), l.City,
			nowText, l.URL,
		)
		if err != nil {
			return false, fmt.Errorf("upsert update %s: %w", l.URL, err)
		}
		l.ID = existingID
		l.CreatedAt = parseTime(createdAt)
		l.UpdatedAt = now

	default:
		return false, fmt.Errorf("upsert lookup %s: %w", l.URL, lookupErr)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("upsert commit %s: %w", l.URL, err)
	}
	return created, nil
}

// UpdateScores writes the derived fields of the row stored under l.URL.
func (s *SQLite) UpdateScores(ctx context.Context, l *model.CanonicalListing) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vehicle_listings
		 SET price_normalized = ?, mileage_normalized = ?, year_normalized = ?, score = ?
		 WHERE url = ?`,
		nullF(l.PriceNormalized), nullF(l.MileageNormalized), nullF(l.YearNormalized),
		nullF(l.Score), l.URL,
	)
	if err != nil {
		return fmt.Errorf("update scores %s: %w", l.URL, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns the population min/max aggregates.
func (s *SQLite) Stats(ctx context.Context) (model.PopulationStats, error) {
	var bounds [6]sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(price), MAX(price), MIN(mileage), MAX(mileage), MIN(year), MAX(year)
		 FROM vehicle_listings`,
	).Scan(&bounds[0], &bounds[1], &bounds[2], &bounds[3], &bounds[4], &bounds[5])
	if err != nil {
		return model.PopulationStats{}, fmt.Errorf("stats query: %w", err)
	}
	return model.PopulationStats{
		MinPrice:   fromNullF(bounds[0]),
		MaxPrice:   fromNullF(bounds[1]),
		MinMileage: fromNullF(bounds[2]),
		MaxMileage: fromNullF(bounds[3]),
		MinYear:    fromNullF(bounds[4]),
		MaxYear:    fromNullF(bounds[5]),
	}, nil
}

// Query returns listings matching every filter, best score first, unscored
// listings last.
func (s *SQLite) Query(ctx context.Context, f Filters) ([]model.CanonicalListing, error) {
	q := `SELECT ` + listingColumns + ` FROM vehicle_listings`

	var (
		where []string
		args  []any
	)
	if f.MinPrice != nil {
		where, args = append(where, "price >= ?"), append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where, args = append(where, "price <= ?"), append(args, *f.MaxPrice)
	}
	if f.MinYear != nil {
		where, args = append(where, "year >= ?"), append(args, *f.MinYear)
	}
	if f.MaxYear != nil {
		where, args = append(where, "year <= ?"), append(args, *f.MaxYear)
	}
	if f.MaxMileage != nil {
		where, args = append(where, "mileage <= ?"), append(args, *f.MaxMileage)
	}
	if f.City != "" {
		where, args = append(where, "city LIKE ?"), append(args, "%"+f.City+"%")
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY score ASC NULLS LAST, id ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listings query: %w", err)
	}
	defer rows.Close()

	listings := make([]model.CanonicalListing, 0)
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("listings scan: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// RecordSearch stores one row of search history.
func (s *SQLite) RecordSearch(ctx context.Context, query string, lat, lon *float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (query, user_lat, user_lon, created_at) VALUES (?, ?, ?, ?)`,
		query, nullF(lat), nullF(lon), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close() {
	s.db.Close()
}

// scanListing reads one row in listingColumns order through any Scan func.
func scanListing(scan func(...any) error) (*model.CanonicalListing, error) {
	var (
		l                  model.CanonicalListing
		price, lat, lon    sql.NullFloat64
		pn, mn, yn, score  sql.NullFloat64
		year, mileage      sql.NullInt64
		kind, city         sql.NullString
		createdAt, updated string
	)
	if err := scan(
		&l.ID, &l.Source, &l.Title, &price, &year, &mileage, &kind,
		&lat, &lon, &city, &l.URL,
		&pn, &mn, &yn, &score,
		&createdAt, &updated,
	); err != nil {
		return nil, err
	}

	l.Price = fromNullF(price)
	if year.Valid {
		y := int(year.Int64)
		l.Year = &y
	}
	if mileage.Valid {
		m := mileage.Int64
		l.Mileage = &m
	}
	l.Kind = model.MeasureKind(kind.String)
	l.Latitude = fromNullF(lat)
	l.Longitude = fromNullF(lon)
	l.City = city.String
	l.PriceNormalized = fromNullF(pn)
	l.MileageNormalized = fromNullF(mn)
	l.YearNormalized = fromNullF(yn)
	l.Score = fromNullF(score)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updated)
	return &l, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullF(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullI(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullI64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullF(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
