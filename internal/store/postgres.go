// Package store persists listing records to PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/pkg/listing"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
	id                 BIGSERIAL PRIMARY KEY,
	url                TEXT NOT NULL UNIQUE,
	title              TEXT NOT NULL,
	region             TEXT NOT NULL,
	address            TEXT NOT NULL,
	description        TEXT NOT NULL,
	photos_links       TEXT NOT NULL,
	price              DOUBLE PRECISION,
	number_of_bedrooms BIGINT,
	floor_area         DOUBLE PRECISION,
	missing_fields     TEXT[] NOT NULL DEFAULT '{}',
	scraped_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Widen columns created by earlier schemas.
ALTER TABLE listings
	ALTER COLUMN price TYPE DOUBLE PRECISION,
	ALTER COLUMN number_of_bedrooms TYPE BIGINT,
	ALTER COLUMN floor_area TYPE DOUBLE PRECISION;

CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_listings_region ON listings(region);
`

const upsertSQL = `
INSERT INTO listings (url, title, region, address, description, photos_links,
	price, number_of_bedrooms, floor_area, missing_fields)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	region = EXCLUDED.region,
	address = EXCLUDED.address,
	description = EXCLUDED.description,
	photos_links = EXCLUDED.photos_links,
	price = EXCLUDED.price,
	number_of_bedrooms = EXCLUDED.number_of_bedrooms,
	floor_area = EXCLUDED.floor_area,
	missing_fields = EXCLUDED.missing_fields,
	scraped_at = NOW();
`

// Postgres writes records into the listings table.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the listings table if needed.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveBatch upserts recs keyed by URL and returns how many rows were sent.
func (p *Postgres) SaveBatch(ctx context.Context, recs []listing.Record) (int, error) {
	batch := buildBatch(recs)
	if batch.Len() == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("batch upsert failed at row %d: %w", i, err)
		}
	}

	logger.Debug("saved listings", "rows", batch.Len())
	return batch.Len(), nil
}

func buildBatch(recs []listing.Record) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		if rec.Link() == "" {
			continue
		}
		r := toRow(rec)
		batch.Queue(upsertSQL,
			r.URL,
			r.Title,
			r.Region,
			r.Address,
			r.Description,
			r.PhotosLinks,
			r.Price,
			r.Bedrooms,
			r.FloorArea,
			r.MissingFields,
		)
	}
	return batch
}

// row is a record flattened to column values. Missing numerics are NULL;
// missing text columns hold the sentinel text.
type row struct {
	URL           string
	Title         string
	Region        string
	Address       string
	Description   string
	PhotosLinks   string
	Price         *float64
	Bedrooms      *int64
	FloorArea     *float64
	MissingFields []string
}

func toRow(rec listing.Record) row {
	get := func(name string) listing.Value {
		v, _ := rec.Get(name)
		return v
	}
	number := func(name string) *float64 {
		if f, ok := get(name).Number(); ok {
			return &f
		}
		return nil
	}

	r := row{
		URL:           rec.Link(),
		Title:         get(listing.FieldTitle).String(),
		Region:        get(listing.FieldRegion).String(),
		Address:       get(listing.FieldAddress).String(),
		Description:   get(listing.FieldDescription).String(),
		PhotosLinks:   get(listing.FieldPhotosLinks).String(),
		Price:         number(listing.FieldPrice),
		FloorArea:     number(listing.FieldFloorArea),
		MissingFields: []string{},
	}
	if n, ok := get(listing.FieldNumberOfBedrooms).Integer(); ok {
		r.Bedrooms = &n
	}

	for _, name := range listing.FieldNames {
		if get(name).IsMissing() {
			r.MissingFields = append(r.MissingFields, name)
		}
	}
	return r
}
