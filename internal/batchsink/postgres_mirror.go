package batchsink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// PostgresMirror optionally writes flushed batches into a Postgres table
// alongside the S3 NDJSON object, gated by PG_DSN (SPEC_FULL.md §6).
// Adapted from the teacher's PostgresRepository: prepared-statement insert
// inside a single transaction per batch, upserting on listing_id instead
// of url.
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror opens a Postgres connection pool for dsn.
func NewPostgresMirror(dsn string) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres_mirror: open: %w", err)
	}
	return &PostgresMirror{db: db}, nil
}

// WriteBatch inserts records in a single transaction using a prepared
// statement, upserting on listing_id.
func (m *PostgresMirror) WriteBatch(ctx context.Context, records []*model.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres_mirror: begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			listing_id, url, ts, content_hash, parser_used, confidence,
			price, beds, baths, sqft, lot_size_sqft,
			address_street, address_city, address_state, address_zip,
			property_type, year_built, agent_name, brokerage_name, property_description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (listing_id) DO UPDATE SET
			url = EXCLUDED.url,
			ts = EXCLUDED.ts,
			content_hash = EXCLUDED.content_hash,
			parser_used = EXCLUDED.parser_used,
			confidence = EXCLUDED.confidence,
			price = EXCLUDED.price,
			beds = EXCLUDED.beds,
			baths = EXCLUDED.baths,
			sqft = EXCLUDED.sqft,
			lot_size_sqft = EXCLUDED.lot_size_sqft,
			address_street = EXCLUDED.address_street,
			address_city = EXCLUDED.address_city,
			address_state = EXCLUDED.address_state,
			address_zip = EXCLUDED.address_zip,
			property_type = EXCLUDED.property_type,
			year_built = EXCLUDED.year_built,
			agent_name = EXCLUDED.agent_name,
			brokerage_name = EXCLUDED.brokerage_name,
			property_description = EXCLUDED.property_description
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("postgres_mirror: prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ListingID, r.URL, r.TS, r.ContentHash, r.ParserUsed, r.Confidence,
			r.Price, r.Beds, r.Baths, r.SqFt, r.LotSizeSqFt,
			r.AddressStreet, r.AddressCity, r.AddressState, r.AddressZip,
			r.PropertyType, r.YearBuilt, r.AgentName, r.BrokerageName, r.PropertyDescription,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("postgres_mirror: exec insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres_mirror: commit tx: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (m *PostgresMirror) Close() error {
	return m.db.Close()
}
