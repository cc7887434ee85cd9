// Package postgres provides the durable price store backed by PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/varunrout/energy-market-tracker/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS prices (
    id         BIGSERIAL PRIMARY KEY,
    source     TEXT        NOT NULL,
    ts         TIMESTAMPTZ NOT NULL,
    price      DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (source, ts)
);
CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices (ts);
`

// PricesRepo implements store.PriceStore on PostgreSQL via sqlx.
type PricesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens the database, verifies connectivity and ensures the schema.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*PricesRepo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	repo := NewPricesRepo(db, timeout)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPricesRepo wraps an existing connection.
func NewPricesRepo(db *sqlx.DB, timeout time.Duration) *PricesRepo {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PricesRepo{db: db, timeout: timeout}
}

// EnsureSchema creates the prices table if it does not exist.
func (r *PricesRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *PricesRepo) Close() error { return r.db.Close() }

// SavePrices upserts the series in one transaction. Re-fetching the same
// day revises existing rows rather than duplicating them.
func (r *PricesRepo) SavePrices(ctx context.Context, series market.PriceSeries) (int, error) {
	if series.Empty() {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (source, ts, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (source, ts) DO UPDATE SET price = EXCLUDED.price`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Source, p.Time.UTC(), p.Price); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return 0, fmt.Errorf("failed to upsert price (pq %s): %w", pqErr.Code, err)
			}
			return 0, fmt.Errorf("failed to upsert price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prices: %w", err)
	}
	return len(series.Points), nil
}

// PricesBetween returns points in [from, to) ordered by timestamp. Points
// present from several sources collapse to one row per timestamp, with the
// most recently written source winning.
func (r *PricesRepo) PricesBetween(ctx context.Context, from, to time.Time) ([]market.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT ON (ts) ts, price
		FROM prices
		WHERE ts >= $1 AND ts < $2
		ORDER BY ts ASC, created_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var points []market.PricePoint
	for rows.Next() {
		var p market.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}
