package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is a sellable catalog entry. Price is expressed in major currency
// units; collections and tags drive discount targeting.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Handle      string    `json:"handle"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Collections []string  `json:"collections"`
	Tags        []string  `json:"tags"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const productColumns = `id, handle, title, price, collections, tags, enabled, updated_at`

// Store reads and writes products in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// GetByHandle fetches a single product. Returns pgx.ErrNoRows when absent.
func (s *Store) GetByHandle(ctx context.Context, handle string) (Product, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE handle = $1`, handle)
	return scanProduct(row)
}

// ListByHandles fetches all products matching the given handles in one round trip.
func (s *Store) ListByHandles(ctx context.Context, handles []string) ([]Product, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE handle = ANY($1)`, handles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// List pages through the catalog ordered by handle.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY handle LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Upsert inserts or replaces a product keyed by handle.
func (s *Store) Upsert(ctx context.Context, p Product) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO products (handle, title, price, collections, tags, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (handle) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			collections = EXCLUDED.collections,
			tags = EXCLUDED.tags,
			enabled = EXCLUDED.enabled,
			updated_at = now()`,
		p.Handle, p.Title, p.Price, p.Collections, p.Tags, p.Enabled)
	return err
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p  Product
		id pgtype.UUID
		at pgtype.Timestamptz
	)
	err := row.Scan(&id, &p.Handle, &p.Title, &p.Price, &p.Collections, &p.Tags, &p.Enabled, &at)
	if err != nil {
		return Product{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	p.UpdatedAt = at.Time
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
