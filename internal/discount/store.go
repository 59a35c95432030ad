package discount

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

const discountColumns = `code, title, enabled, application, priority, kind, filters, params`

// Store reads and writes discount definitions in Postgres. Filters and params
// are stored as jsonb in the exact shape the pricing engine consumes.
type Store struct {
	Pool *pgxpool.Pool
}

// List returns every definition ordered for stable admin listings.
func (s *Store) List(ctx context.Context) ([]pricing.Discount, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+discountColumns+` FROM discounts ORDER BY priority, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// ListEnabled returns the definitions eligible for pricing runs.
func (s *Store) ListEnabled(ctx context.Context) ([]pricing.Discount, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE enabled ORDER BY priority, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// GetByCode fetches one definition. Returns pgx.ErrNoRows when absent.
func (s *Store) GetByCode(ctx context.Context, code string) (pricing.Discount, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE code = $1`, code)
	return scanDiscount(row)
}

// Create inserts a new definition. Duplicate codes surface as a pg unique
// violation for the caller to map.
func (s *Store) Create(ctx context.Context, d pricing.Discount) error {
	filters, params, err := encodeDefinition(d)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO discounts (code, title, enabled, application, priority, kind, filters, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.Code, d.Title, d.Enabled, string(d.Application), d.Priority, string(d.Kind), filters, params)
	return err
}

// Update replaces an existing definition keyed by code.
func (s *Store) Update(ctx context.Context, d pricing.Discount) error {
	filters, params, err := encodeDefinition(d)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE discounts SET
			title = $2, enabled = $3, application = $4, priority = $5,
			kind = $6, filters = $7, params = $8, updated_at = now()
		WHERE code = $1`,
		d.Code, d.Title, d.Enabled, string(d.Application), d.Priority, string(d.Kind), filters, params)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetEnabled flips a definition's enabled flag.
func (s *Store) SetEnabled(ctx context.Context, code string, enabled bool) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE discounts SET enabled = $2, updated_at = now() WHERE code = $1`, code, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodeDefinition(d pricing.Discount) (filters, params []byte, err error) {
	filters, err = json.Marshal(d.Filters)
	if err != nil {
		return nil, nil, fmt.Errorf("encode filters: %w", err)
	}
	params, err = json.Marshal(d.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("encode params: %w", err)
	}
	return filters, params, nil
}

func scanDiscount(row pgx.Row) (pricing.Discount, error) {
	var (
		d           pricing.Discount
		application string
		kind        string
		filters     []byte
		params      []byte
	)
	err := row.Scan(&d.Code, &d.Title, &d.Enabled, &application, &d.Priority, &kind, &filters, &params)
	if err != nil {
		return pricing.Discount{}, err
	}
	d.Application = pricing.ApplicationMode(application)
	d.Kind = pricing.DiscountKind(kind)
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &d.Filters); err != nil {
			return pricing.Discount{}, fmt.Errorf("decode filters for %s: %w", d.Code, err)
		}
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &d.Params); err != nil {
			return pricing.Discount{}, fmt.Errorf("decode params for %s: %w", d.Code, err)
		}
	}
	return d, nil
}

func collectDiscounts(rows pgx.Rows) ([]pricing.Discount, error) {
	var out []pricing.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
