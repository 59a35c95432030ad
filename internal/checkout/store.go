package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Order is a priced checkout persisted with its full pricing breakdown. The
// breakdown is stored verbatim so the charged amount can always be audited
// against the discount stack that produced it.
type Order struct {
	ID         uuid.UUID                 `json:"id"`
	CustomerID string                    `json:"customer_id,omitempty"`
	Email      string                    `json:"email,omitempty"`
	Currency   string                    `json:"currency"`
	Status     string                    `json:"status"`
	Shipping   pricing.ShippingSelection `json:"shipping"`
	Pricing    pricing.PricingResult     `json:"pricing"`
	Total      float64                   `json:"total"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// Store persists orders in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Insert writes a new order and returns it with its generated id.
func (s *Store) Insert(ctx context.Context, o Order) (Order, error) {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return Order{}, fmt.Errorf("encode shipping: %w", err)
	}
	breakdown, err := json.Marshal(o.Pricing)
	if err != nil {
		return Order{}, fmt.Errorf("encode pricing: %w", err)
	}
	var (
		id pgtype.UUID
		at pgtype.Timestamptz
	)
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO orders (customer_id, email, currency, status, shipping, pricing, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		o.CustomerID, o.Email, o.Currency, o.Status, shipping, breakdown, o.Total)
	if err := row.Scan(&id, &at); err != nil {
		return Order{}, err
	}
	o.ID = uuid.UUID(id.Bytes)
	o.CreatedAt = at.Time
	return o, nil
}

// Get fetches one order by id. Returns pgx.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, orderID uuid.UUID) (Order, error) {
	var (
		o         Order
		id        pgtype.UUID
		at        pgtype.Timestamptz
		shipping  []byte
		breakdown []byte
	)
	row := s.Pool.QueryRow(ctx, `
		SELECT id, customer_id, email, currency, status, shipping, pricing, total, created_at
		FROM orders WHERE id = $1`,
		pgtype.UUID{Bytes: orderID, Valid: true})
	err := row.Scan(&id, &o.CustomerID, &o.Email, &o.Currency, &o.Status, &shipping, &breakdown, &o.Total, &at)
	if err != nil {
		return Order{}, err
	}
	o.ID = uuid.UUID(id.Bytes)
	o.CreatedAt = at.Time
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
			return Order{}, fmt.Errorf("decode shipping: %w", err)
		}
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &o.Pricing); err != nil {
			return Order{}, fmt.Errorf("decode pricing: %w", err)
		}
	}
	return o, nil
}
