package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEventSQL = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// PGStore persists domain events in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InsertEvent appends the event to the domain_events table.
func (s *PGStore) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	var (
		id       pgtype.UUID
		gotTopic string
		agg      pgtype.UUID
		body     []byte
		at       pgtype.Timestamptz
	)
	row := s.Pool.QueryRow(ctx, insertEventSQL, topic, pgtype.UUID{Bytes: aggregateID, Valid: true}, payload)
	if err := row.Scan(&id, &gotTopic, &agg, &body, &at); err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.UUID(id.Bytes),
		Topic:       gotTopic,
		AggregateID: uuid.UUID(agg.Bytes),
		Payload:     body,
		OccurredAt:  at.Time,
	}, nil
}
