package db

import "context"

// InsertDomainEventParams carries one emitted event.
type InsertDomainEventParams struct {
	Topic       string
	AggregateID string
	Payload     []byte
}

// InsertDomainEvent records an emitted domain event.
func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	var ev DomainEvent
	err := q.db.QueryRow(ctx, `INSERT INTO domain_events (topic, aggregate_id, payload) VALUES ($1, $2, $3::jsonb)
RETURNING id, topic, aggregate_id, payload, created_at`, arg.Topic, arg.AggregateID, arg.Payload,
	).Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
