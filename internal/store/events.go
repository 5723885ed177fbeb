package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// MarkEventProcessed records an event id inside the transaction so the
// mutation it triggered and its dedup marker commit together
func (t *pgTx) MarkEventProcessed(ctx context.Context, eventID, eventType string) (_ bool, err error) {
	ctx, span := startSpan(ctx, "store.MarkEventProcessed",
		attribute.String("event.id", eventID),
		attribute.String("event.type", eventType))
	defer func() { endSpan(span, err) }()

	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
