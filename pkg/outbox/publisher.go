package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/propagation"

	"github.com/iota-uz/sentencing-etl/pkg/repo"
)

type Publisher interface {
	// Enqueue stores msg in table using tx. Enqueueing the same EventID twice
	// keeps the first row and returns its sequence.
	Enqueue(ctx context.Context, tx repo.Tx, table pgx.Identifier, msg Message) (sequence int64, err error)
}

type publisher struct {
	m *metrics
}

func NewPublisher() Publisher {
	return &publisher{m: getMetrics()}
}

func (p *publisher) Enqueue(ctx context.Context, tx repo.Tx, table pgx.Identifier, msg Message) (int64, error) {
	switch {
	case msg.EventID == uuid.Nil:
		return 0, invalidConfig("event_id is required")
	case msg.Topic == "":
		return 0, invalidConfig("topic is required")
	case len(table) == 0:
		return 0, invalidConfig("table is required")
	}

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)

	q := fmt.Sprintf(
		`INSERT INTO %s (topic, payload, event_id, trace_parent, trace_state)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		 ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		 RETURNING sequence`,
		table.Sanitize(),
	)
	var sequence int64
	err := tx.QueryRow(ctx, q, msg.Topic, msg.Payload, msg.EventID, carrier.Get("traceparent"), carrier.Get("tracestate")).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("outbox enqueue: %w", err)
	}

	p.m.enqueueTotal.WithLabelValues(tableLabel(table), msg.Topic).Inc()
	return sequence, nil
}
