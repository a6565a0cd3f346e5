// Package outbox is a transactional outbox for import tasks.
//
// Producers enqueue a Message inside their own transaction. A Relay polls the
// table, claims due rows with FOR UPDATE SKIP LOCKED and hands each one to a
// Dispatcher. Failed deliveries are retried with exponential backoff until
// MaxAttempts, after which the row stays in the table as dead. A Cleaner
// prunes delivered rows.
package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is the unit stored in the outbox table.
type Message struct {
	Topic   string
	EventID uuid.UUID
	Payload json.RawMessage
}

// Meta describes one delivery attempt of a stored message.
type Meta struct {
	Table    pgx.Identifier
	Topic    string
	EventID  uuid.UUID
	Sequence int64
	// Attempts counts this delivery, so the first attempt is 1.
	Attempts int

	// W3C trace context captured at enqueue time.
	TraceParent string
	TraceState  string
}

type Delivery struct {
	Meta    Meta
	Payload json.RawMessage
}

type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, d Delivery) error

func (f DispatcherFunc) Dispatch(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}
