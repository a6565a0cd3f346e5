//go:build integration

package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	failTopic string
	calls     []Delivery
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg Delivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, msg)
	if msg.Meta.Topic == d.failTopic {
		return errors.New("handle_import returned 500")
	}
	return nil
}

func newTestTable(t *testing.T) (*pgxpool.Pool, pgx.Identifier) {
	t.Helper()
	dsn := os.Getenv("SENTENCING_TEST_DSN")
	if dsn == "" {
		t.Skip("SENTENCING_TEST_DSN is not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	table, err := ParseIdentifier("public.outbox_it_" + uuid.NewString()[:8])
	require.NoError(t, err)

	_, err = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE %s (
  id           UUID        NOT NULL DEFAULT gen_random_uuid() PRIMARY KEY,
  topic        TEXT        NOT NULL,
  payload      JSONB       NOT NULL,
  event_id     UUID        NOT NULL UNIQUE,
  sequence     BIGSERIAL   NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  published_at TIMESTAMPTZ NULL,
  attempts     INT         NOT NULL DEFAULT 0,
  available_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  locked_at    TIMESTAMPTZ NULL,
  last_error   TEXT        NULL,
  trace_parent TEXT        NULL,
  trace_state  TEXT        NULL
)`, table.Sanitize()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table.Sanitize())
	})
	return pool, table
}

func TestRelay_Integration_DeliversAndDeadLetters(t *testing.T) {
	pool, table := newTestTable(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := NewPublisher()
	failEvent, okEvent := uuid.New(), uuid.New()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = p.Enqueue(ctx, tx, table, Message{Topic: "import.fail", EventID: failEvent, Payload: []byte(`{"bucketId":"b","objectId":"US_ID/x.json"}`)})
	require.NoError(t, err)
	_, err = p.Enqueue(ctx, tx, table, Message{Topic: "import.ok", EventID: okEvent, Payload: []byte(`{"bucketId":"b","objectId":"US_ID/y.json"}`)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	t.Run("enqueue is idempotent by event_id", func(t *testing.T) {
		evt := uuid.New()
		seq1, err := p.Enqueue(ctx, pool, table, Message{Topic: "import.dup", EventID: evt, Payload: []byte(`{}`)})
		require.NoError(t, err)
		seq2, err := p.Enqueue(ctx, pool, table, Message{Topic: "import.dup", EventID: evt, Payload: []byte(`{}`)})
		require.NoError(t, err)
		require.Equal(t, seq1, seq2)
		_, err = pool.Exec(ctx, "DELETE FROM "+table.Sanitize()+" WHERE event_id = $1", evt)
		require.NoError(t, err)
	})

	dispatcher := &recordingDispatcher{failTopic: "import.fail"}
	relay, err := NewRelay(pool, table, dispatcher, RelayOptions{
		BatchSize:              10,
		MaxAttempts:            1,
		ObserveQueueDepthEvery: time.Hour,
	})
	require.NoError(t, err)

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, dispatcher.calls, 2)
	require.Less(t, dispatcher.calls[0].Meta.Sequence, dispatcher.calls[1].Meta.Sequence)
	require.Equal(t, 1, dispatcher.calls[0].Meta.Attempts)

	var published bool
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT published_at IS NOT NULL FROM "+table.Sanitize()+" WHERE event_id = $1", okEvent,
	).Scan(&published))
	require.True(t, published)

	var attempts int
	var lastErr *string
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT attempts, last_error FROM "+table.Sanitize()+" WHERE event_id = $1", failEvent,
	).Scan(&attempts, &lastErr))
	require.Equal(t, 1, attempts)
	require.NotNil(t, lastErr)
	require.Contains(t, *lastErr, "500")

	// The dead message is never claimed again.
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	cleaner, err := NewCleaner(pool, table, CleanerOptions{Retention: time.Nanosecond, DeadRetention: time.Nanosecond, MaxAttempts: 1})
	require.NoError(t, err)
	deleted, err := cleaner.CleanOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)
}

func TestRelay_Integration_RetriesWithBackoff(t *testing.T) {
	pool, table := newTestTable(t)
	ctx := context.Background()

	_, err := NewPublisher().Enqueue(ctx, pool, table, Message{Topic: "import.fail", EventID: uuid.New(), Payload: []byte(`{}`)})
	require.NoError(t, err)

	relay, err := NewRelay(pool, table, &recordingDispatcher{failTopic: "import.fail"}, RelayOptions{
		MaxAttempts: 5,
		BaseBackoff: time.Hour,
		MaxBackoff:  time.Hour,
	})
	require.NoError(t, err)

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Rescheduled an hour out, so the next poll finds nothing due.
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	var availableAt time.Time
	require.NoError(t, pool.QueryRow(ctx, "SELECT available_at FROM "+table.Sanitize()).Scan(&availableAt))
	require.WithinDuration(t, time.Now().Add(time.Hour), availableAt, 5*time.Minute)
}
