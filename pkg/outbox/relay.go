package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sentencing-etl/pkg/repo"
)

type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	dispatcher Dispatcher
	opts       RelayOptions

	label   string
	lockKey int64
	m       *metrics
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	label := tableLabel(table)
	return &Relay{
		pool:       pool,
		table:      table,
		dispatcher: dispatcher,
		opts:       opts,
		label:      label,
		lockKey:    advisoryLockKey("outbox:" + label),
		m:          getMetrics(),
	}, nil
}

// Run polls until ctx is done. With SingleActive only the instance holding
// the table's advisory lock delivers; the others wait for it to go away.
func (r *Relay) Run(ctx context.Context) error {
	if !r.opts.SingleActive {
		r.m.relayLeader.WithLabelValues(r.label).Set(1)
		return r.loop(ctx, r.pool)
	}

	for {
		conn, leader, err := r.acquireLeader(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.opts.Logger.WithError(err).Warn("outbox: leader election failed")
		}
		if leader {
			r.m.relayLeader.WithLabelValues(r.label).Set(1)
			r.opts.Logger.WithField("table", r.label).Info("outbox: relay became leader")
			err = r.loop(ctx, conn)
			r.releaseLeader(conn)
			r.m.relayLeader.WithLabelValues(r.label).Set(0)
			return err
		}
		r.m.relayLeader.WithLabelValues(r.label).Set(0)
		if err := sleep(ctx, r.opts.PollInterval); err != nil {
			return err
		}
	}
}

// ProcessOnce claims one batch of due messages and delivers them. It returns
// the number of messages claimed.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	return r.processOnce(ctx, r.pool)
}

func (r *Relay) loop(ctx context.Context, db repo.Tx) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if err := r.observeQueueDepth(ctx, db); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		// Keep draining while full batches come back.
		for {
			n, err := r.processOnce(ctx, db)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
				break
			}
			if n < r.opts.BatchSize {
				break
			}
		}
	}
}

type claimed struct {
	ID          uuid.UUID
	Topic       string
	Payload     []byte
	EventID     uuid.UUID
	Sequence    int64
	Attempts    int
	TraceParent string
	TraceState  string
}

func (c claimed) fields(table string) logrus.Fields {
	return logrus.Fields{
		"table":    table,
		"topic":    c.Topic,
		"event_id": c.EventID.String(),
		"sequence": c.Sequence,
		"attempts": c.Attempts,
	}
}

func (r *Relay) processOnce(ctx context.Context, db repo.Tx) (int, error) {
	now := time.Now()
	batch, err := r.claim(ctx, db, now, now.Add(-r.opts.LockTTL))
	if err != nil {
		return 0, err
	}

	for _, c := range batch {
		if ctx.Err() != nil {
			// Unprocessed claims become visible again after LockTTL.
			return len(batch), ctx.Err()
		}
		r.deliver(ctx, db, c)
	}
	return len(batch), nil
}

func (r *Relay) deliver(ctx context.Context, db repo.Tx, c claimed) {
	dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
	start := time.Now()
	err := r.dispatcher.Dispatch(dispatchCtx, Delivery{
		Meta: Meta{
			Table:       r.table,
			Topic:       c.Topic,
			EventID:     c.EventID,
			Sequence:    c.Sequence,
			Attempts:    c.Attempts,
			TraceParent: c.TraceParent,
			TraceState:  c.TraceState,
		},
		Payload: c.Payload,
	})
	cancel()
	latency := time.Since(start)
	log := r.opts.Logger.WithFields(c.fields(r.label))

	if err == nil {
		r.record(c.Topic, "success", latency)
		if err := r.update(ctx, db, `published_at = now(), locked_at = NULL, last_error = NULL`, c.ID); err != nil {
			log.WithError(err).Warn("outbox: ack failed")
		}
		return
	}

	r.record(c.Topic, "failure", latency)
	lastErr := truncateError(err, r.opts.LastErrorMaxLen)

	if c.Attempts >= r.opts.MaxAttempts {
		r.m.deadTotal.WithLabelValues(r.label, c.Topic).Inc()
		log.WithError(err).Error("outbox: message is dead")
		if err := r.update(ctx, db, `locked_at = NULL, last_error = $2`, c.ID, lastErr); err != nil {
			log.WithError(err).Warn("outbox: dead update failed")
		}
		return
	}

	next := time.Now().Add(backoff(c.Attempts, r.opts.BaseBackoff, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
	log.WithError(err).WithField("retry_at", next).Warn("outbox: delivery failed")
	if err := r.update(ctx, db, `locked_at = NULL, last_error = $2, available_at = $3`, c.ID, lastErr, next); err != nil {
		log.WithError(err).Warn("outbox: nack failed")
	}
}

// claim locks up to BatchSize due rows and bumps their attempt counters in
// one statement. Rows locked by a relay that died become due after LockTTL.
func (r *Relay) claim(ctx context.Context, db repo.Tx, now, lockCutoff time.Time) ([]claimed, error) {
	q := fmt.Sprintf(
		`WITH due AS (
		   SELECT id
		     FROM %[1]s
		    WHERE published_at IS NULL
		      AND available_at <= $1
		      AND attempts < $2
		      AND (locked_at IS NULL OR locked_at < $3)
		    ORDER BY available_at, sequence
		    LIMIT $4
		    FOR UPDATE SKIP LOCKED
		 )
		 UPDATE %[1]s AS o
		    SET locked_at = $1, attempts = o.attempts + 1
		   FROM due
		  WHERE o.id = due.id
		RETURNING o.id, o.topic, o.payload, o.event_id, o.sequence, o.attempts,
		          coalesce(o.trace_parent, ''), coalesce(o.trace_state, '')`,
		r.table.Sanitize(),
	)
	rows, err := db.Query(ctx, q, now, r.opts.MaxAttempts, lockCutoff, r.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox claim: %w", err)
	}
	defer rows.Close()

	var out []claimed
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.ID, &c.Topic, &c.Payload, &c.EventID, &c.Sequence, &c.Attempts, &c.TraceParent, &c.TraceState); err != nil {
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}
	// UPDATE ... RETURNING does not keep the CTE order.
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *Relay) update(ctx context.Context, db repo.Tx, set string, id uuid.UUID, args ...any) error {
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND published_at IS NULL`, r.table.Sanitize(), set)
	_, err := db.Exec(ctx, q, append([]any{id}, args...)...)
	return err
}

func (r *Relay) observeQueueDepth(ctx context.Context, db repo.Tx) error {
	q := fmt.Sprintf(
		`SELECT count(*) FILTER (WHERE attempts < $1), count(*) FILTER (WHERE attempts >= $1)
		   FROM %s
		  WHERE published_at IS NULL`,
		r.table.Sanitize(),
	)
	var pending, dead int64
	if err := db.QueryRow(ctx, q, r.opts.MaxAttempts).Scan(&pending, &dead); err != nil {
		return fmt.Errorf("outbox queue depth: %w", err)
	}
	r.m.pending.WithLabelValues(r.label).Set(float64(pending))
	r.m.dead.WithLabelValues(r.label).Set(float64(dead))
	return nil
}

func (r *Relay) record(topic, result string, latency time.Duration) {
	r.m.dispatchTotal.WithLabelValues(r.label, topic, result).Inc()
	r.m.dispatchLatency.WithLabelValues(r.label, topic, result).Observe(latency.Seconds())
}

// acquireLeader returns a held connection when this instance won the lock.
func (r *Relay) acquireLeader(ctx context.Context) (*pgxpool.Conn, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return conn, true, nil
}

func (r *Relay) releaseLeader(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey); err != nil {
		r.opts.Logger.WithError(err).Warn("outbox: advisory unlock failed")
	}
	conn.Release()
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
