package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner prunes delivered messages older than Retention and, when
// DeadRetention is set, dead messages older than that.
type Cleaner struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	opts  CleanerOptions
	label string
}

func NewCleaner(pool *pgxpool.Pool, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if opts.DeadRetention > 0 && opts.MaxAttempts <= 0 {
		return nil, invalidConfig("dead retention requires MaxAttempts > 0")
	}
	opts.setDefaults()
	return &Cleaner{pool: pool, table: table, opts: opts, label: tableLabel(table)}, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		n, err := c.CleanOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).WithField("table", c.label).Warn("outbox: cleaner tick failed")
			continue
		}
		if n > 0 {
			c.opts.Logger.WithField("table", c.label).WithField("deleted", n).Debug("outbox: cleaned")
		}
	}
}

// CleanOnce deletes expired rows and returns how many were removed.
func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	now := time.Now()
	name := c.table.Sanitize()

	tag, err := c.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NOT NULL AND published_at < $1`, name),
		now.Add(-c.opts.Retention),
	)
	if err != nil {
		return 0, fmt.Errorf("outbox cleaner delete published: %w", err)
	}
	deleted := tag.RowsAffected()

	if c.opts.DeadRetention > 0 {
		tag, err := c.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NULL AND attempts >= $1 AND created_at < $2`, name),
			c.opts.MaxAttempts, now.Add(-c.opts.DeadRetention),
		)
		if err != nil {
			return deleted, fmt.Errorf("outbox cleaner delete dead: %w", err)
		}
		deleted += tag.RowsAffected()
	}
	return deleted, nil
}
