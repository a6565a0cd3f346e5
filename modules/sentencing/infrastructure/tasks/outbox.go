package tasks

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/outbox"
	"github.com/iota-uz/sentencing-etl/pkg/repo"
)

// OutboxScheduler stores tasks in the outbox table. The relay delivers them
// to the handle endpoint.
type OutboxScheduler struct {
	db        repo.Tx
	table     pgx.Identifier
	publisher outbox.Publisher
}

// NewOutboxScheduler enqueues on the transaction in ctx when there is one and
// on db otherwise.
func NewOutboxScheduler(db repo.Tx, table pgx.Identifier, publisher outbox.Publisher) *OutboxScheduler {
	if publisher == nil {
		publisher = outbox.NewPublisher()
	}
	return &OutboxScheduler{db: db, table: table, publisher: publisher}
}

func (s *OutboxScheduler) Schedule(ctx context.Context, bucket, object string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		if s.db == nil {
			return err
		}
		tx = s.db
	}
	payload, err := encode(bucket, object)
	if err != nil {
		return err
	}
	seq, err := s.publisher.Enqueue(ctx, tx, s.table, outbox.Message{
		Topic:   Topic,
		EventID: uuid.New(),
		Payload: payload,
	})
	if err != nil {
		return errors.Wrapf(err, "enqueue import of %s/%s", bucket, object)
	}
	composables.UseLogger(ctx).WithField("sequence", seq).Debug("import task enqueued")
	return nil
}
