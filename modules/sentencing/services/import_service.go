package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// ImportService fetches a resolved import file and runs its loader.
type ImportService struct {
	fetcher ObjectFetcher
}

func NewImportService(fetcher ObjectFetcher) *ImportService {
	return &ImportService{fetcher: fetcher}
}

func (s *ImportService) Import(ctx context.Context, t Target) (domain.LoadResult, error) {
	start := time.Now()
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"bucket": t.Bucket,
		"object": t.Object,
		"entity": t.Entity,
		"state":  t.StateCode,
	})

	result, err := s.run(ctx, t)
	m := metricsSingleton()
	if err != nil {
		m.duration.WithLabelValues(string(t.Entity), "error").Observe(time.Since(start).Seconds())
		logger.WithError(err).Warn("import failed")
		return result, err
	}
	m.duration.WithLabelValues(string(t.Entity), "ok").Observe(time.Since(start).Seconds())
	m.records.WithLabelValues(string(t.Entity), domain.OutcomeCreated.String()).Add(float64(result.Created))
	m.records.WithLabelValues(string(t.Entity), domain.OutcomeUpdated.String()).Add(float64(result.Updated))
	m.records.WithLabelValues(string(t.Entity), domain.OutcomeSkipped.String()).Add(float64(result.Skipped))
	m.records.WithLabelValues(string(t.Entity), "deleted").Add(float64(result.Deleted))

	logger.WithFields(logrus.Fields{
		"records":  result.Records,
		"created":  result.Created,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
		"deleted":  result.Deleted,
		"orphaned": len(result.Orphaned),
		"duration": time.Since(start),
	}).Info("import finished")
	return result, nil
}

func (s *ImportService) run(ctx context.Context, t Target) (domain.LoadResult, error) {
	if t.Loader == nil {
		return domain.LoadResult{Entity: t.Entity, StateCode: t.StateCode}, errors.Wrapf(domain.ErrUnsupportedObject, "no loader for %s", t.Entity)
	}
	raw, err := s.fetcher.Fetch(ctx, t.Bucket, t.Object)
	if err != nil {
		return domain.LoadResult{Entity: t.Entity, StateCode: t.StateCode}, errors.Wrap(err, "fetch")
	}
	result, err := t.Loader.Load(ctx, t.StateCode, raw)
	if err != nil {
		return result, errors.Wrap(err, "load")
	}
	return result, nil
}
