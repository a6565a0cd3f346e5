package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

// writeKeyed writes items with at most limit keys in flight. Items sharing a
// key are written in batch order by one goroutine, so two writes for the same
// key never race. The first failure cancels the remaining writes.
func writeKeyed[T any](
	ctx context.Context,
	limit int,
	items []T,
	key func(T) string,
	write func(context.Context, T) (domain.Outcome, error),
	result *domain.LoadResult,
) error {
	var order []string
	groups := make(map[string][]T, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}

	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	for _, k := range order {
		group := groups[k]
		g.Go(func() error {
			for _, it := range group {
				outcome, err := write(gctx, it)
				if err != nil {
					return err
				}
				mu.Lock()
				result.Record(outcome)
				mu.Unlock()
			}
			return nil
		})
	}
	return g.Wait()
}
