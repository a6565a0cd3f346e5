package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// outcome maps the (xmax = 0) flag returned by an upsert.
func outcome(inserted bool) domain.Outcome {
	if inserted {
		return domain.OutcomeCreated
	}
	return domain.OutcomeUpdated
}

// nonNil keeps ANY($n) and unnest($n) from receiving NULL, which matches nothing.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func exec(ctx context.Context, query string, args ...any) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// deleteUnlinking clears case links with unlink, then runs del, in one
// transaction. Both queries take the same args.
func deleteUnlinking(ctx context.Context, unlink, del string, args ...any) (int64, error) {
	return composables.InTxResult(ctx, func(ctx context.Context) (int64, error) {
		if _, err := exec(ctx, unlink, args...); err != nil {
			return 0, err
		}
		return exec(ctx, del, args...)
	})
}

func reportTypePtr(rt *domain.ReportType) *string {
	if rt == nil {
		return nil
	}
	s := string(*rt)
	return &s
}

func genderPtr(g *domain.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

func gendersToStrings(gs []domain.Gender) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, string(g))
	}
	return out
}

func stringsToGenders(ss []string) []domain.Gender {
	out := make([]domain.Gender, 0, len(ss))
	for _, s := range ss {
		out = append(out, domain.Gender(s))
	}
	return out
}
