package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

const (
	offenseNamesQuery  = `SELECT name FROM sentencing_offenses WHERE state_code = $1 ORDER BY name`
	offenseInsertQuery = `
		INSERT INTO sentencing_offenses (name, state_code, is_sex_offense, is_violent_offense)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (state_code, name) DO NOTHING`
	offenseListQuery = `
		SELECT name, state_code, is_sex_offense, is_violent_offense
		  FROM sentencing_offenses
		 WHERE state_code = $1
		 ORDER BY name`
	// offenseGetOrCreateQuery returns the id of state $2's offense named $1,
	// creating it when missing.
	offenseGetOrCreateQuery = `
		WITH created AS (
			INSERT INTO sentencing_offenses (name, state_code)
			VALUES ($1, $2)
			ON CONFLICT (state_code, name) DO NOTHING
			RETURNING id
		)
		SELECT id FROM created
		UNION ALL
		SELECT id FROM sentencing_offenses WHERE state_code = $2 AND name = $1
		LIMIT 1`
	offenseIDQuery = `SELECT id FROM sentencing_offenses WHERE state_code = $2 AND name = $1`
)

type OffenseRepository struct{}

func NewOffenseRepository() domain.OffenseRepository {
	return &OffenseRepository{}
}

func (r *OffenseRepository) Names(ctx context.Context, state domain.StateCode) ([]string, error) {
	names, err := queryStrings(ctx, offenseNamesQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "offense names")
	}
	return names, nil
}

func (r *OffenseRepository) InsertIfAbsent(ctx context.Context, o domain.Offense) (domain.Outcome, error) {
	n, err := exec(ctx, offenseInsertQuery, o.Name, string(o.StateCode), o.IsSexOffense, o.IsViolentOffense)
	if err != nil {
		return 0, errors.Wrapf(err, "insert offense %q", o.Name)
	}
	if n == 0 {
		return domain.OutcomeSkipped, nil
	}
	return domain.OutcomeCreated, nil
}

func (r *OffenseRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Offense, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, offenseListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list offenses")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Offense, error) {
		var o domain.Offense
		var stateCode string
		err := row.Scan(&o.Name, &stateCode, &o.IsSexOffense, &o.IsViolentOffense)
		o.StateCode = domain.StateCode(stateCode)
		return o, err
	})
}

func offenseID(ctx context.Context, name string, state domain.StateCode) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRow(ctx, offenseGetOrCreateQuery, name, string(state)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent insert committed after this statement's snapshot was
		// taken; a fresh statement sees it.
		err = tx.QueryRow(ctx, offenseIDQuery, name, string(state)).Scan(&id)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get or create offense %q", name)
	}
	return id, nil
}
