package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

const (
	clientUpsertQuery = `
		INSERT INTO sentencing_clients (
			external_id, pseudonymized_id, state_code, full_name, gender,
			is_gender_locked, county, birth_date, district
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (state_code, external_id) DO UPDATE SET
			pseudonymized_id = EXCLUDED.pseudonymized_id,
			full_name        = EXCLUDED.full_name,
			gender           = CASE WHEN EXCLUDED.is_gender_locked THEN EXCLUDED.gender ELSE sentencing_clients.gender END,
			is_gender_locked = EXCLUDED.is_gender_locked,
			county           = EXCLUDED.county,
			birth_date       = EXCLUDED.birth_date,
			district         = EXCLUDED.district,
			updated_at       = now()
		RETURNING (xmax = 0)`
	clientLinkCasesQuery = `
		UPDATE sentencing_cases SET client_id = $1, updated_at = now()
		 WHERE state_code = $3 AND external_id = ANY($2) AND client_id IS DISTINCT FROM $1`
	clientExistingQuery = `SELECT external_id FROM sentencing_clients WHERE state_code = $1 AND external_id = ANY($2)`
	clientDeleteQuery   = `DELETE FROM sentencing_clients WHERE state_code = $1 AND NOT (external_id = ANY($2))`
	clientListQuery     = `
		SELECT c.external_id, c.pseudonymized_id, c.state_code, c.full_name, c.gender,
		       c.is_gender_locked, c.county, c.birth_date, c.district,
		       coalesce(array_agg(k.external_id ORDER BY k.external_id) FILTER (WHERE k.external_id IS NOT NULL), '{}')
		  FROM sentencing_clients c
		  LEFT JOIN sentencing_cases k ON k.state_code = c.state_code AND k.client_id = c.external_id
		 WHERE c.state_code = $1
		 GROUP BY c.state_code, c.external_id
		 ORDER BY c.external_id`
	clientUnlinkQuery = `
		UPDATE sentencing_cases SET client_id = NULL, updated_at = now()
		 WHERE state_code = $1 AND client_id IS NOT NULL AND NOT (client_id = ANY($2))`
)

type ClientRepository struct{}

func NewClientRepository() domain.ClientRepository {
	return &ClientRepository{}
}

func (r *ClientRepository) Upsert(ctx context.Context, c domain.Client) (domain.Outcome, error) {
	return composables.InTxResult(ctx, func(ctx context.Context) (domain.Outcome, error) {
		tx, err := composables.UseTx(ctx)
		if err != nil {
			return 0, err
		}
		var inserted bool
		if err := tx.QueryRow(ctx, clientUpsertQuery,
			c.ExternalID,
			c.PseudonymizedID,
			string(c.StateCode),
			c.FullName,
			string(c.Gender),
			c.IsGenderLocked,
			c.County,
			c.BirthDate,
			c.District,
		).Scan(&inserted); err != nil {
			return 0, errors.Wrapf(err, "upsert client %s", c.ExternalID)
		}
		if len(c.CaseIDs) > 0 {
			if _, err := tx.Exec(ctx, clientLinkCasesQuery, c.ExternalID, c.CaseIDs, string(c.StateCode)); err != nil {
				return 0, errors.Wrapf(err, "link cases to client %s", c.ExternalID)
			}
		}
		return outcome(inserted), nil
	})
}

func (r *ClientRepository) ExistingIDs(ctx context.Context, state domain.StateCode, ids []string) ([]string, error) {
	out, err := queryStrings(ctx, clientExistingQuery, string(state), nonNil(ids))
	if err != nil {
		return nil, errors.Wrap(err, "existing client ids")
	}
	return out, nil
}

func (r *ClientRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []string) (int64, error) {
	n, err := deleteUnlinking(ctx, clientUnlinkQuery, clientDeleteQuery, string(state), nonNil(keep))
	if err != nil {
		return 0, errors.Wrap(err, "delete stale clients")
	}
	return n, nil
}

func (r *ClientRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Client, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, clientListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list clients")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Client, error) {
		var (
			c         domain.Client
			stateCode string
			gender    string
			birthDate time.Time
		)
		err := row.Scan(
			&c.ExternalID, &c.PseudonymizedID, &stateCode, &c.FullName, &gender,
			&c.IsGenderLocked, &c.County, &birthDate, &c.District, &c.CaseIDs,
		)
		c.StateCode = domain.StateCode(stateCode)
		c.Gender = domain.Gender(gender)
		c.BirthDate = birthDate.UTC()
		return c, err
	})
}
