package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

const (
	staffUpsertQuery = `
		INSERT INTO sentencing_staff (external_id, pseudonymized_id, state_code, full_name, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (state_code, external_id) DO UPDATE SET
			pseudonymized_id = EXCLUDED.pseudonymized_id,
			full_name        = EXCLUDED.full_name,
			email            = EXCLUDED.email,
			updated_at       = now()
		RETURNING (xmax = 0)`
	staffLinkCasesQuery = `
		UPDATE sentencing_cases SET staff_id = $1, updated_at = now()
		 WHERE state_code = $3 AND external_id = ANY($2) AND staff_id IS DISTINCT FROM $1`
	staffExistingQuery = `SELECT external_id FROM sentencing_staff WHERE state_code = $1 AND external_id = ANY($2)`
	staffDeleteQuery   = `DELETE FROM sentencing_staff WHERE state_code = $1 AND NOT (external_id = ANY($2))`
	staffListQuery     = `
		SELECT s.external_id, s.pseudonymized_id, s.state_code, s.full_name, s.email,
		       coalesce(array_agg(k.external_id ORDER BY k.external_id) FILTER (WHERE k.external_id IS NOT NULL), '{}')
		  FROM sentencing_staff s
		  LEFT JOIN sentencing_cases k ON k.state_code = s.state_code AND k.staff_id = s.external_id
		 WHERE s.state_code = $1
		 GROUP BY s.state_code, s.external_id
		 ORDER BY s.external_id`
	staffUnlinkQuery = `
		UPDATE sentencing_cases SET staff_id = NULL, updated_at = now()
		 WHERE state_code = $1 AND staff_id IS NOT NULL AND NOT (staff_id = ANY($2))`
)

type StaffRepository struct{}

func NewStaffRepository() domain.StaffRepository {
	return &StaffRepository{}
}

func (r *StaffRepository) Upsert(ctx context.Context, s domain.Staff) (domain.Outcome, error) {
	return composables.InTxResult(ctx, func(ctx context.Context) (domain.Outcome, error) {
		tx, err := composables.UseTx(ctx)
		if err != nil {
			return 0, err
		}
		var inserted bool
		if err := tx.QueryRow(ctx, staffUpsertQuery,
			s.ExternalID, s.PseudonymizedID, string(s.StateCode), s.FullName, s.Email,
		).Scan(&inserted); err != nil {
			return 0, errors.Wrapf(err, "upsert staff %s", s.ExternalID)
		}
		if len(s.CaseIDs) > 0 {
			if _, err := tx.Exec(ctx, staffLinkCasesQuery, s.ExternalID, s.CaseIDs, string(s.StateCode)); err != nil {
				return 0, errors.Wrapf(err, "link cases to staff %s", s.ExternalID)
			}
		}
		return outcome(inserted), nil
	})
}

func (r *StaffRepository) ExistingIDs(ctx context.Context, state domain.StateCode, ids []string) ([]string, error) {
	out, err := queryStrings(ctx, staffExistingQuery, string(state), nonNil(ids))
	if err != nil {
		return nil, errors.Wrap(err, "existing staff ids")
	}
	return out, nil
}

func (r *StaffRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []string) (int64, error) {
	n, err := deleteUnlinking(ctx, staffUnlinkQuery, staffDeleteQuery, string(state), nonNil(keep))
	if err != nil {
		return 0, errors.Wrap(err, "delete stale staff")
	}
	return n, nil
}

func (r *StaffRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Staff, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, staffListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list staff")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Staff, error) {
		var s domain.Staff
		var stateCode string
		err := row.Scan(&s.ExternalID, &s.PseudonymizedID, &stateCode, &s.FullName, &s.Email, &s.CaseIDs)
		s.StateCode = domain.StateCode(stateCode)
		return s, err
	})
}
