package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// Optional columns the import does not carry keep their stored value, since
// case workers may have filled them in.
const (
	caseUpsertQuery = `
		INSERT INTO sentencing_cases (
			external_id, state_code, staff_id, client_id, due_date, completion_date,
			sentence_date, assigned_date, county, lsir_score, lsir_level, report_type,
			is_lsir_score_locked, is_report_type_locked
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (state_code, external_id) DO UPDATE SET
			staff_id              = coalesce(EXCLUDED.staff_id, sentencing_cases.staff_id),
			client_id             = coalesce(EXCLUDED.client_id, sentencing_cases.client_id),
			due_date              = coalesce(EXCLUDED.due_date, sentencing_cases.due_date),
			completion_date       = coalesce(EXCLUDED.completion_date, sentencing_cases.completion_date),
			sentence_date         = coalesce(EXCLUDED.sentence_date, sentencing_cases.sentence_date),
			assigned_date         = coalesce(EXCLUDED.assigned_date, sentencing_cases.assigned_date),
			county                = EXCLUDED.county,
			lsir_score            = coalesce(EXCLUDED.lsir_score, sentencing_cases.lsir_score),
			lsir_level            = coalesce(EXCLUDED.lsir_level, sentencing_cases.lsir_level),
			report_type           = coalesce(EXCLUDED.report_type, sentencing_cases.report_type),
			is_lsir_score_locked  = EXCLUDED.is_lsir_score_locked,
			is_report_type_locked = EXCLUDED.is_report_type_locked,
			updated_at            = now()
		RETURNING (xmax = 0)`
	caseIDsQuery  = `SELECT external_id FROM sentencing_cases WHERE state_code = $1 ORDER BY external_id`
	caseListQuery = `
		SELECT external_id, state_code, staff_id, client_id, due_date, completion_date,
		       sentence_date, assigned_date, county, lsir_score, lsir_level, report_type,
		       is_lsir_score_locked, is_report_type_locked
		  FROM sentencing_cases
		 WHERE state_code = $1
		 ORDER BY external_id`
)

type CaseRepository struct{}

func NewCaseRepository() domain.CaseRepository {
	return &CaseRepository{}
}

func (r *CaseRepository) ExternalIDs(ctx context.Context, state domain.StateCode) ([]string, error) {
	ids, err := queryStrings(ctx, caseIDsQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "case external ids")
	}
	return ids, nil
}

func (r *CaseRepository) Upsert(ctx context.Context, c domain.Case) (domain.Outcome, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var inserted bool
	if err := tx.QueryRow(ctx, caseUpsertQuery,
		c.ExternalID,
		string(c.StateCode),
		c.StaffID,
		c.ClientID,
		c.DueDate,
		c.CompletionDate,
		c.SentenceDate,
		c.AssignedDate,
		c.County,
		c.LSIRScore,
		c.LSIRLevel,
		reportTypePtr(c.ReportType),
		c.IsLSIRScoreLocked,
		c.IsReportTypeLocked,
	).Scan(&inserted); err != nil {
		return 0, errors.Wrapf(err, "upsert case %s", c.ExternalID)
	}
	return outcome(inserted), nil
}

func (r *CaseRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Case, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, caseListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Case, error) {
		var (
			c          domain.Case
			stateCode  string
			reportType *string
		)
		err := row.Scan(
			&c.ExternalID, &stateCode, &c.StaffID, &c.ClientID, &c.DueDate, &c.CompletionDate,
			&c.SentenceDate, &c.AssignedDate, &c.County, &c.LSIRScore, &c.LSIRLevel, &reportType,
			&c.IsLSIRScoreLocked, &c.IsReportTypeLocked,
		)
		c.StateCode = domain.StateCode(stateCode)
		if reportType != nil {
			rt := domain.ReportType(*reportType)
			c.ReportType = &rt
		}
		return c, err
	})
}
