package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

// Series, data points and dispositions are removed by ON DELETE CASCADE.
const (
	insightDeleteQuery = `DELETE FROM sentencing_insights WHERE state_code = $1`
	insightInsertQuery = `
		INSERT INTO sentencing_insights (
			state_code, gender, offense_id, assessment_score_bucket_start, assessment_score_bucket_end,
			rollup_state_code, rollup_gender, rollup_assessment_score_bucket_start,
			rollup_assessment_score_bucket_end, rollup_offense_id, rollup_ncic_category,
			rollup_combined_offense_category, rollup_violent_offense,
			rollup_recidivism_num_records, disposition_num_records
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	seriesInsertQuery      = `INSERT INTO sentencing_recidivism_series (insight_id, recommendation_type) VALUES ($1, $2) RETURNING id`
	dispositionInsertQuery = `INSERT INTO sentencing_dispositions (insight_id, recommendation_type, percentage) VALUES ($1, $2, $3)`
	insightListQuery       = `
		SELECT i.id, i.state_code, i.gender, o.name, i.assessment_score_bucket_start, i.assessment_score_bucket_end,
		       i.rollup_state_code, i.rollup_gender, i.rollup_assessment_score_bucket_start,
		       i.rollup_assessment_score_bucket_end, ro.name, i.rollup_ncic_category,
		       i.rollup_combined_offense_category, i.rollup_violent_offense,
		       i.rollup_recidivism_num_records, i.disposition_num_records
		  FROM sentencing_insights i
		  JOIN sentencing_offenses o ON o.id = i.offense_id
		  LEFT JOIN sentencing_offenses ro ON ro.id = i.rollup_offense_id
		 WHERE i.state_code = $1
		 ORDER BY i.id`
	seriesListQuery = `
		SELECT s.insight_id, s.recommendation_type, p.cohort_months, p.event_rate, p.lower_ci, p.upper_ci
		  FROM sentencing_recidivism_series s
		  JOIN sentencing_insights i ON i.id = s.insight_id
		  JOIN sentencing_recidivism_data_points p ON p.series_id = s.id
		 WHERE i.state_code = $1
		 ORDER BY s.insight_id, s.id, p.id`
	dispositionListQuery = `
		SELECT d.insight_id, d.recommendation_type, d.percentage
		  FROM sentencing_dispositions d
		  JOIN sentencing_insights i ON i.id = d.insight_id
		 WHERE i.state_code = $1
		 ORDER BY d.insight_id, d.id`
)

var dataPointColumns = []string{"series_id", "cohort_months", "event_rate", "lower_ci", "upper_ci"}

type InsightRepository struct{}

func NewInsightRepository() domain.InsightRepository {
	return &InsightRepository{}
}

func (r *InsightRepository) DeleteAll(ctx context.Context, state domain.StateCode) (int64, error) {
	n, err := exec(ctx, insightDeleteQuery, string(state))
	if err != nil {
		return 0, errors.Wrap(err, "delete insights")
	}
	return n, nil
}

func (r *InsightRepository) Create(ctx context.Context, in domain.Insight) error {
	return composables.InTx(ctx, func(ctx context.Context) error {
		tx, err := composables.UseTx(ctx)
		if err != nil {
			return err
		}

		offID, err := offenseID(ctx, in.OffenseName, in.StateCode)
		if err != nil {
			return err
		}
		var rollupOffID *int64
		if in.RollupOffenseName != nil && *in.RollupOffenseName != "" {
			id, err := offenseID(ctx, *in.RollupOffenseName, in.StateCode)
			if err != nil {
				return err
			}
			rollupOffID = &id
		}

		var insightID int64
		if err := tx.QueryRow(ctx, insightInsertQuery,
			string(in.StateCode),
			string(in.Gender),
			offID,
			in.AssessmentScoreBucketStart,
			in.AssessmentScoreBucketEnd,
			string(in.RollupStateCode),
			genderPtr(in.RollupGender),
			in.RollupAssessmentScoreBucketStart,
			in.RollupAssessmentScoreBucketEnd,
			rollupOffID,
			in.RollupNCICCategory,
			in.RollupCombinedOffenseCategory,
			in.RollupViolentOffense,
			in.RollupRecidivismNumRecords,
			in.DispositionNumRecords,
		).Scan(&insightID); err != nil {
			return errors.Wrap(err, "insert insight")
		}

		var points [][]any
		for _, s := range in.RollupRecidivismSeries {
			var seriesID int64
			if err := tx.QueryRow(ctx, seriesInsertQuery, insightID, string(s.RecommendationType)).Scan(&seriesID); err != nil {
				return errors.Wrapf(err, "insert %s series", s.RecommendationType)
			}
			for _, p := range s.DataPoints {
				points = append(points, []any{seriesID, p.CohortMonths, p.EventRate, p.LowerCI, p.UpperCI})
			}
		}
		if len(points) > 0 {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"sentencing_recidivism_data_points"}, dataPointColumns, pgx.CopyFromRows(points)); err != nil {
				return errors.Wrap(err, "copy recidivism data points")
			}
		}

		batch := &pgx.Batch{}
		for _, d := range in.Dispositions {
			batch.Queue(dispositionInsertQuery, insightID, string(d.RecommendationType), d.Percentage)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert dispositions")
		}
		return nil
	})
}

func (r *InsightRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Insight, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, insightListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list insights")
	}
	var ids []int64
	insights, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Insight, error) {
		var (
			in           domain.Insight
			id           int64
			stateCode    string
			gender       string
			rollupState  string
			rollupGender *string
		)
		err := row.Scan(
			&id, &stateCode, &gender, &in.OffenseName, &in.AssessmentScoreBucketStart, &in.AssessmentScoreBucketEnd,
			&rollupState, &rollupGender, &in.RollupAssessmentScoreBucketStart,
			&in.RollupAssessmentScoreBucketEnd, &in.RollupOffenseName, &in.RollupNCICCategory,
			&in.RollupCombinedOffenseCategory, &in.RollupViolentOffense,
			&in.RollupRecidivismNumRecords, &in.DispositionNumRecords,
		)
		ids = append(ids, id)
		in.StateCode = domain.StateCode(stateCode)
		in.Gender = domain.Gender(gender)
		in.RollupStateCode = domain.StateCode(rollupState)
		if rollupGender != nil {
			g := domain.Gender(*rollupGender)
			in.RollupGender = &g
		}
		return in, err
	})
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	rows, err = tx.Query(ctx, seriesListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list recidivism series")
	}
	for rows.Next() {
		var (
			insightID int64
			kind      string
			p         domain.RecidivismDataPoint
		)
		if err := rows.Scan(&insightID, &kind, &p.CohortMonths, &p.EventRate, &p.LowerCI, &p.UpperCI); err != nil {
			rows.Close()
			return nil, err
		}
		in := &insights[index[insightID]]
		n := len(in.RollupRecidivismSeries)
		if n == 0 || in.RollupRecidivismSeries[n-1].RecommendationType != domain.RecommendationType(kind) {
			in.RollupRecidivismSeries = append(in.RollupRecidivismSeries, domain.RecidivismSeries{RecommendationType: domain.RecommendationType(kind)})
			n++
		}
		in.RollupRecidivismSeries[n-1].DataPoints = append(in.RollupRecidivismSeries[n-1].DataPoints, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, dispositionListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list dispositions")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			insightID int64
			kind      string
			pct       float64
		)
		if err := rows.Scan(&insightID, &kind, &pct); err != nil {
			return nil, err
		}
		in := &insights[index[insightID]]
		in.Dispositions = append(in.Dispositions, domain.Disposition{RecommendationType: domain.RecommendationType(kind), Percentage: pct})
	}
	return insights, rows.Err()
}
