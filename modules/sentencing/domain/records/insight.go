package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

type SeriesPoint struct {
	CohortMonths *Int    `json:"cohort_months" validate:"required"`
	EventRate    *Number `json:"event_rate" validate:"required"`
	LowerCI      *Number `json:"lower_ci" validate:"required"`
	UpperCI      *Number `json:"upper_ci" validate:"required"`
}

// Series is a recidivism curve, usually JSON-encoded inside a string.
type Series []SeriesPoint

func (s *Series) UnmarshalJSON(b []byte) error {
	return unmarshalEmbedded(b, (*[]SeriesPoint)(s))
}

// RollupRecord describes the cohort the recidivism series were computed over.
type RollupRecord struct {
	StateCode                  *domain.StateCode `json:"state_code" validate:"required,statecode"`
	Gender                     *domain.Gender    `json:"gender" validate:"omitempty,gender"`
	AssessmentScoreBucketStart *Int              `json:"assessment_score_bucket_start"`
	AssessmentScoreBucketEnd   *Int              `json:"assessment_score_bucket_end"`
	MostSevereDescription      *string           `json:"most_severe_description"`
	NCICCategory               *string           `json:"most_severe_ncic_category_uniform"`
	CombinedOffenseCategory    *string           `json:"combined_offense_category"`
	ViolentOffense             *bool             `json:"violent_offense"`
}

func (r *RollupRecord) UnmarshalJSON(b []byte) error {
	type plain RollupRecord
	return unmarshalEmbedded(b, (*plain)(r))
}

type InsightRecord struct {
	StateCode                  *domain.StateCode `json:"state_code" validate:"required,statecode"`
	Gender                     *domain.Gender    `json:"gender" validate:"required,gender"`
	AssessmentScoreBucketStart *Int              `json:"assessment_score_bucket_start" validate:"required"`
	AssessmentScoreBucketEnd   *Int              `json:"assessment_score_bucket_end" validate:"required"`
	MostSevereDescription      string            `json:"most_severe_description" validate:"required"`
	Rollup                     *RollupRecord     `json:"recidivism_rollup" validate:"required"`
	RecidivismNumRecords       *Int              `json:"recidivism_num_records" validate:"required"`
	ProbationSeries            *Series           `json:"recidivism_probation_series" validate:"omitempty,dive"`
	RiderSeries                *Series           `json:"recidivism_rider_series" validate:"omitempty,dive"`
	TermSeries                 *Series           `json:"recidivism_term_series" validate:"omitempty,dive"`
	DispositionNumRecords      *Int              `json:"disposition_num_records" validate:"required"`
	DispositionProbationPC     *Number           `json:"disposition_probation_pc" validate:"required"`
	DispositionRiderPC         *Number           `json:"disposition_rider_pc" validate:"required"`
	DispositionTermPC          *Number           `json:"disposition_term_pc" validate:"required"`
}

func (r *InsightRecord) recordState() domain.StateCode { return stateOf(r.StateCode) }

// Insight maps a validated record. Absent series are omitted; the three
// dispositions are always present.
func (r InsightRecord) Insight() domain.Insight {
	in := domain.Insight{
		StateCode:                  *r.StateCode,
		Gender:                     *r.Gender,
		OffenseName:                r.MostSevereDescription,
		AssessmentScoreBucketStart: int(*r.AssessmentScoreBucketStart),
		AssessmentScoreBucketEnd:   int(*r.AssessmentScoreBucketEnd),

		RollupStateCode:                  *r.Rollup.StateCode,
		RollupGender:                     r.Rollup.Gender,
		RollupAssessmentScoreBucketStart: r.Rollup.AssessmentScoreBucketStart.Ptr(),
		RollupAssessmentScoreBucketEnd:   r.Rollup.AssessmentScoreBucketEnd.Ptr(),
		RollupOffenseName:                r.Rollup.MostSevereDescription,
		RollupNCICCategory:               r.Rollup.NCICCategory,
		RollupCombinedOffenseCategory:    r.Rollup.CombinedOffenseCategory,
		RollupViolentOffense:             r.Rollup.ViolentOffense,
		RollupRecidivismNumRecords:       int(*r.RecidivismNumRecords),

		DispositionNumRecords: int(*r.DispositionNumRecords),
		Dispositions: []domain.Disposition{
			{RecommendationType: domain.RecommendationProbation, Percentage: float64(*r.DispositionProbationPC)},
			{RecommendationType: domain.RecommendationRider, Percentage: float64(*r.DispositionRiderPC)},
			{RecommendationType: domain.RecommendationTerm, Percentage: float64(*r.DispositionTermPC)},
		},
	}
	for _, s := range []struct {
		kind   domain.RecommendationType
		series *Series
	}{
		{domain.RecommendationProbation, r.ProbationSeries},
		{domain.RecommendationRider, r.RiderSeries},
		{domain.RecommendationTerm, r.TermSeries},
	} {
		if s.series == nil {
			continue
		}
		points := make([]domain.RecidivismDataPoint, 0, len(*s.series))
		for _, p := range *s.series {
			points = append(points, domain.RecidivismDataPoint{
				CohortMonths: int(*p.CohortMonths),
				EventRate:    float64(*p.EventRate),
				LowerCI:      float64(*p.LowerCI),
				UpperCI:      float64(*p.UpperCI),
			})
		}
		in.RollupRecidivismSeries = append(in.RollupRecidivismSeries, domain.RecidivismSeries{
			RecommendationType: s.kind,
			DataPoints:         points,
		})
	}
	return in
}
