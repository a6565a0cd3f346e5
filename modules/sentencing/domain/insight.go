package domain

type RecidivismDataPoint struct {
	CohortMonths int
	EventRate    float64
	LowerCI      float64
	UpperCI      float64
}

type RecidivismSeries struct {
	RecommendationType RecommendationType
	DataPoints         []RecidivismDataPoint
}

type Disposition struct {
	RecommendationType RecommendationType
	Percentage         float64
}

// Insight is replaced wholesale on every import, so it carries no identity of its own.
type Insight struct {
	StateCode                  StateCode
	Gender                     Gender
	OffenseName                string
	AssessmentScoreBucketStart int
	AssessmentScoreBucketEnd   int

	RollupStateCode                  StateCode
	RollupGender                     *Gender
	RollupAssessmentScoreBucketStart *int
	RollupAssessmentScoreBucketEnd   *int
	RollupOffenseName                *string
	RollupNCICCategory               *string
	RollupCombinedOffenseCategory    *string
	RollupViolentOffense             *bool
	RollupRecidivismNumRecords       int
	RollupRecidivismSeries           []RecidivismSeries

	DispositionNumRecords int
	Dispositions          []Disposition
}
