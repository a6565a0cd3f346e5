package records_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain/records"
	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

func raw(t *testing.T, docs ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		require.True(t, json.Valid([]byte(d)), d)
		out = append(out, json.RawMessage(d))
	}
	return out
}

func requireViolations(t *testing.T, err error) *serrors.ValidationErrors {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrValidation)
	var verrs *serrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	return verrs
}

func hasViolation(verrs *serrors.ValidationErrors, index int, field string) bool {
	for _, f := range verrs.Fields {
		if f.Index == index && f.Field == field {
			return true
		}
	}
	return false
}

func TestDecodeClient_CoercesUpstreamShapes(t *testing.T) {
	got, err := records.Decode[records.ClientRecord](domain.EntityClient, domain.StateCodeUSID, raw(t,
		`{"external_id":"c1","pseudonymized_id":"p1","case_ids":"[\"k1\",\"k2\"]","state_code":"US_IX",
		  "full_name":"{\"given_names\":\"Ada\",\"middle_names\":\"\",\"surname\":\"Lovelace\",\"name_suffix\":\"\"}",
		  "gender":"FEMALE","birth_date":"1980-02-03"}`,
	))
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0].Client()
	require.Equal(t, domain.StateCodeUSID, c.StateCode)
	require.Equal(t, "Ada Lovelace", c.FullName)
	require.Equal(t, []string{"k1", "k2"}, c.CaseIDs)
	require.Equal(t, domain.DefaultCounty, c.County)
	require.True(t, c.IsGenderLocked)
	require.Equal(t, time.Date(1980, 2, 3, 0, 0, 0, 0, time.UTC), c.BirthDate)
}

func TestDecodeClient_UnknownGenderIsNotLocked(t *testing.T) {
	got, err := records.Decode[records.ClientRecord](domain.EntityClient, domain.StateCodeUSND, raw(t,
		`{"external_id":"c1","pseudonymized_id":"p1","case_ids":[],"state_code":"US_ND",
		  "full_name":{"given_names":"A","middle_names":"B","surname":"C","name_suffix":"JR"},
		  "gender":"EXTERNAL_UNKNOWN","county":"Burleigh","birth_date":"1990-01-01T00:00:00Z"}`,
	))
	require.NoError(t, err)

	c := got[0].Client()
	require.False(t, c.IsGenderLocked)
	require.Equal(t, "A B C JR", c.FullName)
	require.Equal(t, "Burleigh", c.County)
	require.Empty(t, c.CaseIDs)
}

func TestDecode_AggregatesEveryViolation(t *testing.T) {
	_, err := records.Decode[records.ClientRecord](domain.EntityClient, domain.StateCodeUSID, raw(t,
		`{"external_id":"","pseudonymized_id":"p1","case_ids":[],"state_code":"US_ID","full_name":"A","gender":"MALE","birth_date":"1990-01-01"}`,
		`{"external_id":"c2","pseudonymized_id":"p2","case_ids":[],"state_code":"US_ID","full_name":"B","gender":"ROBOT","birth_date":"1990-01-01"}`,
		`{"external_id":"c3","pseudonymized_id":"p3","case_ids":[],"state_code":"US_ID","full_name":"C","gender":"MALE","birth_date":"soon"}`,
	))
	verrs := requireViolations(t, err)
	require.True(t, hasViolation(verrs, 0, "external_id"))
	require.True(t, hasViolation(verrs, 1, "gender"))
	require.True(t, hasViolation(verrs, 2, "$"))
	require.Contains(t, err.Error(), "client import")
}

func TestDecode_RejectsForeignStateCode(t *testing.T) {
	_, err := records.Decode[records.OffenseRecord](domain.EntityOffense, domain.StateCodeUSID, raw(t,
		`{"state_code":"US_ND","charge":"THEFT"}`,
	))
	verrs := requireViolations(t, err)
	require.True(t, hasViolation(verrs, 0, "state_code"))
}

func TestDecodeCase_ReportTypeAndLinks(t *testing.T) {
	got, err := records.Decode[records.CaseRecord](domain.EntityCase, domain.StateCodeUSID, raw(t,
		`{"external_id":"k1","state_code":"US_ID","staff_id":"s1","client_id":"ghost","sentence_date":"2024-01-01",
		  "assigned_date":"2024-01-02","county":"Ada","lsir_score":"27","report_type":"PSI File Review w/LSI Assigned"}`,
		`{"external_id":"k2","state_code":"US_ID","sentence_date":"2024-01-01","assigned_date":"2024-01-02","county":"Ada"}`,
	))
	require.NoError(t, err)

	known := func(id string) bool { return id == "s1" }
	first := got[0].Case(known, known)
	require.NotNil(t, first.StaffID)
	require.Equal(t, "s1", *first.StaffID)
	require.Nil(t, first.ClientID)
	require.NotNil(t, first.LSIRScore)
	require.Equal(t, 27, *first.LSIRScore)
	require.True(t, first.IsLSIRScoreLocked)
	require.NotNil(t, first.ReportType)
	require.Equal(t, domain.ReportTypeFileReviewWithUpdatedLSIRScore, *first.ReportType)
	require.True(t, first.IsReportTypeLocked)

	second := got[1].Case(known, known)
	require.Nil(t, second.ReportType)
	require.False(t, second.IsReportTypeLocked)
	require.False(t, second.IsLSIRScoreLocked)
	require.Nil(t, second.DueDate)
}

func TestDecodeCase_UnmappedReportTypeFails(t *testing.T) {
	_, err := records.Decode[records.CaseRecord](domain.EntityCase, domain.StateCodeUSID, raw(t,
		`{"external_id":"k1","state_code":"US_ID","sentence_date":"2024-01-01","assigned_date":"2024-01-02",
		  "county":"Ada","report_type":"PSI Something Else"}`,
	))
	verrs := requireViolations(t, err)
	require.True(t, hasViolation(verrs, 0, "report_type"))
}

func TestDecodeOpportunity_DefaultsAndGenders(t *testing.T) {
	got, err := records.Decode[records.OpportunityRecord](domain.EntityOpportunity, domain.StateCodeUSID, raw(t,
		`{"OpportunityName":"Housing","CapacityTotal":"12","NeedsAddressed":["HousingOpportunities"],
		  "developmentalDisabilityDiagnosisCriterion":false,"noCurrentOrPriorSexOffenseCriterion":true,
		  "noCurrentOrPriorViolentOffenseCriterion":false,"noPendingFelonyChargesInAnotherCountyOrStateCriterion":false,
		  "entryOfGuiltyPleaCriterion":false,"veteranStatusCriterion":false,
		  "diagnosedMentalHealthDiagnosisCriterion":["Any"],"minAge":"18",
		  "lastUpdatedDate":"2024-05-01","genders":["Women","Men"]}`,
	))
	require.NoError(t, err)

	o := got[0].Opportunity(domain.StateCodeUSID)
	require.Equal(t, domain.DefaultProviderName, o.ProviderName)
	require.Equal(t, []domain.Gender{domain.GenderFemale, domain.GenderMale}, o.Genders)
	require.Equal(t, 12, *o.TotalCapacity)
	require.Equal(t, 18, *o.MinAge)
	require.Nil(t, o.AvailableCapacity)
	require.True(t, o.NoCurrentOrPriorSexOffenseCriterion)
	require.Equal(t, domain.StateCodeUSID, o.StateCode)
}

func TestDecodeOpportunity_RejectsUnknownVocabulary(t *testing.T) {
	_, err := records.Decode[records.OpportunityRecord](domain.EntityOpportunity, domain.StateCodeUSID, raw(t,
		`{"OpportunityName":"Housing","NeedsAddressed":["Yachts"],
		  "developmentalDisabilityDiagnosisCriterion":false,"noCurrentOrPriorSexOffenseCriterion":true,
		  "noCurrentOrPriorViolentOffenseCriterion":false,"noPendingFelonyChargesInAnotherCountyOrStateCriterion":false,
		  "entryOfGuiltyPleaCriterion":false,"veteranStatusCriterion":false,
		  "diagnosedMentalHealthDiagnosisCriterion":[],"lastUpdatedDate":"2024-05-01","genders":["Other"]}`,
	))
	verrs := requireViolations(t, err)
	require.True(t, hasViolation(verrs, 0, "NeedsAddressed[0]"))
	require.True(t, hasViolation(verrs, 0, "genders[0]"))
}

func TestDecodeInsight_EmbeddedSeriesAndDispositions(t *testing.T) {
	got, err := records.Decode[records.InsightRecord](domain.EntityInsight, domain.StateCodeUSID, raw(t,
		`{"state_code":"US_IX","gender":"MALE","assessment_score_bucket_start":"0","assessment_score_bucket_end":"20",
		  "most_severe_description":"BURGLARY",
		  "recidivism_rollup":"{\"state_code\":\"US_IX\",\"most_severe_description\":\"PROPERTY\"}",
		  "recidivism_num_records":"100",
		  "recidivism_probation_series":"[{\"cohort_months\":0,\"event_rate\":0,\"lower_ci\":0,\"upper_ci\":0},{\"cohort_months\":12,\"event_rate\":0.2,\"lower_ci\":0.1,\"upper_ci\":0.3}]",
		  "disposition_num_records":"50","disposition_probation_pc":0.5,"disposition_rider_pc":0.3,"disposition_term_pc":0.2}`,
	))
	require.NoError(t, err)

	in := got[0].Insight()
	require.Equal(t, "BURGLARY", in.OffenseName)
	require.Equal(t, domain.StateCodeUSID, in.RollupStateCode)
	require.NotNil(t, in.RollupOffenseName)
	require.Equal(t, "PROPERTY", *in.RollupOffenseName)
	require.Equal(t, 100, in.RollupRecidivismNumRecords)
	require.Len(t, in.RollupRecidivismSeries, 1)
	require.Equal(t, domain.RecommendationProbation, in.RollupRecidivismSeries[0].RecommendationType)
	require.Len(t, in.RollupRecidivismSeries[0].DataPoints, 2)
	require.InDelta(t, 0.2, in.RollupRecidivismSeries[0].DataPoints[1].EventRate, 1e-9)
	require.Len(t, in.Dispositions, 3)
	require.Equal(t, domain.RecommendationTerm, in.Dispositions[2].RecommendationType)
}

func TestDecodeInsight_ValidatesSeriesPoints(t *testing.T) {
	_, err := records.Decode[records.InsightRecord](domain.EntityInsight, domain.StateCodeUSID, raw(t,
		`{"state_code":"US_ID","gender":"MALE","assessment_score_bucket_start":0,"assessment_score_bucket_end":20,
		  "most_severe_description":"BURGLARY","recidivism_rollup":{"state_code":"US_ID"},"recidivism_num_records":1,
		  "recidivism_term_series":[{"cohort_months":12,"lower_ci":0.1,"upper_ci":0.3}],
		  "disposition_num_records":1,"disposition_probation_pc":1,"disposition_rider_pc":0,"disposition_term_pc":0}`,
	))
	verrs := requireViolations(t, err)
	require.True(t, hasViolation(verrs, 0, "recidivism_term_series[0].event_rate"))
}

func TestDate_AcceptsUpstreamFormats(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-03-04"`:                time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		`"2024-03-04T05:06:07Z"`:      time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		`"2024-03-04T05:06:07"`:       time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		`"2024-03-04 05:06:07"`:       time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		`"2024-03-04T05:06:07+02:00"`: time.Date(2024, 3, 4, 3, 6, 7, 0, time.UTC),
		`1709528767000`:               time.UnixMilli(1709528767000).UTC(),
	}
	for in, want := range cases {
		var d records.Date
		require.NoError(t, json.Unmarshal([]byte(in), &d), in)
		require.True(t, want.Equal(d.Time), "%s: got %s", in, d.Time)
	}

	var d records.Date
	require.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &d))
}

func TestInt_RejectsFractions(t *testing.T) {
	var n records.Int
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &n))
	require.Equal(t, records.Int(42), n)
	require.Error(t, json.Unmarshal([]byte(`4.5`), &n))
	require.Error(t, json.Unmarshal([]byte(`"forty"`), &n))
}
