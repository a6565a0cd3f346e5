package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/memory"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
)

type doc map[string]any

func (d doc) with(kv ...any) doc {
	out := make(doc, len(d)+len(kv)/2)
	for k, v := range d {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		k := kv[i].(string)
		if kv[i+1] == nil {
			delete(out, k)
			continue
		}
		out[k] = kv[i+1]
	}
	return out
}

func encode(t *testing.T, docs ...doc) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		b, err := json.Marshal(d)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func clientDoc(id string, caseIDs ...string) doc {
	if caseIDs == nil {
		caseIDs = []string{}
	}
	return doc{
		"external_id":      id,
		"pseudonymized_id": "p-" + id,
		"case_ids":         caseIDs,
		"state_code":       "US_ID",
		"full_name":        `{"given_names":"Client","middle_names":"","surname":"` + id + `","name_suffix":""}`,
		"gender":           "FEMALE",
		"county":           "Ada",
		"birth_date":       "1985-06-01",
	}
}

func staffDoc(id string, caseIDs ...string) doc {
	if caseIDs == nil {
		caseIDs = []string{}
	}
	return doc{
		"external_id":      id,
		"pseudonymized_id": "p-" + id,
		"case_ids":         caseIDs,
		"state_code":       "US_ID",
		"full_name":        `{"given_names":"Staff","surname":"` + id + `"}`,
		"email":            id + "@example.gov",
	}
}

func caseDoc(id string) doc {
	return doc{
		"external_id":   id,
		"state_code":    "US_ID",
		"sentence_date": "2024-01-10",
		"assigned_date": "2024-01-12",
		"county":        "Ada",
	}
}

func opportunityDoc(name, provider string) doc {
	d := doc{
		"OpportunityName": name,
		"NeedsAddressed":  []string{"Education"},
		"developmentalDisabilityDiagnosisCriterion":             false,
		"noCurrentOrPriorSexOffenseCriterion":                   false,
		"noCurrentOrPriorViolentOffenseCriterion":               true,
		"noPendingFelonyChargesInAnotherCountyOrStateCriterion": false,
		"entryOfGuiltyPleaCriterion":                            false,
		"veteranStatusCriterion":                                false,
		"diagnosedMentalHealthDiagnosisCriterion":               []string{},
		"lastUpdatedDate":                                       "2024-03-01",
	}
	if provider != "" {
		d["ProviderName"] = provider
	}
	return d
}

func insightDoc(offense string, bucketStart int) doc {
	return doc{
		"state_code":                    "US_ID",
		"gender":                        "MALE",
		"assessment_score_bucket_start": bucketStart,
		"assessment_score_bucket_end":   bucketStart + 10,
		"most_severe_description":       offense,
		"recidivism_rollup":             `{"state_code":"US_ID","most_severe_description":"` + offense + ` (all)"}`,
		"recidivism_num_records":        120,
		"recidivism_probation_series":   `[{"cohort_months":12,"event_rate":0.1,"lower_ci":0.05,"upper_ci":0.15}]`,
		"disposition_num_records":       80,
		"disposition_probation_pc":      0.5,
		"disposition_rider_pc":          0.3,
		"disposition_term_pc":           0.2,
	}
}

func offenseDoc(charge string) doc {
	return doc{"state_code": "US_ID", "charge": charge, "is_violent": false}
}

type fakeReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *fakeReporter) Report(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *fakeReporter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type env struct {
	store    *memory.Store
	repos    domain.Repositories
	reporter *fakeReporter
	loaders  services.Loaders
}

func newEnv(concurrency int) *env {
	store := memory.NewStore()
	repos := store.Repositories()
	reporter := &fakeReporter{}
	return &env{
		store:    store,
		repos:    repos,
		reporter: reporter,
		loaders:  services.NewLoaders(repos, reporter, services.LoaderOptions{WriteConcurrency: concurrency}),
	}
}

func (e *env) load(t *testing.T, entity domain.Entity, docs ...doc) domain.LoadResult {
	t.Helper()
	return e.loadIn(t, domain.StateCodeUSID, entity, docs...)
}

func (e *env) loadIn(t *testing.T, state domain.StateCode, entity domain.Entity, docs ...doc) domain.LoadResult {
	t.Helper()
	res, err := e.loaders[entity].Load(context.Background(), state, encode(t, docs...))
	require.NoError(t, err)
	return res
}

// snapshot captures every table of the state for equality checks.
type snapshot struct {
	Clients       []domain.Client
	Staff         []domain.Staff
	Cases         []domain.Case
	Opportunities []domain.Opportunity
	Insights      []domain.Insight
	Offenses      []domain.Offense
}

func (e *env) snapshot(t *testing.T, state domain.StateCode) snapshot {
	t.Helper()
	ctx := context.Background()
	var s snapshot
	var err error
	s.Clients, err = e.repos.Clients.List(ctx, state)
	require.NoError(t, err)
	s.Staff, err = e.repos.Staff.List(ctx, state)
	require.NoError(t, err)
	s.Cases, err = e.repos.Cases.List(ctx, state)
	require.NoError(t, err)
	s.Opportunities, err = e.repos.Opportunities.List(ctx, state)
	require.NoError(t, err)
	s.Insights, err = e.repos.Insights.List(ctx, state)
	require.NoError(t, err)
	s.Offenses, err = e.repos.Offenses.List(ctx, state)
	require.NoError(t, err)
	return s
}

func clientIDs(cs []domain.Client) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ExternalID)
	}
	return out
}

func staffIDs(ss []domain.Staff) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.ExternalID)
	}
	return out
}

func caseIDs(cs []domain.Case) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ExternalID)
	}
	return out
}

func offenseNames(offenses []domain.Offense) []string {
	out := make([]string, 0, len(offenses))
	for _, o := range offenses {
		out = append(out, o.Name)
	}
	return out
}
