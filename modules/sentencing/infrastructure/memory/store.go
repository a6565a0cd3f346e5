// Package memory keeps the sentencing tables in process memory. It mirrors
// the Postgres repositories closely enough to run the loaders against it in
// tests and dry runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

// key scopes an external id or an offense name to its state, as the unique
// keys of the Postgres tables do.
type key struct {
	state domain.StateCode
	id    string
}

type opportunityKey struct {
	state domain.StateCode
	domain.OpportunityKey
}

type Store struct {
	mu            sync.Mutex
	clients       map[key]domain.Client
	staff         map[key]domain.Staff
	cases         map[key]domain.Case
	opportunities map[opportunityKey]domain.Opportunity
	insights      []domain.Insight
	offenses      map[key]domain.Offense

	writes    int
	failAfter int
	failErr   error
}

func NewStore() *Store {
	return &Store{
		clients:       map[key]domain.Client{},
		staff:         map[key]domain.Staff{},
		cases:         map[key]domain.Case{},
		opportunities: map[opportunityKey]domain.Opportunity{},
		offenses:      map[key]domain.Offense{},
		failAfter:     -1,
	}
}

// FailAfter makes every write after the next n return err. A negative n
// turns failure injection off.
func (s *Store) FailAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = 0
	s.failAfter = n
	s.failErr = err
}

func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Clients:       &clientRepository{s},
		Staff:         &staffRepository{s},
		Cases:         &caseRepository{s},
		Opportunities: &opportunityRepository{s},
		Insights:      &insightRepository{s},
		Offenses:      &offenseRepository{s},
	}
}

// write must be called with mu held.
func (s *Store) write(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failAfter >= 0 && s.writes >= s.failAfter {
		return s.failErr
	}
	s.writes++
	return nil
}

func (s *Store) casesOf(state domain.StateCode, match func(domain.Case) bool) []string {
	ids := []string{}
	for k, c := range s.cases {
		if k.state == state && match(c) {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// unlinkCases nils the link selected by link on every case of state whose
// linked id is gone.
func (s *Store) unlinkCases(state domain.StateCode, link func(*domain.Case) **string, gone func(id string) bool) {
	for k, c := range s.cases {
		p := link(&c)
		if k.state != state || *p == nil || !gone(**p) {
			continue
		}
		*p = nil
		s.cases[k] = c
	}
}

func idsOf[V any](m map[key]V, state domain.StateCode) []string {
	out := []string{}
	for k := range m {
		if k.state == state {
			out = append(out, k.id)
		}
	}
	sort.Strings(out)
	return out
}

func existing[V any](m map[key]V, state domain.StateCode, ids []string) []string {
	out := []string{}
	for _, id := range ids {
		if _, ok := m[key{state, id}]; ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func deleteExcept[V any](m map[key]V, state domain.StateCode, keep []string) (gone map[string]bool) {
	gone = map[string]bool{}
	for k := range m {
		if k.state == state && !slices.Contains(keep, k.id) {
			delete(m, k)
			gone[k.id] = true
		}
	}
	return gone
}

type clientRepository struct{ s *Store }

func (r *clientRepository) Upsert(ctx context.Context, c domain.Client) (domain.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	result := domain.OutcomeCreated
	if prev, ok := r.s.clients[key{c.StateCode, c.ExternalID}]; ok {
		result = domain.OutcomeUpdated
		if !c.IsGenderLocked {
			c.Gender = prev.Gender
		}
	}
	for _, id := range c.CaseIDs {
		if k, ok := r.s.cases[key{c.StateCode, id}]; ok {
			externalID := c.ExternalID
			k.ClientID = &externalID
			r.s.cases[key{c.StateCode, id}] = k
		}
	}
	c.CaseIDs = nil
	r.s.clients[key{c.StateCode, c.ExternalID}] = c
	return result, nil
}

func (r *clientRepository) ExistingIDs(_ context.Context, state domain.StateCode, ids []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return existing(r.s.clients, state, ids), nil
}

func (r *clientRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	gone := deleteExcept(r.s.clients, state, keep)
	r.s.unlinkCases(state, func(c *domain.Case) **string { return &c.ClientID }, func(id string) bool { return gone[id] })
	return int64(len(gone)), nil
}

func (r *clientRepository) List(_ context.Context, state domain.StateCode) ([]domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Client{}
	for _, id := range idsOf(r.s.clients, state) {
		c := r.s.clients[key{state, id}]
		c.CaseIDs = r.s.casesOf(state, func(k domain.Case) bool { return k.ClientID != nil && *k.ClientID == id })
		out = append(out, c)
	}
	return out, nil
}

type staffRepository struct{ s *Store }

func (r *staffRepository) Upsert(ctx context.Context, st domain.Staff) (domain.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	result := domain.OutcomeCreated
	if _, ok := r.s.staff[key{st.StateCode, st.ExternalID}]; ok {
		result = domain.OutcomeUpdated
	}
	for _, id := range st.CaseIDs {
		if k, ok := r.s.cases[key{st.StateCode, id}]; ok {
			externalID := st.ExternalID
			k.StaffID = &externalID
			r.s.cases[key{st.StateCode, id}] = k
		}
	}
	st.CaseIDs = nil
	r.s.staff[key{st.StateCode, st.ExternalID}] = st
	return result, nil
}

func (r *staffRepository) ExistingIDs(_ context.Context, state domain.StateCode, ids []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return existing(r.s.staff, state, ids), nil
}

func (r *staffRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	gone := deleteExcept(r.s.staff, state, keep)
	r.s.unlinkCases(state, func(c *domain.Case) **string { return &c.StaffID }, func(id string) bool { return gone[id] })
	return int64(len(gone)), nil
}

func (r *staffRepository) List(_ context.Context, state domain.StateCode) ([]domain.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Staff{}
	for _, id := range idsOf(r.s.staff, state) {
		st := r.s.staff[key{state, id}]
		st.CaseIDs = r.s.casesOf(state, func(k domain.Case) bool { return k.StaffID != nil && *k.StaffID == id })
		out = append(out, st)
	}
	return out, nil
}

type caseRepository struct{ s *Store }

func (r *caseRepository) ExternalIDs(_ context.Context, state domain.StateCode) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return idsOf(r.s.cases, state), nil
}

func (r *caseRepository) Upsert(ctx context.Context, c domain.Case) (domain.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	k := key{c.StateCode, c.ExternalID}
	prev, ok := r.s.cases[k]
	if !ok {
		r.s.cases[k] = c
		return domain.OutcomeCreated, nil
	}
	c.StaffID = coalesce(c.StaffID, prev.StaffID)
	c.ClientID = coalesce(c.ClientID, prev.ClientID)
	c.DueDate = coalesce(c.DueDate, prev.DueDate)
	c.CompletionDate = coalesce(c.CompletionDate, prev.CompletionDate)
	c.SentenceDate = coalesce(c.SentenceDate, prev.SentenceDate)
	c.AssignedDate = coalesce(c.AssignedDate, prev.AssignedDate)
	c.LSIRScore = coalesce(c.LSIRScore, prev.LSIRScore)
	c.LSIRLevel = coalesce(c.LSIRLevel, prev.LSIRLevel)
	c.ReportType = coalesce(c.ReportType, prev.ReportType)
	r.s.cases[k] = c
	return domain.OutcomeUpdated, nil
}

func (r *caseRepository) List(_ context.Context, state domain.StateCode) ([]domain.Case, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Case{}
	for _, id := range idsOf(r.s.cases, state) {
		out = append(out, r.s.cases[key{state, id}])
	}
	return out, nil
}

func coalesce[T any](v, fallback *T) *T {
	if v != nil {
		return v
	}
	return fallback
}

type opportunityRepository struct{ s *Store }

func (r *opportunityRepository) Upsert(ctx context.Context, o domain.Opportunity) (domain.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	k := opportunityKey{o.StateCode, o.Key()}
	result := domain.OutcomeCreated
	if _, ok := r.s.opportunities[k]; ok {
		result = domain.OutcomeUpdated
	}
	r.s.opportunities[k] = o
	return result, nil
}

func (r *opportunityRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []domain.OpportunityKey) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	var n int64
	for k := range r.s.opportunities {
		if k.state == state && !slices.Contains(keep, k.OpportunityKey) {
			delete(r.s.opportunities, k)
			n++
		}
	}
	return n, nil
}

func (r *opportunityRepository) List(_ context.Context, state domain.StateCode) ([]domain.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Opportunity{}
	for _, o := range r.s.opportunities {
		if o.StateCode == state {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpportunityName != out[j].OpportunityName {
			return out[i].OpportunityName < out[j].OpportunityName
		}
		return out[i].ProviderName < out[j].ProviderName
	})
	return out, nil
}

type insightRepository struct{ s *Store }

func (r *insightRepository) DeleteAll(ctx context.Context, state domain.StateCode) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	kept := r.s.insights[:0]
	var n int64
	for _, in := range r.s.insights {
		if in.StateCode == state {
			n++
			continue
		}
		kept = append(kept, in)
	}
	r.s.insights = kept
	return n, nil
}

func (r *insightRepository) Create(ctx context.Context, in domain.Insight) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return err
	}
	names := []string{in.OffenseName}
	if in.RollupOffenseName != nil && *in.RollupOffenseName != "" {
		names = append(names, *in.RollupOffenseName)
	}
	for _, name := range names {
		if _, ok := r.s.offenses[key{in.StateCode, name}]; !ok {
			r.s.offenses[key{in.StateCode, name}] = domain.Offense{Name: name, StateCode: in.StateCode}
		}
	}
	r.s.insights = append(r.s.insights, in)
	return nil
}

func (r *insightRepository) List(_ context.Context, state domain.StateCode) ([]domain.Insight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Insight{}
	for _, in := range r.s.insights {
		if in.StateCode == state {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.OffenseName != b.OffenseName {
			return a.OffenseName < b.OffenseName
		}
		if a.AssessmentScoreBucketStart != b.AssessmentScoreBucketStart {
			return a.AssessmentScoreBucketStart < b.AssessmentScoreBucketStart
		}
		return a.Gender < b.Gender
	})
	return out, nil
}

type offenseRepository struct{ s *Store }

func (r *offenseRepository) Names(_ context.Context, state domain.StateCode) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return idsOf(r.s.offenses, state), nil
}

func (r *offenseRepository) InsertIfAbsent(ctx context.Context, o domain.Offense) (domain.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.write(ctx); err != nil {
		return 0, err
	}
	k := key{o.StateCode, o.Name}
	if _, ok := r.s.offenses[k]; ok {
		return domain.OutcomeSkipped, nil
	}
	r.s.offenses[k] = o
	return domain.OutcomeCreated, nil
}

func (r *offenseRepository) List(_ context.Context, state domain.StateCode) ([]domain.Offense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Offense{}
	for _, name := range idsOf(r.s.offenses, state) {
		out = append(out, r.s.offenses[key{state, name}])
	}
	return out, nil
}
