// Package services loads validated import batches into the sentencing store
// and runs the trigger/handle import flow on top of the loaders.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain/records"
)

// Loader reconciles one entity type of one state with a batch of raw records.
type Loader interface {
	Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error)
}

type Loaders map[domain.Entity]Loader

type LoaderOptions struct {
	// WriteConcurrency bounds the number of reconciliation keys written at
	// once. 1 serializes all writes.
	WriteConcurrency int
}

func NewLoaders(repos domain.Repositories, reporter Reporter, opts LoaderOptions) Loaders {
	return Loaders{
		domain.EntityClient:      NewClientLoader(repos, opts),
		domain.EntityStaff:       NewStaffLoader(repos, opts),
		domain.EntityCase:        NewCaseLoader(repos, opts),
		domain.EntityOpportunity: NewOpportunityLoader(repos, opts),
		domain.EntityInsight:     NewInsightLoader(repos, opts),
		domain.EntityOffense:     NewOffenseLoader(repos, reporter, opts),
	}
}

func newResult(entity domain.Entity, state domain.StateCode, n int) domain.LoadResult {
	return domain.LoadResult{Entity: entity, StateCode: state, Records: n}
}

// existingCases keeps the ids of ids that are stored cases, preserving order.
func existingCases(stored map[string]struct{}, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := stored[id]; ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func caseSet(ctx context.Context, repo domain.CaseRepository, state domain.StateCode) (map[string]struct{}, error) {
	ids, err := repo.ExternalIDs(ctx, state)
	if err != nil {
		return nil, errors.Wrap(err, "list case ids")
	}
	return toSet(ids), nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type ClientLoader struct {
	repos       domain.Repositories
	concurrency int
}

func NewClientLoader(repos domain.Repositories, opts LoaderOptions) *ClientLoader {
	return &ClientLoader{repos: repos, concurrency: opts.WriteConcurrency}
}

// Load upserts every client, links the listed cases that already exist and
// deletes the state's clients missing from the batch.
func (l *ClientLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityClient, state, len(raw))
	recs, err := records.Decode[records.ClientRecord](domain.EntityClient, state, raw)
	if err != nil {
		return result, err
	}
	stored, err := caseSet(ctx, l.repos.Cases, state)
	if err != nil {
		return result, err
	}

	clients := make([]domain.Client, 0, len(recs))
	keep := make([]string, 0, len(recs))
	for _, r := range recs {
		c := r.Client()
		c.CaseIDs = existingCases(stored, c.CaseIDs)
		clients = append(clients, c)
		keep = append(keep, c.ExternalID)
	}

	err = writeKeyed(ctx, l.concurrency, clients,
		func(c domain.Client) string { return c.ExternalID },
		l.repos.Clients.Upsert,
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "upsert clients")
	}
	if result.Deleted, err = l.repos.Clients.DeleteExcept(ctx, state, keep); err != nil {
		return result, errors.Wrap(err, "delete stale clients")
	}
	return result, nil
}

type StaffLoader struct {
	repos       domain.Repositories
	concurrency int
}

func NewStaffLoader(repos domain.Repositories, opts LoaderOptions) *StaffLoader {
	return &StaffLoader{repos: repos, concurrency: opts.WriteConcurrency}
}

func (l *StaffLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityStaff, state, len(raw))
	recs, err := records.Decode[records.StaffRecord](domain.EntityStaff, state, raw)
	if err != nil {
		return result, err
	}
	stored, err := caseSet(ctx, l.repos.Cases, state)
	if err != nil {
		return result, err
	}

	staff := make([]domain.Staff, 0, len(recs))
	keep := make([]string, 0, len(recs))
	for _, r := range recs {
		s := r.Staff()
		s.CaseIDs = existingCases(stored, s.CaseIDs)
		staff = append(staff, s)
		keep = append(keep, s.ExternalID)
	}

	err = writeKeyed(ctx, l.concurrency, staff,
		func(s domain.Staff) string { return s.ExternalID },
		l.repos.Staff.Upsert,
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "upsert staff")
	}
	if result.Deleted, err = l.repos.Staff.DeleteExcept(ctx, state, keep); err != nil {
		return result, errors.Wrap(err, "delete stale staff")
	}
	return result, nil
}

type CaseLoader struct {
	repos       domain.Repositories
	concurrency int
}

func NewCaseLoader(repos domain.Repositories, opts LoaderOptions) *CaseLoader {
	return &CaseLoader{repos: repos, concurrency: opts.WriteConcurrency}
}

// Load rejects the batch with a *domain.MissingCasesError when a stored case
// is absent from it. Links to staff or clients that are not stored yet are
// left unset. Cases are never deleted.
func (l *CaseLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityCase, state, len(raw))
	recs, err := records.Decode[records.CaseRecord](domain.EntityCase, state, raw)
	if err != nil {
		return result, err
	}

	incoming := make(map[string]struct{}, len(recs))
	var staffIDs, clientIDs []string
	for _, r := range recs {
		incoming[r.ExternalID] = struct{}{}
		if r.StaffID != nil {
			staffIDs = append(staffIDs, *r.StaffID)
		}
		if r.ClientID != nil {
			clientIDs = append(clientIDs, *r.ClientID)
		}
	}

	stored, err := l.repos.Cases.ExternalIDs(ctx, state)
	if err != nil {
		return result, errors.Wrap(err, "list case ids")
	}
	var missing []string
	for _, id := range stored {
		if _, ok := incoming[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return result, &domain.MissingCasesError{StateCode: state, IDs: missing}
	}

	staff, err := l.repos.Staff.ExistingIDs(ctx, state, staffIDs)
	if err != nil {
		return result, errors.Wrap(err, "resolve staff links")
	}
	clients, err := l.repos.Clients.ExistingIDs(ctx, state, clientIDs)
	if err != nil {
		return result, errors.Wrap(err, "resolve client links")
	}
	staffSet, clientSet := toSet(staff), toSet(clients)
	staffExists := func(id string) bool { _, ok := staffSet[id]; return ok }
	clientExists := func(id string) bool { _, ok := clientSet[id]; return ok }

	cases := make([]domain.Case, 0, len(recs))
	for _, r := range recs {
		cases = append(cases, r.Case(staffExists, clientExists))
	}
	err = writeKeyed(ctx, l.concurrency, cases,
		func(c domain.Case) string { return c.ExternalID },
		l.repos.Cases.Upsert,
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "upsert cases")
	}
	return result, nil
}

type OpportunityLoader struct {
	repos       domain.Repositories
	concurrency int
}

func NewOpportunityLoader(repos domain.Repositories, opts LoaderOptions) *OpportunityLoader {
	return &OpportunityLoader{repos: repos, concurrency: opts.WriteConcurrency}
}

// Load upserts by (opportunity name, provider name) and deletes the state's
// opportunities whose pair is absent from the batch.
func (l *OpportunityLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityOpportunity, state, len(raw))
	recs, err := records.Decode[records.OpportunityRecord](domain.EntityOpportunity, state, raw)
	if err != nil {
		return result, err
	}

	opportunities := make([]domain.Opportunity, 0, len(recs))
	keep := make([]domain.OpportunityKey, 0, len(recs))
	for _, r := range recs {
		o := r.Opportunity(state)
		opportunities = append(opportunities, o)
		keep = append(keep, o.Key())
	}

	err = writeKeyed(ctx, l.concurrency, opportunities,
		func(o domain.Opportunity) string { return o.OpportunityName + "\x00" + o.ProviderName },
		l.repos.Opportunities.Upsert,
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "upsert opportunities")
	}
	if result.Deleted, err = l.repos.Opportunities.DeleteExcept(ctx, state, keep); err != nil {
		return result, errors.Wrap(err, "delete stale opportunities")
	}
	return result, nil
}

type InsightLoader struct {
	repos       domain.Repositories
	concurrency int
}

func NewInsightLoader(repos domain.Repositories, opts LoaderOptions) *InsightLoader {
	return &InsightLoader{repos: repos, concurrency: opts.WriteConcurrency}
}

// Load replaces every insight of the state with the batch.
func (l *InsightLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityInsight, state, len(raw))
	recs, err := records.Decode[records.InsightRecord](domain.EntityInsight, state, raw)
	if err != nil {
		return result, err
	}

	if result.Deleted, err = l.repos.Insights.DeleteAll(ctx, state); err != nil {
		return result, errors.Wrap(err, "delete insights")
	}

	type indexed struct {
		i  int
		in domain.Insight
	}
	insights := make([]indexed, 0, len(recs))
	for i, r := range recs {
		insights = append(insights, indexed{i: i, in: r.Insight()})
	}
	err = writeKeyed(ctx, l.concurrency, insights,
		func(x indexed) string { return strconv.Itoa(x.i) },
		func(ctx context.Context, x indexed) (domain.Outcome, error) {
			return domain.OutcomeCreated, l.repos.Insights.Create(ctx, x.in)
		},
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "create insights")
	}
	return result, nil
}

type OffenseLoader struct {
	repos       domain.Repositories
	reporter    Reporter
	concurrency int
}

func NewOffenseLoader(repos domain.Repositories, reporter Reporter, opts LoaderOptions) *OffenseLoader {
	return &OffenseLoader{repos: repos, reporter: reporter, concurrency: opts.WriteConcurrency}
}

// Load inserts the offenses that are not stored yet. Stored offenses missing
// from the batch are reported once and kept.
func (l *OffenseLoader) Load(ctx context.Context, state domain.StateCode, raw []json.RawMessage) (domain.LoadResult, error) {
	result := newResult(domain.EntityOffense, state, len(raw))
	recs, err := records.Decode[records.OffenseRecord](domain.EntityOffense, state, raw)
	if err != nil {
		return result, err
	}

	offenses := make([]domain.Offense, 0, len(recs))
	incoming := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		o := r.Offense()
		offenses = append(offenses, o)
		incoming[o.Name] = struct{}{}
	}

	stored, err := l.repos.Offenses.Names(ctx, state)
	if err != nil {
		return result, errors.Wrap(err, "list offense names")
	}
	for _, name := range stored {
		if _, ok := incoming[name]; !ok {
			result.Orphaned = append(result.Orphaned, name)
		}
	}
	if len(result.Orphaned) > 0 {
		sort.Strings(result.Orphaned)
		l.reporter.Report(ctx, fmt.Sprintf(
			"Offenses exist in the store but are missing from the %s offense import: %s",
			state, strings.Join(result.Orphaned, ", "),
		))
	}

	err = writeKeyed(ctx, l.concurrency, offenses,
		func(o domain.Offense) string { return o.Name },
		l.repos.Offenses.InsertIfAbsent,
		&result,
	)
	if err != nil {
		return result, errors.Wrap(err, "insert offenses")
	}
	return result, nil
}
