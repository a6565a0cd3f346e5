package domain

import "context"

// Outcome tells a caller what an upsert did to the store.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Every repository method is atomic on its own. Methods that touch several
// tables (linking cases, nested insight children) run in one transaction.

type ClientRepository interface {
	// Upsert writes c and points the cases in c.CaseIDs at it. Ids of cases
	// that do not exist are ignored.
	Upsert(ctx context.Context, c Client) (Outcome, error)
	ExistingIDs(ctx context.Context, state StateCode, ids []string) ([]string, error)
	DeleteExcept(ctx context.Context, state StateCode, keep []string) (int64, error)
	List(ctx context.Context, state StateCode) ([]Client, error)
}

type StaffRepository interface {
	// Upsert writes s and links the cases in s.CaseIDs to it.
	Upsert(ctx context.Context, s Staff) (Outcome, error)
	ExistingIDs(ctx context.Context, state StateCode, ids []string) ([]string, error)
	DeleteExcept(ctx context.Context, state StateCode, keep []string) (int64, error)
	List(ctx context.Context, state StateCode) ([]Staff, error)
}

type CaseRepository interface {
	ExternalIDs(ctx context.Context, state StateCode) ([]string, error)
	// Upsert writes c. On update, nil optional fields (links, dates, LSIR
	// score and level, report type) keep their stored values.
	Upsert(ctx context.Context, c Case) (Outcome, error)
	List(ctx context.Context, state StateCode) ([]Case, error)
}

type OpportunityRepository interface {
	Upsert(ctx context.Context, o Opportunity) (Outcome, error)
	DeleteExcept(ctx context.Context, state StateCode, keep []OpportunityKey) (int64, error)
	List(ctx context.Context, state StateCode) ([]Opportunity, error)
}

type InsightRepository interface {
	DeleteAll(ctx context.Context, state StateCode) (int64, error)
	// Create inserts in with its series and dispositions, creating the
	// referenced offenses by name when missing.
	Create(ctx context.Context, in Insight) error
	List(ctx context.Context, state StateCode) ([]Insight, error)
}

type OffenseRepository interface {
	Names(ctx context.Context, state StateCode) ([]string, error)
	// InsertIfAbsent never updates an existing offense.
	InsertIfAbsent(ctx context.Context, o Offense) (Outcome, error)
	List(ctx context.Context, state StateCode) ([]Offense, error)
}

// Repositories bundles the stores used by the loaders.
type Repositories struct {
	Clients       ClientRepository
	Staff         StaffRepository
	Cases         CaseRepository
	Opportunities OpportunityRepository
	Insights      InsightRepository
	Offenses      OffenseRepository
}
