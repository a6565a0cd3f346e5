package persistence

import "github.com/iota-uz/sentencing-etl/modules/sentencing/domain"

// NewRepositories returns the Postgres repositories. They run on the
// transaction or pool carried by the context.
func NewRepositories() domain.Repositories {
	return domain.Repositories{
		Clients:       NewClientRepository(),
		Staff:         NewStaffRepository(),
		Cases:         NewCaseRepository(),
		Opportunities: NewOpportunityRepository(),
		Insights:      NewInsightRepository(),
		Offenses:      NewOffenseRepository(),
	}
}
