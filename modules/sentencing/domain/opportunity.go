package domain

import "time"

// DefaultProviderName fills the provider component of the opportunity key when
// the upstream record has none, since neither key component may be null.
const DefaultProviderName = "default"

type OpportunityKey struct {
	OpportunityName string
	ProviderName    string
}

type Opportunity struct {
	OpportunityName     string
	ProviderName        string
	StateCode           StateCode
	Description         *string
	ProviderPhoneNumber *string
	ProviderWebsite     *string
	ProviderAddress     *string
	TotalCapacity       *int
	AvailableCapacity   *int
	NeedsAddressed      []string
	Genders             []Gender
	LastUpdatedAt       time.Time

	DevelopmentalDisabilityDiagnosisCriterion             bool
	NoCurrentOrPriorSexOffenseCriterion                   bool
	NoCurrentOrPriorViolentOffenseCriterion               bool
	NoPendingFelonyChargesInAnotherCountyOrStateCriterion bool
	EntryOfGuiltyPleaCriterion                            bool
	VeteranStatusCriterion                                bool
	PriorCriminalHistoryCriterion                         *string
	DiagnosedMentalHealthDiagnosisCriterion               []string
	AsamLevelOfCareRecommendationCriterion                *string
	DiagnosedSubstanceUseDisorderCriterion                *string
	MinLSIRScoreCriterion                                 *int
	MaxLSIRScoreCriterion                                 *int
	MinAge                                                *int
	MaxAge                                                *int
	District                                              *string
	AdditionalNotes                                       *string
	GenericDescription                                    *string
}

func (o Opportunity) Key() OpportunityKey {
	return OpportunityKey{OpportunityName: o.OpportunityName, ProviderName: o.ProviderName}
}
