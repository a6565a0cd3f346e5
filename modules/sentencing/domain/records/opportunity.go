package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

// opportunityGenders translates the audience labels used by the opportunity export.
var opportunityGenders = map[string]domain.Gender{
	"Women": domain.GenderFemale,
	"Men":   domain.GenderMale,
}

// OpportunityRecord follows the opportunity export, which mixes PascalCase
// provider fields with camelCase criteria fields. It carries no state_code;
// the file path supplies it.
type OpportunityRecord struct {
	OpportunityName   string  `json:"OpportunityName" validate:"required"`
	Description       *string `json:"Description"`
	ProviderName      *string `json:"ProviderName"`
	ProviderPhone     *string `json:"CleanedProviderPhoneNumber"`
	ProviderWebsite   *string `json:"ProviderWebsite"`
	ProviderAddress   *string `json:"ProviderAddress"`
	CapacityTotal     *Int    `json:"CapacityTotal"`
	CapacityAvailable *Int    `json:"CapacityAvailable"`

	NeedsAddressed []string `json:"NeedsAddressed" validate:"required,dive,enum=need"`

	DevelopmentalDisabilityDiagnosis *bool `json:"developmentalDisabilityDiagnosisCriterion" validate:"required"`
	NoCurrentOrPriorSexOffense       *bool `json:"noCurrentOrPriorSexOffenseCriterion" validate:"required"`
	NoCurrentOrPriorViolentOffense   *bool `json:"noCurrentOrPriorViolentOffenseCriterion" validate:"required"`
	NoPendingFelonyCharges           *bool `json:"noPendingFelonyChargesInAnotherCountyOrStateCriterion" validate:"required"`
	EntryOfGuiltyPlea                *bool `json:"entryOfGuiltyPleaCriterion" validate:"required"`
	VeteranStatus                    *bool `json:"veteranStatusCriterion" validate:"required"`

	PriorCriminalHistory  *string  `json:"priorCriminalHistoryCriterion" validate:"omitempty,enum=prior_history"`
	MentalHealthDiagnoses []string `json:"diagnosedMentalHealthDiagnosisCriterion" validate:"required,dive,enum=mental_health"`
	AsamLevelOfCare       *string  `json:"asamLevelOfCareRecommendationCriterion" validate:"omitempty,enum=asam"`
	SubstanceUseDisorder  *string  `json:"diagnosedSubstanceUseDisorderCriterion" validate:"omitempty,enum=substance_use"`
	MinLSIRScore          *Int     `json:"minLsirScoreCriterion"`
	MaxLSIRScore          *Int     `json:"maxLsirScoreCriterion"`
	MinAge                *Int     `json:"minAge"`
	MaxAge                *Int     `json:"maxAge"`
	District              *string  `json:"district"`
	LastUpdatedDate       *Date    `json:"lastUpdatedDate" validate:"required"`
	AdditionalNotes       *string  `json:"additionalNotes"`
	Genders               []string `json:"genders" validate:"omitempty,dive,oneof=Women Men"`
	GenericDescription    *string  `json:"genericDescription"`
}

// Opportunity maps a validated record for state.
func (r OpportunityRecord) Opportunity(state domain.StateCode) domain.Opportunity {
	provider := domain.DefaultProviderName
	if r.ProviderName != nil {
		provider = *r.ProviderName
	}
	genders := make([]domain.Gender, 0, len(r.Genders))
	for _, g := range r.Genders {
		genders = append(genders, opportunityGenders[g])
	}
	return domain.Opportunity{
		OpportunityName:     r.OpportunityName,
		ProviderName:        provider,
		StateCode:           state,
		Description:         r.Description,
		ProviderPhoneNumber: r.ProviderPhone,
		ProviderWebsite:     r.ProviderWebsite,
		ProviderAddress:     r.ProviderAddress,
		TotalCapacity:       r.CapacityTotal.Ptr(),
		AvailableCapacity:   r.CapacityAvailable.Ptr(),
		NeedsAddressed:      r.NeedsAddressed,
		Genders:             genders,
		LastUpdatedAt:       r.LastUpdatedDate.Time,

		DevelopmentalDisabilityDiagnosisCriterion:             *r.DevelopmentalDisabilityDiagnosis,
		NoCurrentOrPriorSexOffenseCriterion:                   *r.NoCurrentOrPriorSexOffense,
		NoCurrentOrPriorViolentOffenseCriterion:               *r.NoCurrentOrPriorViolentOffense,
		NoPendingFelonyChargesInAnotherCountyOrStateCriterion: *r.NoPendingFelonyCharges,
		EntryOfGuiltyPleaCriterion:                            *r.EntryOfGuiltyPlea,
		VeteranStatusCriterion:                                *r.VeteranStatus,
		PriorCriminalHistoryCriterion:                         r.PriorCriminalHistory,
		DiagnosedMentalHealthDiagnosisCriterion:               r.MentalHealthDiagnoses,
		AsamLevelOfCareRecommendationCriterion:                r.AsamLevelOfCare,
		DiagnosedSubstanceUseDisorderCriterion:                r.SubstanceUseDisorder,
		MinLSIRScoreCriterion:                                 r.MinLSIRScore.Ptr(),
		MaxLSIRScoreCriterion:                                 r.MaxLSIRScore.Ptr(),
		MinAge:                                                r.MinAge.Ptr(),
		MaxAge:                                                r.MaxAge.Ptr(),
		District:                                              r.District,
		AdditionalNotes:                                       r.AdditionalNotes,
		GenericDescription:                                    r.GenericDescription,
	}
}
