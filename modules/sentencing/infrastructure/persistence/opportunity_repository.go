package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

const opportunityColumns = `
	opportunity_name, provider_name, state_code, description, provider_phone_number,
	provider_website, provider_address, total_capacity, available_capacity, needs_addressed,
	genders, last_updated_at,
	developmental_disability_diagnosis_criterion,
	no_current_or_prior_sex_offense_criterion,
	no_current_or_prior_violent_offense_criterion,
	no_pending_felony_charges_in_another_county_or_state_criterion,
	entry_of_guilty_plea_criterion,
	veteran_status_criterion,
	prior_criminal_history_criterion,
	diagnosed_mental_health_diagnosis_criterion,
	asam_level_of_care_recommendation_criterion,
	diagnosed_substance_use_disorder_criterion,
	min_lsir_score_criterion, max_lsir_score_criterion, min_age, max_age,
	district, additional_notes, generic_description`

const (
	opportunityUpsertQuery = `
		INSERT INTO sentencing_opportunities (` + opportunityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		ON CONFLICT (state_code, opportunity_name, provider_name) DO UPDATE SET
			description           = EXCLUDED.description,
			provider_phone_number = EXCLUDED.provider_phone_number,
			provider_website      = EXCLUDED.provider_website,
			provider_address      = EXCLUDED.provider_address,
			total_capacity        = EXCLUDED.total_capacity,
			available_capacity    = EXCLUDED.available_capacity,
			needs_addressed       = EXCLUDED.needs_addressed,
			genders               = EXCLUDED.genders,
			last_updated_at       = EXCLUDED.last_updated_at,
			developmental_disability_diagnosis_criterion                   = EXCLUDED.developmental_disability_diagnosis_criterion,
			no_current_or_prior_sex_offense_criterion                      = EXCLUDED.no_current_or_prior_sex_offense_criterion,
			no_current_or_prior_violent_offense_criterion                  = EXCLUDED.no_current_or_prior_violent_offense_criterion,
			no_pending_felony_charges_in_another_county_or_state_criterion = EXCLUDED.no_pending_felony_charges_in_another_county_or_state_criterion,
			entry_of_guilty_plea_criterion                                 = EXCLUDED.entry_of_guilty_plea_criterion,
			veteran_status_criterion                                       = EXCLUDED.veteran_status_criterion,
			prior_criminal_history_criterion                               = EXCLUDED.prior_criminal_history_criterion,
			diagnosed_mental_health_diagnosis_criterion                    = EXCLUDED.diagnosed_mental_health_diagnosis_criterion,
			asam_level_of_care_recommendation_criterion                    = EXCLUDED.asam_level_of_care_recommendation_criterion,
			diagnosed_substance_use_disorder_criterion                     = EXCLUDED.diagnosed_substance_use_disorder_criterion,
			min_lsir_score_criterion = EXCLUDED.min_lsir_score_criterion,
			max_lsir_score_criterion = EXCLUDED.max_lsir_score_criterion,
			min_age                  = EXCLUDED.min_age,
			max_age                  = EXCLUDED.max_age,
			district                 = EXCLUDED.district,
			additional_notes         = EXCLUDED.additional_notes,
			generic_description      = EXCLUDED.generic_description,
			updated_at               = now()
		RETURNING (xmax = 0)`
	// A row survives only when its exact (name, provider) pair was imported.
	opportunityDeleteQuery = `
		DELETE FROM sentencing_opportunities o
		 WHERE o.state_code = $1
		   AND NOT EXISTS (
		       SELECT 1
		         FROM unnest($2::text[], $3::text[]) AS k(opportunity_name, provider_name)
		        WHERE k.opportunity_name = o.opportunity_name
		          AND k.provider_name = o.provider_name
		   )`
	opportunityListQuery = `SELECT ` + opportunityColumns + `
		  FROM sentencing_opportunities
		 WHERE state_code = $1
		 ORDER BY opportunity_name, provider_name`
)

type OpportunityRepository struct{}

func NewOpportunityRepository() domain.OpportunityRepository {
	return &OpportunityRepository{}
}

func (r *OpportunityRepository) Upsert(ctx context.Context, o domain.Opportunity) (domain.Outcome, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var inserted bool
	if err := tx.QueryRow(ctx, opportunityUpsertQuery,
		o.OpportunityName,
		o.ProviderName,
		string(o.StateCode),
		o.Description,
		o.ProviderPhoneNumber,
		o.ProviderWebsite,
		o.ProviderAddress,
		o.TotalCapacity,
		o.AvailableCapacity,
		nonNil(o.NeedsAddressed),
		gendersToStrings(o.Genders),
		o.LastUpdatedAt,
		o.DevelopmentalDisabilityDiagnosisCriterion,
		o.NoCurrentOrPriorSexOffenseCriterion,
		o.NoCurrentOrPriorViolentOffenseCriterion,
		o.NoPendingFelonyChargesInAnotherCountyOrStateCriterion,
		o.EntryOfGuiltyPleaCriterion,
		o.VeteranStatusCriterion,
		o.PriorCriminalHistoryCriterion,
		nonNil(o.DiagnosedMentalHealthDiagnosisCriterion),
		o.AsamLevelOfCareRecommendationCriterion,
		o.DiagnosedSubstanceUseDisorderCriterion,
		o.MinLSIRScoreCriterion,
		o.MaxLSIRScoreCriterion,
		o.MinAge,
		o.MaxAge,
		o.District,
		o.AdditionalNotes,
		o.GenericDescription,
	).Scan(&inserted); err != nil {
		return 0, errors.Wrapf(err, "upsert opportunity %s/%s", o.OpportunityName, o.ProviderName)
	}
	return outcome(inserted), nil
}

func (r *OpportunityRepository) DeleteExcept(ctx context.Context, state domain.StateCode, keep []domain.OpportunityKey) (int64, error) {
	names := make([]string, 0, len(keep))
	providers := make([]string, 0, len(keep))
	for _, k := range keep {
		names = append(names, k.OpportunityName)
		providers = append(providers, k.ProviderName)
	}
	n, err := exec(ctx, opportunityDeleteQuery, string(state), names, providers)
	if err != nil {
		return 0, errors.Wrap(err, "delete stale opportunities")
	}
	return n, nil
}

func (r *OpportunityRepository) List(ctx context.Context, state domain.StateCode) ([]domain.Opportunity, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, opportunityListQuery, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "list opportunities")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Opportunity, error) {
		var (
			o         domain.Opportunity
			stateCode string
			genders   []string
		)
		err := row.Scan(
			&o.OpportunityName, &o.ProviderName, &stateCode, &o.Description, &o.ProviderPhoneNumber,
			&o.ProviderWebsite, &o.ProviderAddress, &o.TotalCapacity, &o.AvailableCapacity, &o.NeedsAddressed,
			&genders, &o.LastUpdatedAt,
			&o.DevelopmentalDisabilityDiagnosisCriterion,
			&o.NoCurrentOrPriorSexOffenseCriterion,
			&o.NoCurrentOrPriorViolentOffenseCriterion,
			&o.NoPendingFelonyChargesInAnotherCountyOrStateCriterion,
			&o.EntryOfGuiltyPleaCriterion,
			&o.VeteranStatusCriterion,
			&o.PriorCriminalHistoryCriterion,
			&o.DiagnosedMentalHealthDiagnosisCriterion,
			&o.AsamLevelOfCareRecommendationCriterion,
			&o.DiagnosedSubstanceUseDisorderCriterion,
			&o.MinLSIRScoreCriterion, &o.MaxLSIRScoreCriterion, &o.MinAge, &o.MaxAge,
			&o.District, &o.AdditionalNotes, &o.GenericDescription,
		)
		o.StateCode = domain.StateCode(stateCode)
		o.Genders = stringsToGenders(genders)
		return o, err
	})
}
