package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

type ClientRecord struct {
	ExternalID      string            `json:"external_id" validate:"required"`
	PseudonymizedID string            `json:"pseudonymized_id" validate:"required"`
	CaseIDs         *StringList       `json:"case_ids" validate:"required"`
	StateCode       *domain.StateCode `json:"state_code" validate:"required,statecode"`
	FullName        *Name             `json:"full_name" validate:"required"`
	Gender          *domain.Gender    `json:"gender" validate:"required,gender"`
	County          *string           `json:"county"`
	BirthDate       *Date             `json:"birth_date" validate:"required"`
	District        *string           `json:"district"`
}

func (r *ClientRecord) recordState() domain.StateCode { return stateOf(r.StateCode) }

// Client maps a validated record. Missing county becomes domain.DefaultCounty
// and a known gender locks the field against later unknown values.
func (r ClientRecord) Client() domain.Client {
	county := domain.DefaultCounty
	if r.County != nil && *r.County != "" {
		county = *r.County
	}
	return domain.Client{
		ExternalID:      r.ExternalID,
		PseudonymizedID: r.PseudonymizedID,
		StateCode:       *r.StateCode,
		FullName:        string(*r.FullName),
		Gender:          *r.Gender,
		IsGenderLocked:  r.Gender.Known(),
		County:          county,
		BirthDate:       r.BirthDate.Time,
		District:        r.District,
		CaseIDs:         []string(*r.CaseIDs),
	}
}
