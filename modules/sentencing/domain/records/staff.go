package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

type StaffRecord struct {
	ExternalID      string            `json:"external_id" validate:"required"`
	PseudonymizedID string            `json:"pseudonymized_id" validate:"required"`
	CaseIDs         *StringList       `json:"case_ids" validate:"required"`
	StateCode       *domain.StateCode `json:"state_code" validate:"required,statecode"`
	FullName        *Name             `json:"full_name" validate:"required"`
	Email           string            `json:"email" validate:"required"`
}

func (r *StaffRecord) recordState() domain.StateCode { return stateOf(r.StateCode) }

func (r StaffRecord) Staff() domain.Staff {
	return domain.Staff{
		ExternalID:      r.ExternalID,
		PseudonymizedID: r.PseudonymizedID,
		StateCode:       *r.StateCode,
		FullName:        string(*r.FullName),
		Email:           r.Email,
		CaseIDs:         []string(*r.CaseIDs),
	}
}
