package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

type OffenseRecord struct {
	StateCode    *domain.StateCode `json:"state_code" validate:"required,statecode"`
	Charge       string            `json:"charge" validate:"required"`
	IsSexOffense *bool             `json:"is_sex_offense"`
	IsViolent    *bool             `json:"is_violent"`
}

func (r *OffenseRecord) recordState() domain.StateCode { return stateOf(r.StateCode) }

func (r OffenseRecord) Offense() domain.Offense {
	return domain.Offense{
		Name:             r.Charge,
		StateCode:        *r.StateCode,
		IsSexOffense:     r.IsSexOffense,
		IsViolentOffense: r.IsViolent,
	}
}
