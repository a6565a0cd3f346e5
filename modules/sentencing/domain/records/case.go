package records

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

type CaseRecord struct {
	ExternalID     string            `json:"external_id" validate:"required"`
	StateCode      *domain.StateCode `json:"state_code" validate:"required,statecode"`
	StaffID        *string           `json:"staff_id"`
	ClientID       *string           `json:"client_id"`
	DueDate        *Date             `json:"due_date"`
	CompletionDate *Date             `json:"completion_date"`
	SentenceDate   *Date             `json:"sentence_date"`
	AssignedDate   *Date             `json:"assigned_date"`
	County         string            `json:"county" validate:"required"`
	LSIRScore      *Int              `json:"lsir_score"`
	LSIRLevel      *string           `json:"lsir_level"`
	ReportType     *string           `json:"report_type" validate:"omitempty,reporttype"`
}

func (r *CaseRecord) recordState() domain.StateCode { return stateOf(r.StateCode) }

// Case maps a validated record. staffExists and clientExists report whether
// the referenced rows are already stored; unresolved links are left nil.
func (r CaseRecord) Case(staffExists, clientExists func(id string) bool) domain.Case {
	c := domain.Case{
		ExternalID:        r.ExternalID,
		StateCode:         *r.StateCode,
		DueDate:           r.DueDate.Ptr(),
		CompletionDate:    r.CompletionDate.Ptr(),
		SentenceDate:      r.SentenceDate.Ptr(),
		AssignedDate:      r.AssignedDate.Ptr(),
		County:            r.County,
		LSIRScore:         r.LSIRScore.Ptr(),
		LSIRLevel:         r.LSIRLevel,
		IsLSIRScoreLocked: r.LSIRScore != nil,
	}
	if r.StaffID != nil && staffExists(*r.StaffID) {
		id := *r.StaffID
		c.StaffID = &id
	}
	if r.ClientID != nil && clientExists(*r.ClientID) {
		id := *r.ClientID
		c.ClientID = &id
	}
	if r.ReportType != nil {
		if rt, ok := domain.ReportTypeFromExternal(*r.ReportType); ok {
			c.ReportType = &rt
			c.IsReportTypeLocked = true
		}
	}
	return c
}
