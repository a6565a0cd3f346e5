package domain

import "time"

type Client struct {
	ExternalID      string
	PseudonymizedID string
	StateCode       StateCode
	FullName        string
	Gender          Gender
	IsGenderLocked  bool
	County          string
	BirthDate       time.Time
	District        *string
	CaseIDs         []string
}

const DefaultCounty = "UNKNOWN"
