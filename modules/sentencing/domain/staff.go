package domain

type Staff struct {
	ExternalID      string
	PseudonymizedID string
	StateCode       StateCode
	FullName        string
	Email           string
	CaseIDs         []string
}
