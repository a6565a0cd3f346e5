package domain

import "time"

type Case struct {
	ExternalID string
	StateCode  StateCode
	// StaffID and ClientID are nil until the referenced row exists.
	StaffID            *string
	ClientID           *string
	DueDate            *time.Time
	CompletionDate     *time.Time
	SentenceDate       *time.Time
	AssignedDate       *time.Time
	County             string
	LSIRScore          *int
	LSIRLevel          *string
	ReportType         *ReportType
	IsLSIRScoreLocked  bool
	IsReportTypeLocked bool
}
