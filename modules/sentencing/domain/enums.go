package domain

import (
	"encoding/json"
	"strings"
)

type StateCode string

const (
	StateCodeUSID StateCode = "US_ID"
	StateCodeUSND StateCode = "US_ND"
)

// legacyStateCodes maps upstream state codes onto the codes stored here.
var legacyStateCodes = map[string]StateCode{
	"US_IX": StateCodeUSID,
}

var knownStateCodes = map[StateCode]struct{}{
	StateCodeUSID: {},
	StateCodeUSND: {},
}

// NormalizeStateCode maps legacy codes (US_IX) to their stored form.
func NormalizeStateCode(raw string) StateCode {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if mapped, ok := legacyStateCodes[s]; ok {
		return mapped
	}
	return StateCode(s)
}

func (s StateCode) Valid() bool {
	_, ok := knownStateCodes[s]
	return ok
}

type Gender string

const (
	GenderMale            Gender = "MALE"
	GenderFemale          Gender = "FEMALE"
	GenderNonBinary       Gender = "NON_BINARY"
	GenderTrans           Gender = "TRANS"
	GenderTransFemale     Gender = "TRANS_FEMALE"
	GenderTransMale       Gender = "TRANS_MALE"
	GenderExternalUnknown Gender = "EXTERNAL_UNKNOWN"
	GenderInternalUnknown Gender = "INTERNAL_UNKNOWN"
)

var knownGenders = map[Gender]struct{}{
	GenderMale:            {},
	GenderFemale:          {},
	GenderNonBinary:       {},
	GenderTrans:           {},
	GenderTransFemale:     {},
	GenderTransMale:       {},
	GenderExternalUnknown: {},
	GenderInternalUnknown: {},
}

func (g Gender) Valid() bool {
	_, ok := knownGenders[g]
	return ok
}

// Known reports whether g carries real information, as opposed to an unknown marker.
func (g Gender) Known() bool {
	return g.Valid() && g != GenderExternalUnknown && g != GenderInternalUnknown
}

type ReportType string

const (
	ReportTypeFullPSI                        ReportType = "FullPSI"
	ReportTypeFileReview                     ReportType = "FileReview"
	ReportTypeFileReviewWithUpdatedLSIRScore ReportType = "FileReviewWithUpdatedLSIRScore"
)

// externalReportTypes is the fixed translation table from upstream report type labels.
var externalReportTypes = map[string]ReportType{
	"PSI Assigned Full":              ReportTypeFullPSI,
	"PSI File Review Assigned":       ReportTypeFileReview,
	"PSI File Review w/LSI Assigned": ReportTypeFileReviewWithUpdatedLSIRScore,
}

// ReportTypeFromExternal translates an upstream label; ok is false for unmapped labels.
func ReportTypeFromExternal(label string) (ReportType, bool) {
	rt, ok := externalReportTypes[label]
	return rt, ok
}

type RecommendationType string

const (
	RecommendationProbation RecommendationType = "Probation"
	RecommendationRider     RecommendationType = "Rider"
	RecommendationTerm      RecommendationType = "Term"
)

var RecommendationTypes = []RecommendationType{
	RecommendationProbation,
	RecommendationRider,
	RecommendationTerm,
}

// Entity names one importable entity type.
type Entity string

const (
	EntityClient      Entity = "client"
	EntityStaff       Entity = "staff"
	EntityCase        Entity = "case"
	EntityOpportunity Entity = "opportunity"
	EntityInsight     Entity = "insight"
	EntityOffense     Entity = "offense"
)

func (s *StateCode) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NormalizeStateCode(raw)
	return nil
}
