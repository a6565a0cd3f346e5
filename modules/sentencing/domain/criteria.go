package domain

// Eligibility criterion vocabularies accepted for opportunities.
var (
	NeedsToBeAddressed = []string{
		"AngerManagement", "CaseManagement", "ClothingAndToiletries", "DomesticViolenceIssues",
		"Education", "FamilyServices", "FinancialAssistance", "FoodInsecurity",
		"GeneralReEntrySupport", "Healthcare", "HousingOpportunities", "JobTrainingOrOpportunities",
		"MentalHealth", "SubstanceUse", "Transportation", "Other",
	}

	PriorCriminalHistoryCriteria = []string{"None", "Significant"}

	MentalHealthDiagnosisCriteria = []string{
		"BipolarDisorder", "BorderlinePersonalityDisorder", "DelusionalDisorder",
		"MajorDepressiveDisorder", "PsychoticDisorderNotOtherwiseSpecified", "Schizophrenia",
		"SchizoaffectiveDisorder", "Other", "Any",
	}

	AsamLevelOfCareCriteria = []string{
		"LongTermRemissionMonitoring", "OutpatientTherapy", "MedicallyManagedOutpatient",
		"IntensiveOutpatient", "HighIntensityOutpatient", "MedicallyManagedIntensiveOutpatient",
		"ClinicallyManagedLowIntensityResidential", "ClinicallyManagedHighIntensityResidential",
		"MedicallyManagedResidential", "MedicallyManagedIntensiveInpatient", "Any",
	}

	SubstanceUseDisorderCriteria = []string{"Mild", "Moderate", "Severe", "Any"}
)
