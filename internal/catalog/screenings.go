package catalog

import (
	"github.com/cds-rules-server/internal/domain"
)

// ScreeningRules returns the periodic screening catalog (USPSTF-derived).
// The scheduler treats this slice as immutable configuration.
func ScreeningRules() []domain.ScreeningRule {
	return []domain.ScreeningRule{
		{
			Name:           "Colorectal Cancer Screening",
			ScreeningType:  "colonoscopy",
			AgeRange:       domain.AgeRange{Min: 45, Max: 75},
			FrequencyYears: 10,
			Priority:       domain.HIGH_PRIORITY,
			EvidenceGrade:  domain.GRADE_A,
		},
		{
			Name:              "Breast Cancer Screening",
			ScreeningType:     "mammography",
			AgeRange:          domain.AgeRange{Min: 40, Max: 74},
			GenderRestriction: gptr(domain.FEMALE),
			FrequencyYears:    2,
			Priority:          domain.HIGH_PRIORITY,
			EvidenceGrade:     domain.GRADE_B,
		},
		{
			Name:              "Cervical Cancer Screening",
			ScreeningType:     "cervical_cytology",
			AgeRange:          domain.AgeRange{Min: 21, Max: 65},
			GenderRestriction: gptr(domain.FEMALE),
			FrequencyYears:    3,
			Priority:          domain.HIGH_PRIORITY,
			EvidenceGrade:     domain.GRADE_A,
		},
		{
			Name:           "Lung Cancer Screening",
			ScreeningType:  "low_dose_ct",
			AgeRange:       domain.AgeRange{Min: 50, Max: 80},
			FrequencyYears: 1,
			RiskFactors: &domain.RiskFactorCriteria{
				TobaccoUse: bptr(true),
			},
			Priority:      domain.HIGH_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
		},
		{
			Name:              "Abdominal Aortic Aneurysm Screening",
			ScreeningType:     "aaa_ultrasound",
			AgeRange:          domain.AgeRange{Min: 65, Max: 75},
			GenderRestriction: gptr(domain.MALE),
			// One-time screening; a century interval never re-triggers.
			FrequencyYears: 100,
			RiskFactors: &domain.RiskFactorCriteria{
				TobaccoUse: bptr(true),
			},
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
		},
		{
			Name:           "Prediabetes and Diabetes Screening",
			ScreeningType:  "hba1c",
			AgeRange:       domain.AgeRange{Min: 35, Max: 70},
			FrequencyYears: 3,
			RiskFactors: &domain.RiskFactorCriteria{
				MinBMI: fptr(25),
			},
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
		},
		{
			Name:           "Lipid Disorder Screening",
			ScreeningType:  "lipid_panel",
			AgeRange:       domain.AgeRange{Min: 40, Max: 75},
			FrequencyYears: 5,
			Priority:       domain.MEDIUM_PRIORITY,
			EvidenceGrade:  domain.GRADE_B,
		},
		{
			Name:            "Blood Pressure Screening",
			ScreeningType:   "blood_pressure",
			AgeRange:        domain.AgeRange{Min: 18, Max: 120},
			FrequencyYears:  1,
			Priority:        domain.MEDIUM_PRIORITY,
			EvidenceGrade:   domain.GRADE_A,
		},
		{
			Name:              "Osteoporosis Screening",
			ScreeningType:     "dexa_scan",
			AgeRange:          domain.AgeRange{Min: 65, Max: 120},
			GenderRestriction: gptr(domain.FEMALE),
			FrequencyYears:    2,
			Priority:          domain.MEDIUM_PRIORITY,
			EvidenceGrade:     domain.GRADE_B,
		},
		{
			Name:            "Depression Screening",
			ScreeningType:   "phq9",
			AgeRange:        domain.AgeRange{Min: 12, Max: 120},
			FrequencyYears:  1,
			Priority:        domain.LOW_PRIORITY,
			EvidenceGrade:   domain.GRADE_B,
		},
		{
			Name:            "Hepatitis C Screening",
			ScreeningType:   "hcv_antibody",
			AgeRange:        domain.AgeRange{Min: 18, Max: 79},
			FrequencyYears:  100,
			Priority:        domain.LOW_PRIORITY,
			EvidenceGrade:   domain.GRADE_B,
		},
	}
}
