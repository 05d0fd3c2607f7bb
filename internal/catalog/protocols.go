package catalog

import (
	"github.com/cds-rules-server/internal/domain"
)

// ptr helpers for optional applicability criteria.
func iptr(v int) *int                       { return &v }
func fptr(v float64) *float64               { return &v }
func bptr(v bool) *bool                     { return &v }
func gptr(v domain.Gender) *domain.Gender   { return &v }

// Protocols returns the guideline protocol catalog keyed by condition. The
// slice is the construction input for the read-only ProtocolCatalog; callers
// must not mutate entries after construction.
func Protocols() []domain.Protocol {
	return []domain.Protocol{
		{
			ID:            "htn-mgmt-2017",
			ConditionKey:  "hypertension",
			Name:          "Hypertension Management",
			Source:        "ACC/AHA 2017",
			Priority:      domain.HIGH_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MONITORING, Text: "Home blood pressure monitoring twice daily", EvidenceGrade: domain.GRADE_A, Frequency: "daily"},
				{Category: domain.LIFESTYLE, Text: "Sodium restriction below 2.3 g/day, DASH diet", EvidenceGrade: domain.GRADE_A},
				{Category: domain.MEDICATION, Text: "Initiate first-line antihypertensive if BP remains >= 140/90", EvidenceGrade: domain.GRADE_A},
			},
		},
		{
			ID:            "dm2-glycemic-2024",
			ConditionKey:  "type2_diabetes",
			Name:          "Type 2 Diabetes Glycemic Control",
			Source:        "ADA Standards of Care 2024",
			Priority:      domain.HIGH_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
				LabRanges: map[string]domain.LabRange{
					"hba1c": {Min: fptr(6.5)},
				},
			},
			Interventions: []domain.Intervention{
				{Category: domain.MONITORING, Text: "HbA1c every 3 months until at goal, then every 6 months", EvidenceGrade: domain.GRADE_A, Frequency: "quarterly"},
				{Category: domain.MEDICATION, Text: "Metformin first line unless contraindicated", EvidenceGrade: domain.GRADE_A},
				{Category: domain.NUTRITION, Text: "Referral to diabetes self-management education", EvidenceGrade: domain.GRADE_B},
			},
		},
		{
			ID:            "dm2-nephropathy-screen",
			ConditionKey:  "type2_diabetes",
			Name:          "Diabetic Nephropathy Screening",
			Source:        "ADA Standards of Care 2024",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
			},
			Interventions: []domain.Intervention{
				{Category: domain.SCREENING, Text: "Annual urine albumin-to-creatinine ratio and eGFR", EvidenceGrade: domain.GRADE_B, Frequency: "annual"},
			},
		},
		{
			ID:            "lipid-statin-2018",
			ConditionKey:  "hyperlipidemia",
			Name:          "Statin Therapy for Hyperlipidemia",
			Source:        "AHA/ACC 2018 Cholesterol Guideline",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(40),
				MaxAge: iptr(75),
				LabRanges: map[string]domain.LabRange{
					"ldl": {Min: fptr(70)},
				},
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "Moderate-intensity statin; high-intensity if LDL >= 190 mg/dL", EvidenceGrade: domain.GRADE_A},
				{Category: domain.MONITORING, Text: "Repeat lipid panel 4-12 weeks after statin initiation", EvidenceGrade: domain.GRADE_A, Frequency: "quarterly"},
			},
		},
		{
			ID:            "asthma-stepwise-gina",
			ConditionKey:  "asthma",
			Name:          "Asthma Stepwise Therapy",
			Source:        "GINA 2023",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "ICS-formoterol as-needed for step 1-2", EvidenceGrade: domain.GRADE_A},
				{Category: domain.MONITORING, Text: "Asthma control questionnaire at every visit", EvidenceGrade: domain.GRADE_B, Frequency: "per-visit"},
			},
		},
		{
			ID:            "copd-gold-2023",
			ConditionKey:  "copd",
			Name:          "COPD Maintenance Therapy",
			Source:        "GOLD 2023",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(40),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "LAMA or LAMA/LABA per exacerbation risk group", EvidenceGrade: domain.GRADE_A},
				{Category: domain.LIFESTYLE, Text: "Tobacco cessation counseling and pharmacotherapy", EvidenceGrade: domain.GRADE_A},
				{Category: domain.SCREENING, Text: "Annual spirometry", EvidenceGrade: domain.GRADE_B, Frequency: "annual"},
			},
		},
		{
			ID:            "ckd-kdigo-2024",
			ConditionKey:  "ckd",
			Name:          "CKD Progression Management",
			Source:        "KDIGO 2024",
			Priority:      domain.HIGH_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				LabRanges: map[string]domain.LabRange{
					"egfr": {Max: fptr(60)},
				},
			},
			Interventions: []domain.Intervention{
				{Category: domain.MONITORING, Text: "eGFR and uACR at least annually, more often for G3b+", EvidenceGrade: domain.GRADE_A, Frequency: "annual"},
				{Category: domain.MEDICATION, Text: "ACE inhibitor or ARB titrated to maximum tolerated dose", EvidenceGrade: domain.GRADE_A},
				{Category: domain.REFERRAL, Text: "Nephrology referral when eGFR < 30", EvidenceGrade: domain.GRADE_B},
			},
		},
		{
			ID:            "hf-gdmt-2022",
			ConditionKey:  "heart_failure",
			Name:          "Heart Failure Guideline-Directed Medical Therapy",
			Source:        "AHA/ACC/HFSA 2022",
			Priority:      domain.CRITICAL_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "Four-pillar GDMT: ARNI/ACEi, beta-blocker, MRA, SGLT2i", EvidenceGrade: domain.GRADE_A},
				{Category: domain.MONITORING, Text: "Daily weight; report gain > 2 kg in 3 days", EvidenceGrade: domain.GRADE_B, Frequency: "daily"},
			},
		},
		{
			ID:            "afib-anticoag-2023",
			ConditionKey:  "atrial_fibrillation",
			Name:          "Atrial Fibrillation Anticoagulation",
			Source:        "ACC/AHA/ACCP/HRS 2023",
			Priority:      domain.HIGH_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "DOAC for CHA2DS2-VASc >= 2 (men) or >= 3 (women)", EvidenceGrade: domain.GRADE_A},
			},
		},
		{
			ID:            "thyroid-replacement",
			ConditionKey:  "hypothyroidism",
			Name:          "Levothyroxine Replacement",
			Source:        "ATA 2014",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
			Applicability: domain.ApplicabilityCriteria{},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "Weight-based levothyroxine, re-check TSH in 6-8 weeks", EvidenceGrade: domain.GRADE_B},
				{Category: domain.MONITORING, Text: "Annual TSH once stable", EvidenceGrade: domain.GRADE_B, Frequency: "annual"},
			},
		},
		{
			ID:            "depression-phq9",
			ConditionKey:  "depression",
			Name:          "Depression Measurement-Based Care",
			Source:        "APA 2019",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(12),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MONITORING, Text: "PHQ-9 at baseline and every 4 weeks during treatment", EvidenceGrade: domain.GRADE_B, Frequency: "monthly"},
				{Category: domain.REFERRAL, Text: "Behavioral health referral for PHQ-9 >= 15", EvidenceGrade: domain.GRADE_B},
			},
		},
		{
			ID:            "anemia-workup",
			ConditionKey:  "anemia",
			Name:          "Anemia Diagnostic Workup",
			Source:        "ASH",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_C,
			Applicability: domain.ApplicabilityCriteria{},
			Interventions: []domain.Intervention{
				{Category: domain.SCREENING, Text: "Iron studies, B12, folate, reticulocyte count", EvidenceGrade: domain.GRADE_C},
			},
		},
		{
			ID:            "weight-mgmt-lifestyle",
			ConditionKey:  "obesity",
			Name:          "Intensive Lifestyle Weight Management",
			Source:        "USPSTF 2018",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(18),
				LabRanges: map[string]domain.LabRange{
					"bmi": {Min: fptr(30)},
				},
			},
			Interventions: []domain.Intervention{
				{Category: domain.LIFESTYLE, Text: "Intensive multicomponent behavioral intervention, >= 12 sessions/year", EvidenceGrade: domain.GRADE_B},
				{Category: domain.EXERCISE, Text: "150 minutes/week moderate aerobic activity", EvidenceGrade: domain.GRADE_B},
			},
		},
		{
			ID:            "gerd-ppi-stepdown",
			ConditionKey:  "gerd",
			Name:          "GERD PPI Step-Down",
			Source:        "ACG 2022",
			Priority:      domain.LOW_PRIORITY,
			EvidenceGrade: domain.GRADE_B,
			Applicability: domain.ApplicabilityCriteria{
				Pregnancy: bptr(false),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "8-week PPI course, then attempt step-down to lowest effective dose", EvidenceGrade: domain.GRADE_B},
			},
		},
		{
			ID:            "osteo-bisphosphonate",
			ConditionKey:  "osteoporosis",
			Name:          "Osteoporosis Bisphosphonate Therapy",
			Source:        "AACE/ACE 2020",
			Priority:      domain.MEDIUM_PRIORITY,
			EvidenceGrade: domain.GRADE_A,
			Applicability: domain.ApplicabilityCriteria{
				MinAge: iptr(50),
				Gender: gptr(domain.FEMALE),
			},
			Interventions: []domain.Intervention{
				{Category: domain.MEDICATION, Text: "Oral bisphosphonate first line; reassess at 5 years", EvidenceGrade: domain.GRADE_A},
				{Category: domain.NUTRITION, Text: "Calcium 1200 mg/day and vitamin D 800 IU/day", EvidenceGrade: domain.GRADE_B},
			},
		},
	}
}
