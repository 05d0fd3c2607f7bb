package service

import "github.com/cds-rules-server/internal/domain"

// analyteHandlers returns the full monitored analyte set. Declaration order
// is the alias dispatch order: handlers whose aliases are substrings of
// other analytes' names (hemoglobin, cholesterol, glucose) are declared
// after the more specific tests they would shadow.
func analyteHandlers() []analyteHandler {
	return []analyteHandler{
		{
			Analyte:         "hba1c",
			PlanType:        "glycemic_management",
			Codes:           []string{"4548-4", "17856-6"},
			Aliases:         []string{"hba1c", "a1c", "glycated hemoglobin", "hemoglobin a1c", "glycohemoglobin"},
			Ladder:          hba1cLadder,
			GuidelineSource: "ADA Standards of Care 2024",
			EvidenceLevel:   domain.GRADE_A,
			PlanSpecs: map[string]planSpec{
				catPrediabetes: {
					Goals: []goalSpec{
						{Target: "Repeat HbA1c in 3 months", DueWeeks: 12},
						{Target: "HbA1c below 5.7%", DueWeeks: 26},
					},
					Recommendations: []domain.Recommendation{
						{Category: domain.LIFESTYLE, Text: "Refer to diabetes prevention program (weight loss 7%, 150 min/week activity)", EvidenceGrade: domain.GRADE_A, Priority: domain.MEDIUM_PRIORITY},
						{Category: domain.MONITORING, Text: "Repeat HbA1c in 3 months", EvidenceGrade: domain.GRADE_A, Priority: domain.MEDIUM_PRIORITY},
					},
					RetestWeeks: 12,
				},
				catDiabetes: {
					Goals: []goalSpec{
						{Target: "Physician evaluation within 1 week", DueWeeks: 1},
						{Target: "HbA1c below 7.0%", DueWeeks: 12},
					},
					Recommendations: []domain.Recommendation{
						{Category: domain.REFERRAL, Text: "Physician evaluation for diabetes diagnosis and treatment initiation", EvidenceGrade: domain.GRADE_A, Priority: domain.HIGH_PRIORITY},
						{Category: domain.MEDICATION, Text: "Consider metformin as first-line therapy unless contraindicated", EvidenceGrade: domain.GRADE_A, Priority: domain.HIGH_PRIORITY},
						{Category: domain.MONITORING, Text: "Repeat HbA1c in 3 months after treatment start", EvidenceGrade: domain.GRADE_A, Priority: domain.MEDIUM_PRIORITY},
					},
					RetestWeeks: 12,
				},
			},
		},
		{
			Analyte:         "egfr",
			PlanType:        "renal_function",
			Codes:           []string{"33914-3", "62238-1"},
			Aliases:         []string{"egfr", "glomerular filtration"},
			Ladder:          egfrLadder,
			GuidelineSource: "KDIGO CKD Guideline 2024",
			EvidenceLevel:   domain.GRADE_A,
		},
		{
			Analyte:         "ldl_cholesterol",
			PlanType:        "lipid_management",
			Codes:           []string{"13457-7", "2089-1"},
			Aliases:         []string{"ldl"},
			Ladder:          ldlLadder,
			GuidelineSource: "ACC/AHA Cholesterol Guideline 2018",
			EvidenceLevel:   domain.GRADE_A,
			PlanSpecs: map[string]planSpec{
				catVeryHigh: {
					Goals: []goalSpec{
						{Target: "LDL below 100 mg/dL", DueWeeks: 12},
					},
					Recommendations: []domain.Recommendation{
						{Category: domain.MEDICATION, Text: "Initiate high-intensity statin; evaluate for familial hypercholesterolemia", EvidenceGrade: domain.GRADE_A, Priority: domain.HIGH_PRIORITY},
						{Category: domain.MONITORING, Text: "Repeat lipid panel in 4-12 weeks after statin start", EvidenceGrade: domain.GRADE_A, Priority: domain.MEDIUM_PRIORITY},
					},
					RetestWeeks: 6,
				},
			},
		},
		{
			Analyte:         "hdl_cholesterol",
			PlanType:        "lipid_management",
			Codes:           []string{"2085-9"},
			Aliases:         []string{"hdl"},
			GenderSpecific:  true,
			LadderFor:       hdlLadder,
			GuidelineSource: "ACC/AHA Cholesterol Guideline 2018",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "triglycerides",
			PlanType:        "lipid_management",
			Codes:           []string{"2571-8"},
			Aliases:         []string{"triglyceride"},
			Ladder:          triglycerideLadder,
			GuidelineSource: "ACC/AHA Cholesterol Guideline 2018",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "total_cholesterol",
			PlanType:        "lipid_management",
			Codes:           []string{"2093-3"},
			Aliases:         []string{"total cholesterol", "cholesterol"},
			Ladder:          totalCholesterolLadder,
			GuidelineSource: "ACC/AHA Cholesterol Guideline 2018",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "fasting_glucose",
			PlanType:        "glycemic_management",
			Codes:           []string{"1558-6"},
			Aliases:         []string{"fasting glucose", "glucose"},
			Ladder:          fastingGlucoseLadder,
			GuidelineSource: "ADA Standards of Care 2024",
			EvidenceLevel:   domain.GRADE_A,
		},
		{
			Analyte:         "tsh",
			PlanType:        "thyroid_function",
			Codes:           []string{"3016-3"},
			Aliases:         []string{"tsh", "thyroid stimulating"},
			Ladder:          tshLadder,
			GuidelineSource: "ATA Hypothyroidism Guideline 2014",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "vitamin_d",
			PlanType:        "nutritional",
			Codes:           []string{"1989-3"},
			Aliases:         []string{"vitamin d", "25-hydroxy"},
			Ladder:          vitaminDLadder,
			GuidelineSource: "Endocrine Society Vitamin D Guideline 2011",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "ferritin",
			PlanType:        "hematologic",
			Codes:           []string{"2276-4"},
			Aliases:         []string{"ferritin"},
			GenderSpecific:  true,
			LadderFor:       ferritinLadder,
			GuidelineSource: "ASH Iron Deficiency Guidance 2023",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "vitamin_b12",
			PlanType:        "nutritional",
			Codes:           []string{"2132-9"},
			Aliases:         []string{"b12", "cobalamin"},
			Ladder:          b12Ladder,
			GuidelineSource: "BSH B12 Guideline 2014",
			EvidenceLevel:   domain.GRADE_C,
		},
		{
			Analyte:         "alt",
			PlanType:        "hepatic_function",
			Codes:           []string{"1742-6"},
			Aliases:         []string{"alt", "alanine aminotransferase"},
			Ladder:          altLadder,
			GuidelineSource: "ACG Liver Chemistries Guideline 2017",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "calcium",
			PlanType:        "metabolic",
			Codes:           []string{"17861-6"},
			Aliases:         []string{"calcium"},
			Ladder:          calciumLadder,
			GuidelineSource: "Endocrine Society Hypercalcemia Guidance",
			EvidenceLevel:   domain.GRADE_C,
		},
		{
			Analyte:         "uric_acid",
			PlanType:        "metabolic",
			Codes:           []string{"3084-1"},
			Aliases:         []string{"uric acid", "urate"},
			GenderSpecific:  true,
			LadderFor:       uricAcidLadder,
			GuidelineSource: "ACR Gout Guideline 2020",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "creatinine",
			PlanType:        "renal_function",
			Codes:           []string{"2160-0"},
			Aliases:         []string{"creatinine"},
			GenderSpecific:  true,
			LadderFor:       creatinineLadder,
			GuidelineSource: "KDIGO CKD Guideline 2024",
			EvidenceLevel:   domain.GRADE_B,
		},
		{
			Analyte:         "albumin",
			PlanType:        "metabolic",
			Codes:           []string{"1751-7"},
			Aliases:         []string{"albumin"},
			Ladder:          albuminLadder,
			GuidelineSource: "ACG Liver Chemistries Guideline 2017",
			EvidenceLevel:   domain.GRADE_C,
		},
		{
			Analyte:         "platelets",
			PlanType:        "hematologic",
			Codes:           []string{"777-3"},
			Aliases:         []string{"platelet"},
			Ladder:          plateletLadder,
			GuidelineSource: "ASH Thrombocytopenia Guidance",
			EvidenceLevel:   domain.GRADE_B,
			PlanSpecs: map[string]planSpec{
				catCriticalLow: {
					Goals: []goalSpec{
						{Target: "Hematology evaluation within 1 week", DueWeeks: 1},
					},
					Recommendations: []domain.Recommendation{
						{Category: domain.URGENT, Text: "Urgent clinician review: severe thrombocytopenia, assess bleeding risk", EvidenceGrade: domain.GRADE_B, Priority: domain.CRITICAL_PRIORITY},
						{Category: domain.MONITORING, Text: "Repeat platelet count in 1-2 weeks", EvidenceGrade: domain.GRADE_B, Priority: domain.HIGH_PRIORITY},
					},
					RetestWeeks: 1,
				},
			},
		},
		{
			Analyte:         "hemoglobin",
			PlanType:        "hematologic",
			Codes:           []string{"718-7"},
			Aliases:         []string{"hemoglobin", "hgb"},
			GenderSpecific:  true,
			LadderFor:       hemoglobinLadder,
			GuidelineSource: "WHO Anaemia Thresholds 2011",
			EvidenceLevel:   domain.GRADE_B,
		},
	}
}
