// Package catalog holds the static clinical configuration tables: condition
// detection patterns, medication inference mappings, guideline protocols and
// screening rules. Tables are plain data iterated in declared order; the
// ordering of a condition's pattern list is contract, not accident.
package catalog

import (
	"github.com/cds-rules-server/internal/domain"
)

// ConditionPattern maps note-text patterns and diagnosis codes to one known
// condition. Patterns are tried in order and the first match wins for that
// condition; distinct conditions may all match the same note.
type ConditionPattern struct {
	ConditionID string
	Name        string
	Category    domain.ConditionCategory
	Patterns    []string
	Codes       []string
	ProtocolIDs []string
}

// ConditionPatterns returns the authoritative detection table. Order is the
// declared iteration order of the detector.
func ConditionPatterns() []ConditionPattern {
	return []ConditionPattern{
		{
			ConditionID: "hypertension",
			Name:        "Hypertension",
			Category:    domain.CARDIOVASCULAR,
			Patterns:    []string{"hypertension", "elevated blood pressure", "high blood pressure", "htn"},
			Codes:       []string{"I10", "I11", "I12", "I13"},
			ProtocolIDs: []string{"htn-mgmt-2017"},
		},
		{
			ConditionID: "type2_diabetes",
			Name:        "Type 2 Diabetes Mellitus",
			Category:    domain.ENDOCRINE,
			Patterns:    []string{"type 2 diabetes", "type ii diabetes", "diabetes mellitus", "t2dm", "diabetic"},
			Codes:       []string{"E11"},
			ProtocolIDs: []string{"dm2-glycemic-2024", "dm2-nephropathy-screen"},
		},
		{
			ConditionID: "hyperlipidemia",
			Name:        "Hyperlipidemia",
			Category:    domain.METABOLIC,
			Patterns:    []string{"hyperlipidemia", "dyslipidemia", "high cholesterol", "hypercholesterolemia"},
			Codes:       []string{"E78.0", "E78.2", "E78.5"},
			ProtocolIDs: []string{"lipid-statin-2018"},
		},
		{
			ConditionID: "asthma",
			Name:        "Asthma",
			Category:    domain.RESPIRATORY,
			Patterns:    []string{"asthma", "reactive airway disease", "bronchospasm"},
			Codes:       []string{"J45"},
			ProtocolIDs: []string{"asthma-stepwise-gina"},
		},
		{
			ConditionID: "copd",
			Name:        "Chronic Obstructive Pulmonary Disease",
			Category:    domain.RESPIRATORY,
			Patterns:    []string{"copd", "chronic obstructive pulmonary", "emphysema", "chronic bronchitis"},
			Codes:       []string{"J44"},
			ProtocolIDs: []string{"copd-gold-2023"},
		},
		{
			ConditionID: "ckd",
			Name:        "Chronic Kidney Disease",
			Category:    domain.RENAL,
			Patterns:    []string{"chronic kidney disease", "renal insufficiency", "ckd", "nephropathy"},
			Codes:       []string{"N18"},
			ProtocolIDs: []string{"ckd-kdigo-2024"},
		},
		{
			ConditionID: "heart_failure",
			Name:        "Heart Failure",
			Category:    domain.CARDIOVASCULAR,
			Patterns:    []string{"heart failure", "congestive heart failure", "chf", "reduced ejection fraction"},
			Codes:       []string{"I50"},
			ProtocolIDs: []string{"hf-gdmt-2022"},
		},
		{
			ConditionID: "atrial_fibrillation",
			Name:        "Atrial Fibrillation",
			Category:    domain.CARDIOVASCULAR,
			Patterns:    []string{"atrial fibrillation", "afib", "a-fib", "irregularly irregular"},
			Codes:       []string{"I48"},
			ProtocolIDs: []string{"afib-anticoag-2023"},
		},
		{
			ConditionID: "hypothyroidism",
			Name:        "Hypothyroidism",
			Category:    domain.ENDOCRINE,
			Patterns:    []string{"hypothyroidism", "underactive thyroid", "hashimoto"},
			Codes:       []string{"E03", "E06.3"},
			ProtocolIDs: []string{"thyroid-replacement"},
		},
		{
			ConditionID: "depression",
			Name:        "Major Depressive Disorder",
			Category:    domain.MENTAL_HEALTH,
			Patterns:    []string{"major depressive disorder", "depression", "depressed mood", "mdd"},
			Codes:       []string{"F32", "F33"},
			ProtocolIDs: []string{"depression-phq9"},
		},
		{
			ConditionID: "anemia",
			Name:        "Anemia",
			Category:    domain.HEMATOLOGIC,
			Patterns:    []string{"iron deficiency anemia", "anemia", "low hemoglobin"},
			Codes:       []string{"D50", "D64.9"},
			ProtocolIDs: []string{"anemia-workup"},
		},
		{
			ConditionID: "obesity",
			Name:        "Obesity",
			Category:    domain.METABOLIC,
			Patterns:    []string{"morbid obesity", "obesity", "obese"},
			Codes:       []string{"E66"},
			ProtocolIDs: []string{"weight-mgmt-lifestyle"},
		},
		{
			ConditionID: "gerd",
			Name:        "Gastroesophageal Reflux Disease",
			Category:    domain.GASTROINTESTINAL,
			Patterns:    []string{"gastroesophageal reflux", "gerd", "acid reflux", "heartburn"},
			Codes:       []string{"K21"},
			ProtocolIDs: []string{"gerd-ppi-stepdown"},
		},
		{
			ConditionID: "osteoporosis",
			Name:        "Osteoporosis",
			Category:    domain.METABOLIC,
			Patterns:    []string{"osteoporosis", "osteopenia", "low bone density", "fragility fracture"},
			Codes:       []string{"M81", "M80"},
			ProtocolIDs: []string{"osteo-bisphosphonate"},
		},
	}
}
