package catalog

// MedicationMapping infers conditions from a medication list. Matching is
// case-insensitive substring against the medication name and its aliases;
// one medication may imply several conditions, each inheriting the
// mapping's fixed confidence.
type MedicationMapping struct {
	Medication string
	Aliases    []string
	Conditions []string
	Confidence float64
}

// MedicationMappings returns the medication inference table in declared
// order.
func MedicationMappings() []MedicationMapping {
	return []MedicationMapping{
		{
			Medication: "metformin",
			Aliases:    []string{"glucophage"},
			Conditions: []string{"type2_diabetes"},
			Confidence: 90,
		},
		{
			Medication: "insulin",
			Aliases:    []string{"lantus", "glargine", "humalog", "lispro", "novolog", "aspart"},
			Conditions: []string{"type2_diabetes"},
			Confidence: 85,
		},
		{
			Medication: "lisinopril",
			Aliases:    []string{"enalapril", "ramipril", "benazepril"},
			Conditions: []string{"hypertension"},
			Confidence: 80,
		},
		{
			Medication: "losartan",
			Aliases:    []string{"valsartan", "olmesartan", "irbesartan"},
			Conditions: []string{"hypertension"},
			Confidence: 80,
		},
		{
			Medication: "amlodipine",
			Aliases:    []string{"nifedipine", "diltiazem"},
			Conditions: []string{"hypertension"},
			Confidence: 75,
		},
		{
			Medication: "atorvastatin",
			Aliases:    []string{"lipitor", "rosuvastatin", "crestor", "simvastatin", "pravastatin"},
			Conditions: []string{"hyperlipidemia"},
			Confidence: 85,
		},
		{
			Medication: "albuterol",
			Aliases:    []string{"ventolin", "proair", "salbutamol"},
			Conditions: []string{"asthma"},
			Confidence: 75,
		},
		{
			Medication: "fluticasone/salmeterol",
			Aliases:    []string{"advair", "budesonide/formoterol", "symbicort"},
			Conditions: []string{"asthma", "copd"},
			Confidence: 70,
		},
		{
			Medication: "tiotropium",
			Aliases:    []string{"spiriva"},
			Conditions: []string{"copd"},
			Confidence: 85,
		},
		{
			Medication: "levothyroxine",
			Aliases:    []string{"synthroid"},
			Conditions: []string{"hypothyroidism"},
			Confidence: 90,
		},
		{
			Medication: "furosemide",
			Aliases:    []string{"lasix", "torsemide", "bumetanide"},
			Conditions: []string{"heart_failure"},
			Confidence: 70,
		},
		{
			Medication: "sacubitril/valsartan",
			Aliases:    []string{"entresto"},
			Conditions: []string{"heart_failure"},
			Confidence: 95,
		},
		{
			Medication: "apixaban",
			Aliases:    []string{"eliquis", "rivaroxaban", "xarelto", "warfarin"},
			Conditions: []string{"atrial_fibrillation"},
			Confidence: 70,
		},
		{
			Medication: "sertraline",
			Aliases:    []string{"zoloft", "fluoxetine", "prozac", "escitalopram", "lexapro", "citalopram"},
			Conditions: []string{"depression"},
			Confidence: 70,
		},
		{
			Medication: "ferrous sulfate",
			Aliases:    []string{"iron supplement"},
			Conditions: []string{"anemia"},
			Confidence: 75,
		},
		{
			Medication: "omeprazole",
			Aliases:    []string{"prilosec", "pantoprazole", "protonix", "esomeprazole", "nexium"},
			Conditions: []string{"gerd"},
			Confidence: 70,
		},
		{
			Medication: "alendronate",
			Aliases:    []string{"fosamax", "risedronate", "zoledronic acid"},
			Conditions: []string{"osteoporosis"},
			Confidence: 90,
		},
	}
}
