package domain

import (
	"time"

	"github.com/cds-rules-server/pkg/ruleexpr"
)

// Core Data Models

// PatientState is an immutable snapshot of a patient at evaluation time.
// Callers construct one snapshot per evaluation; the engine never mutates it.
// Confidence describes how reliable the snapshot is on the [0,100] scale.
type PatientState struct {
	PatientID      string             `json:"patient_id"`
	Age            int                `json:"age"`
	Gender         Gender             `json:"gender"`
	Pregnant       bool               `json:"pregnant,omitempty"`
	Vitals         map[string]any     `json:"vitals"`
	Labs           map[string]float64 `json:"labs"`
	Conditions     []string           `json:"conditions"`
	Medications    []string           `json:"medications"`
	DiagnosisCodes []string           `json:"diagnosis_codes,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	Confidence     float64            `json:"confidence"`
}

// EvalContext builds the rule-expression evaluation context from the
// snapshot. Vitals are reachable under both "vitals" and "vital_signs";
// older rule catalogs were authored against the latter name.
func (s *PatientState) EvalContext() map[string]any {
	labs := make(map[string]any, len(s.Labs))
	for k, v := range s.Labs {
		labs[k] = v
	}
	return map[string]any{
		"patient_id":      s.PatientID,
		"age":             s.Age,
		"gender":          string(s.Gender),
		"pregnant":        s.Pregnant,
		"vitals":          s.Vitals,
		"vital_signs":     s.Vitals,
		"labs":            labs,
		"conditions":      s.Conditions,
		"medications":     s.Medications,
		"diagnosis_codes": s.DiagnosisCodes,
		"notes":           s.Notes,
		"timestamp":       s.Timestamp,
		"confidence":      s.Confidence,
	}
}

// AgeHours returns the age of the snapshot in hours relative to now.
func (s *PatientState) AgeHours(now time.Time) float64 {
	return now.Sub(s.Timestamp).Hours()
}

// DetectedCondition is a condition inferred from notes, medications or
// diagnosis codes. Instances are never mutated after creation; re-detection
// supersedes rather than updates.
type DetectedCondition struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Category          ConditionCategory `json:"category"`
	Severity          string            `json:"severity,omitempty"`
	Codes             []string          `json:"codes,omitempty"`
	DetectedFrom      DetectionSource   `json:"detected_from"`
	Confidence        float64           `json:"confidence"`
	DetectedAt        time.Time         `json:"detected_at"`
	RelevantProtocols []string          `json:"relevant_protocols,omitempty"`
}

// ClinicalProtocolRule is a declarative guideline rule: a validation gate
// plus a rule-expression tree mapping patient state to a clinical action.
// Rules are authored externally and read-only to the engine.
type ClinicalProtocolRule struct {
	RuleID     string         `json:"rule_id"`
	Name       string         `json:"name,omitempty"`
	Logic      *ruleexpr.Rule `json:"logic"`
	Validation RuleValidation `json:"validation"`
	Metadata   RuleMetadata   `json:"metadata"`
}

// RuleValidation gates rule evaluation on snapshot quality.
type RuleValidation struct {
	MinConfidence      float64  `json:"min_confidence"`
	MaxDataAgeHours    *float64 `json:"max_data_age_hours,omitempty"`
	RequiredFields     []string `json:"required_fields,omitempty"`
	RequireHumanReview bool     `json:"require_human_review"`
}

// RuleMetadata carries authoring metadata; only active rules are evaluated.
type RuleMetadata struct {
	IsActive bool   `json:"is_active"`
	Source   string `json:"source,omitempty"`
	Version  string `json:"version,omitempty"`
}

// RuleEvaluationResult is one fired rule's resolved action.
type RuleEvaluationResult struct {
	Action         ClinicalAction `json:"action"`
	Protocol       string         `json:"protocol"`
	Confidence     float64        `json:"confidence"`
	RequiresReview bool           `json:"requires_review"`
	TriggeredAt    time.Time      `json:"triggered_at"`
}

// SkippedRule records a rule that produced no action and why.
type SkippedRule struct {
	RuleID  string     `json:"rule_id"`
	Reason  SkipReason `json:"reason"`
	Details string     `json:"details,omitempty"`
}

// RuleEngineOutput is the result of one batch evaluation.
type RuleEngineOutput struct {
	Actions          []RuleEvaluationResult `json:"actions"`
	TriggeredRules   []string               `json:"triggered_rules"`
	SkippedRules     []SkippedRule          `json:"skipped_rules"`
	EvaluationTimeMs int64                  `json:"evaluation_time_ms"`
}

// LabResult is an incoming laboratory observation. Value arrives as a
// string and is parsed to a number at the monitor boundary.
type LabResult struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	TestName   string    `json:"test_name"`
	Code       string    `json:"code,omitempty"`
	Value      string    `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// LabEvaluation is the per-analyte classification outcome.
type LabEvaluation struct {
	Analyte               string  `json:"analyte"`
	Value                 float64 `json:"value"`
	Category              string  `json:"category"`
	Flagged               bool    `json:"flagged"`
	PreventionPlanCreated bool    `json:"prevention_plan_created"`
	PlanID                string  `json:"plan_id,omitempty"`
}

// MonitorResult is the outcome of routing one lab result. An unmapped test
// yields Monitored=false with a nil Result; that is a valid outcome, not an
// error.
type MonitorResult struct {
	Monitored bool           `json:"monitored"`
	TestType  string         `json:"test_type"`
	Result    *LabEvaluation `json:"result,omitempty"`
}

// PreventionPlan is created when an abnormal lab value indicates risk.
// Every flagged evaluation produces a new plan; there is no update-in-place.
type PreventionPlan struct {
	ID                string            `json:"id"`
	PatientID         string            `json:"patient_id"`
	PlanType          string            `json:"plan_type"`
	Goals             []PlanGoal        `json:"goals"`
	Recommendations   []Recommendation  `json:"recommendations"`
	ScreeningSchedule []ScreeningEntry  `json:"screening_schedule,omitempty"`
	Status            PlanStatus        `json:"status"`
	GuidelineSource   string            `json:"guideline_source,omitempty"`
	EvidenceLevel     EvidenceGrade     `json:"evidence_level,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// PlanGoal is a time-bound target within a prevention plan.
type PlanGoal struct {
	Target  string     `json:"target"`
	DueDate time.Time  `json:"due_date"`
	Status  GoalStatus `json:"status"`
}

// Recommendation is one categorized, evidence-graded plan item.
type Recommendation struct {
	Category      RecommendationCategory `json:"category"`
	Text          string                 `json:"text"`
	EvidenceGrade EvidenceGrade          `json:"evidence_grade"`
	Priority      Priority               `json:"priority"`
}

// ScreeningEntry schedules a follow-up test within a prevention plan.
type ScreeningEntry struct {
	TestName  string    `json:"test_name"`
	DueDate   time.Time `json:"due_date"`
	Frequency string    `json:"frequency,omitempty"`
}

// Protocol is a guideline-derived bundle of interventions for a condition,
// gated by applicability criteria.
type Protocol struct {
	ID            string                `json:"id"`
	ConditionKey  string                `json:"condition_key"`
	Name          string                `json:"name"`
	Source        string                `json:"source"`
	Priority      Priority              `json:"priority"`
	EvidenceGrade EvidenceGrade         `json:"evidence_grade"`
	Applicability ApplicabilityCriteria `json:"applicability_criteria"`
	Interventions []Intervention        `json:"interventions"`
}

// ApplicabilityCriteria gates a protocol on patient facts. Any absent
// criterion is a wildcard.
type ApplicabilityCriteria struct {
	MinAge    *int                `json:"min_age,omitempty"`
	MaxAge    *int                `json:"max_age,omitempty"`
	Gender    *Gender             `json:"gender,omitempty"`
	Pregnancy *bool               `json:"pregnancy,omitempty"`
	LabRanges map[string]LabRange `json:"lab_ranges,omitempty"`
}

// LabRange bounds a lab value; nil bounds are open.
type LabRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the range, inclusive of bounds.
func (r LabRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Intervention is one protocol-recommended action.
type Intervention struct {
	Category      RecommendationCategory `json:"category"`
	Text          string                 `json:"text"`
	EvidenceGrade EvidenceGrade          `json:"evidence_grade"`
	Frequency     string                 `json:"frequency,omitempty"`
}

// PatientFacts carries the demographic and risk facts needed for protocol
// applicability and screening eligibility checks.
type PatientFacts struct {
	PatientID     string               `json:"patient_id"`
	Age           int                  `json:"age"`
	Gender        Gender               `json:"gender"`
	Pregnant      bool                 `json:"pregnant,omitempty"`
	BMI           *float64             `json:"bmi,omitempty"`
	TobaccoUse    bool                 `json:"tobacco_use,omitempty"`
	FamilyHistory []string             `json:"family_history,omitempty"`
	Labs          map[string]float64   `json:"labs,omitempty"`
	LastScreened  map[string]time.Time `json:"last_screened,omitempty"`
}

// ScreeningRule defines eligibility and recurrence for a periodic
// preventive test.
type ScreeningRule struct {
	Name              string              `json:"name"`
	ScreeningType     string              `json:"screening_type"`
	AgeRange          AgeRange            `json:"age_range"`
	GenderRestriction *Gender             `json:"gender_restriction,omitempty"`
	FrequencyYears    int                 `json:"frequency_years,omitempty"`
	FrequencyMonths   int                 `json:"frequency_months,omitempty"`
	RiskFactors       *RiskFactorCriteria `json:"risk_factors,omitempty"`
	Priority          Priority            `json:"priority"`
	EvidenceGrade     EvidenceGrade       `json:"evidence_grade"`
}

// IntervalMonths returns the screening recurrence expressed in months.
func (r ScreeningRule) IntervalMonths() int {
	return r.FrequencyYears*12 + r.FrequencyMonths
}

// AgeRange is an inclusive age window in whole years.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether age falls inside the range, inclusive.
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// RiskFactorCriteria are the optional risk thresholds on a screening rule.
// All specified thresholds must be met for the rule to apply.
type RiskFactorCriteria struct {
	TobaccoUse    *bool    `json:"tobacco_use,omitempty"`
	MinBMI        *float64 `json:"min_bmi,omitempty"`
	FamilyHistory []string `json:"family_history,omitempty"`
}

// DueScreening pairs an applicable screening rule with its due computation.
type DueScreening struct {
	Rule              ScreeningRule `json:"rule"`
	DueDate           time.Time     `json:"due_date"`
	OverdueDays       int           `json:"overdue_days"`
	LastScreeningDate *time.Time    `json:"last_screening_date,omitempty"`
}

// Reminder is an open prompt for a due screening.
type Reminder struct {
	ID            string         `json:"id"`
	PatientID     string         `json:"patient_id"`
	ScreeningType string         `json:"screening_type"`
	DueDate       time.Time      `json:"due_date"`
	Status        ReminderStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Demographics is the slice of the patient record the lab monitor and the
// screening scheduler read from the external store.
type Demographics struct {
	PatientID string    `json:"patient_id"`
	Gender    Gender    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
	Pregnant  bool      `json:"pregnant,omitempty"`
}

// Age returns completed years at the reference time.
func (d *Demographics) Age(at time.Time) int {
	years := at.Year() - d.BirthDate.Year()
	if at.YearDay() < d.BirthDate.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
